package fielder

// Spill is the last-resort store for rows that could not be delivered to the
// sink. Save must never fail loudly; Restore hands back one saved batch per
// call until none remain.
type Spill interface {
	Save(query string, rows [][]interface{})
	Restore() (exist bool, query string, rows []interface{})
}
