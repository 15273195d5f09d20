package fielder

type Pool interface {
	Append(records []Record) error
	Push(record Record) error
	Eject(limit int) (records []Record, err error)
}
