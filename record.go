package fielder

import "encoding"

// Record is a unit of data the relay can deliver into a SQL sink. A record
// knows its own INSERT statement and argument list, and can round-trip
// through a binary encoding so queues may hold it on disk.
type Record interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler

	SQL() string
	ToExec() []interface{}
}
