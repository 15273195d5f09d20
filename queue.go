package fielder

import "encoding"

type Queue interface {
	Push(record encoding.BinaryMarshaler) error
	Eject(limit int) (records []interface{}, err error)
	Len() int
}
