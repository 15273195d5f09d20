package postgres

import (
	"database/sql/driver"
	"encoding/json"
)

// valuesJSON maps a value bag onto a JSONB column.
type valuesJSON map[int64]interface{}

// Scan implements the scanner interface for valuesJSON.
func (v *valuesJSON) Scan(value interface{}) error {
	var bytes []byte
	switch t := value.(type) {
	case []byte:
		bytes = t
	case string:
		bytes = []byte(t)
	default:
		bytes = []byte(`{}`)
	}
	return json.Unmarshal(bytes, v)
}

// Value implements the valuer interface for valuesJSON.
func (v valuesJSON) Value() (driver.Value, error) {
	bytes, err := json.Marshal(v)
	return string(bytes), err
}

// optionsJSON maps dropdown options onto a JSONB column.
type optionsJSON []string

// Scan implements the scanner interface for optionsJSON.
func (o *optionsJSON) Scan(value interface{}) error {
	var bytes []byte
	switch t := value.(type) {
	case []byte:
		bytes = t
	case string:
		bytes = []byte(t)
	default:
		bytes = []byte(`[]`)
	}
	return json.Unmarshal(bytes, o)
}

// Value implements the valuer interface for optionsJSON.
func (o optionsJSON) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	bytes, err := json.Marshal(o)
	return string(bytes), err
}
