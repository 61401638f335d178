package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
)

// JSONB stores T as a JSON document. It reads both []byte (postgres) and
// string (sqlite) column values and marshals to the bare document.
type JSONB[T any] struct {
	Data T
}

func NewJSONB[T any](data T) JSONB[T] {
	return JSONB[T]{Data: data}
}

func (p *JSONB[T]) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		var zero T
		p.Data = zero
		return nil
	case []byte:
		return json.Unmarshal(v, &p.Data)
	case string:
		return json.Unmarshal([]byte(v), &p.Data)
	default:
		return fmt.Errorf("JSONB.Scan: expected []byte or string, got %T", src)
	}
}

func (p JSONB[T]) Value() (driver.Value, error) {
	b, err := p.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p JSONB[T]) MarshalJSON() ([]byte, error) {
	v := reflect.ValueOf(p.Data)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Data)
}

func (p *JSONB[T]) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &p.Data)
}

func (p *JSONB[T]) GetValue() T {
	return p.Data
}
