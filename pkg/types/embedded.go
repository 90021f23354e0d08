package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Embedded decodes a nested JSON value that the API sends either inline or as a
// JSON-encoded string. It always encodes inline.
type Embedded[T any] struct {
	Valid bool
	Value T
}

// Embed wraps a present value.
func Embed[T any](value T) Embedded[T] {
	return Embedded[T]{Valid: true, Value: value}
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Embedded[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		var zero T
		e.Valid = false
		e.Value = zero
		return nil
	}

	if trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return err
		}
		trimmed = bytes.TrimSpace([]byte(encoded))
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			var zero T
			e.Valid = false
			e.Value = zero
			return nil
		}
	}

	var value T
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return fmt.Errorf("embedded value: %w", err)
	}
	e.Valid = true
	e.Value = value
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e Embedded[T]) MarshalJSON() ([]byte, error) {
	if !e.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(e.Value)
}

// Get returns the value and whether it was present.
func (e Embedded[T]) Get() (T, bool) {
	return e.Value, e.Valid
}
