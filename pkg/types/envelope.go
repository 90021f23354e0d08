package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyBody is returned by Unwrap when the response carried no object.
var ErrEmptyBody = errors.New("empty response body")

// Unwrap decodes a response shaped either {key: {...}} or as the bare object.
func Unwrap[T any](raw json.RawMessage, key string) (T, error) {
	var zero T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return zero, ErrEmptyBody
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return zero, fmt.Errorf("decode %s: %w", key, err)
	}
	if inner, ok := fields[key]; ok {
		innerTrimmed := bytes.TrimSpace(inner)
		if len(innerTrimmed) > 0 && innerTrimmed[0] == '{' {
			trimmed = innerTrimmed
		}
	}

	var value T
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return zero, fmt.Errorf("decode %s: %w", key, err)
	}
	return value, nil
}
