package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Message string
	Errors  []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// AsError extracts the API error from err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status of an API error, or 0 for anything else.
func StatusOf(err error) int {
	if apiErr, ok := AsError(err); ok {
		return apiErr.Status
	}
	return 0
}

func parseError(status int, raw []byte) *Error {
	apiErr := &Error{Status: status, Message: defaultErrorMessage, Errors: []string{}}

	var body struct {
		Message string          `json:"message"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return apiErr
	}
	if body.Message != "" {
		apiErr.Message = body.Message
	}
	apiErr.Errors = flattenErrors(body.Errors)
	return apiErr
}

// flattenErrors accepts a list of strings or of {message|msg} objects.
func flattenErrors(raw json.RawMessage) []string {
	out := []string{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			out = append(out, text)
			continue
		}
		var obj struct {
			Message string `json:"message"`
			Msg     string `json:"msg"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && (obj.Message != "" || obj.Msg != "") {
			if obj.Message != "" {
				out = append(out, obj.Message)
			} else {
				out = append(out, obj.Msg)
			}
			continue
		}
		out = append(out, string(item))
	}
	return out
}
