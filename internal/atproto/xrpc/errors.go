package xrpc

import (
	"errors"
	"fmt"
)

var (
	// ErrTransportFailure indicates the network exchange itself failed
	// (connection refused, DNS, reset, ...).
	ErrTransportFailure = errors.New("transport failure")

	// ErrUnsupportedMediaType indicates a response whose content type is
	// neither JSON nor text. Binary responses are not passed through.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrUnencodableBody indicates a structured body sent with a non-JSON
	// content type.
	ErrUnencodableBody = errors.New("body cannot be sent without a json content type")

	// ErrMalformedResponse indicates a JSON response that failed to parse.
	ErrMalformedResponse = errors.New("malformed json response")
)

// Error is an XRPC error response (HTTP status >= 400).
type Error struct {
	Name       string
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("xrpc error %d %s: %s", e.StatusCode, e.Name, e.Message)
	}
	return fmt.Sprintf("xrpc error %d %s", e.StatusCode, e.Name)
}

// newError builds an Error from a response, reading the standard
// {"error": ..., "message": ...} body when present.
func newError(res *Result) *Error {
	e := &Error{StatusCode: res.Status}
	switch body := res.Body.(type) {
	case map[string]any:
		e.Name, _ = body["error"].(string)
		e.Message, _ = body["message"].(string)
	case string:
		e.Message = body
	}
	return e
}
