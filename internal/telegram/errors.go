package telegram

import "fmt"

// APIError is an error reply from the Bot API: a non-2xx HTTP status or an
// ok=false result payload.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("telegram api error (status %d): %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("telegram api error (status %d)", e.StatusCode)
}

// ProtocolError indicates the remote answered with a body the client could
// not decode. The caller decides whether to retry on the next loop iteration.
type ProtocolError struct {
	Method string
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("telegram %s: malformed response: %v", e.Method, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
