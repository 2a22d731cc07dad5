package errors

import (
	"fmt"
	"net/http"
)

// StatusError represents an unexpected HTTP response code
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s: %s", e.Code, http.StatusText(e.Code), e.Body)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, http.StatusText(e.Code))
}

// WithBody creates a StatusError carrying a short excerpt of the response body.
func WithBody(code int, body string) error {
	return &StatusError{Code: code, Body: body}
}
