package yandextracker

import (
	"fmt"
	"net/http"

	"ytbatch/internal/service"
)

// TransportError is returned when a request could not be sent or its
// response could not be read.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s %s failed: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError is returned when a response body does not decode into the
// expected success or error shape.
type ParseError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparsable response (%d) from %s %s: %v", e.StatusCode, e.Method, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// APIError is returned when the tracker rejects a request.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Response   service.ErrorResponse
}

func (e *APIError) Error() string {
	msg := e.Response.Message()
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("tracker API error (%d) on %s %s: %s", e.StatusCode, e.Method, e.Path, msg)
}

// Unauthorized reports whether the token was rejected.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
