package portal

import (
	"fmt"
	"net/http"
)

// TransportError indicates the request did not produce a response.
type TransportError struct {
	// Method and Endpoint identify the request.
	Method   string
	Endpoint string
	// Reason is the underlying network error.
	Reason error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Endpoint, e.Reason)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to match any TransportError.
func (e *TransportError) Is(target error) bool {
	_, ok := target.(*TransportError)
	return ok
}

// APIError is a non-2xx response from the portal.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	// Detail is the "detail" field of the error body, when present.
	Detail string
	// Body is a shortened copy of the response body.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Body
	}
	return fmt.Sprintf("%s %s returned %d %s: %s", e.Method, e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode), msg)
}

// IsUnauthorized reports whether the portal rejected the credentials.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsForbidden reports whether the account lacks permission.
func (e *APIError) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// Is allows errors.Is() to match any APIError.
func (e *APIError) Is(target error) bool {
	_, ok := target.(*APIError)
	return ok
}

// DecodeError indicates a successful response whose body was not the expected JSON.
type DecodeError struct {
	Endpoint string
	Reason   error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response from %s: %v", e.Endpoint, e.Reason)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to match any DecodeError.
func (e *DecodeError) Is(target error) bool {
	_, ok := target.(*DecodeError)
	return ok
}
