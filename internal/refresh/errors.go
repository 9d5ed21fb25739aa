package refresh

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionTerminated matches any *SessionTerminatedError via errors.Is.
	ErrSessionTerminated = errors.New("session terminated")

	// ErrNoRefreshToken is the reason reported when nothing is stored to refresh with.
	ErrNoRefreshToken = errors.New("no refresh token stored")
)

// SessionTerminatedError is returned when the session had to be ended, either
// because the refresh failed or because the portal still rejected a request
// after it was replayed with a fresh token. The stored credentials have
// already been cleared when a caller receives it.
type SessionTerminatedError struct {
	// Reason is the underlying cause.
	Reason error
}

// Error implements the error interface.
func (e *SessionTerminatedError) Error() string {
	if e.Reason == nil {
		return ErrSessionTerminated.Error()
	}
	return fmt.Sprintf("%s: %v", ErrSessionTerminated, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *SessionTerminatedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is(err, ErrSessionTerminated) to match.
func (e *SessionTerminatedError) Is(target error) bool {
	if target == ErrSessionTerminated {
		return true
	}
	_, ok := target.(*SessionTerminatedError)
	return ok
}
