package session

import "portalctl/pkg/token"

// AuthState represents the authentication state of the session.
type AuthState int

const (
	// StateUnknown means Initialize has not run yet.
	StateUnknown AuthState = iota

	// StateUnauthenticated means no usable access token is held.
	StateUnauthenticated

	// StateAuthenticated means a non-expired access token is held.
	StateAuthenticated
)

// String returns the string representation of the auth state.
func (s AuthState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	State AuthState

	// Identity holds the claims of the current access token. Nil unless authenticated.
	Identity *token.Claims
}

// IsAuthenticated reports whether the snapshot is authenticated.
func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated
}
