package credentials

import (
	"context"
	"fmt"
	"log/slog"
)

// Credentials is the token pair issued by the portal API.
type Credentials struct {
	// AccessToken is the short-lived bearer token.
	AccessToken string `json:"access_token,omitempty"`

	// RefreshToken is the long-lived token used only to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`
}

// IsEmpty reports whether neither token is set.
func (c Credentials) IsEmpty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// String implements fmt.Stringer without revealing token values.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{access:%s refresh:%s}", redact(c.AccessToken), redact(c.RefreshToken))
}

// GoString implements fmt.GoStringer for %#v formatting.
func (c Credentials) GoString() string {
	return c.String()
}

// LogValue implements slog.LogValuer.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_access_token", c.AccessToken != ""),
		slog.Bool("has_refresh_token", c.RefreshToken != ""),
	)
}

func redact(v string) string {
	if v == "" {
		return "<unset>"
	}
	return "[REDACTED]"
}

// Store is the durable key/value surface for the session's credentials.
type Store interface {
	// Save replaces both tokens.
	Save(ctx context.Context, creds Credentials) error

	// Load returns the stored credentials, or nil without error when nothing is stored.
	Load(ctx context.Context) (*Credentials, error)

	// Clear removes both tokens. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
