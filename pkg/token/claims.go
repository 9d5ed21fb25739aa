package token

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of a portal access token.
type Claims struct {
	// UserID is the numeric account identifier.
	UserID int64 `json:"user_id,omitempty"`

	// Email is the account e-mail address.
	Email string `json:"email,omitempty"`

	// IsStaff grants access to administrative views.
	IsStaff bool `json:"is_staff"`

	// IsSuperuser marks unrestricted accounts.
	IsSuperuser bool `json:"is_superuser"`

	// TokenType is "access" for access tokens and "refresh" for refresh tokens.
	TokenType string `json:"token_type,omitempty"`

	jwt.RegisteredClaims
}

// Identity returns the most specific identifier available for display:
// the subject, then the e-mail address, then the numeric user id.
func (c *Claims) Identity() string {
	if c == nil {
		return ""
	}
	if c.RegisteredClaims.Subject != "" {
		return c.RegisteredClaims.Subject
	}
	if c.Email != "" {
		return c.Email
	}
	if c.UserID != 0 {
		return strconv.FormatInt(c.UserID, 10)
	}
	return ""
}

// Expiry returns the expiry time, or the zero time when the token carries no exp claim.
func (c *Claims) Expiry() time.Time {
	if c == nil || c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

// IssuedAt returns the issue time, or the zero time when iat is absent.
func (c *Claims) IssuedAt() time.Time {
	if c == nil || c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}
