package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DecodeError is returned for any token string that cannot be decoded into Claims.
type DecodeError struct {
	// Reason is the underlying parse failure.
	Reason error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed token: %v", e.Reason)
}

// Unwrap returns the underlying parse failure.
func (e *DecodeError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to match any DecodeError.
func (e *DecodeError) Is(target error) bool {
	_, ok := target.(*DecodeError)
	return ok
}

// parser only splits and decodes, it never validates signatures or time claims.
var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Decode extracts the claims from a token without verifying its signature.
// Every failure is reported as a *DecodeError.
func Decode(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, &DecodeError{Reason: errors.New("empty token")}
	}

	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, &DecodeError{Reason: err}
	}
	return claims, nil
}

// IsExpired reports whether tokenString is expired at now. Tokens that cannot
// be decoded or that lack an exp claim are always expired.
func IsExpired(tokenString string, now time.Time) bool {
	claims, err := Decode(tokenString)
	if err != nil || claims.RegisteredClaims.ExpiresAt == nil {
		return true
	}
	// exp is whole seconds; compare in milliseconds like the server does.
	return claims.RegisteredClaims.ExpiresAt.Unix()*1000 < now.UnixMilli()
}

// ExpiresAt returns the expiry of tokenString. ok is false when the token
// cannot be decoded or has no exp claim.
func ExpiresAt(tokenString string) (expiry time.Time, ok bool) {
	claims, err := Decode(tokenString)
	if err != nil || claims.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.Expiry(), true
}
