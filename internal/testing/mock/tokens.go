package mock

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"portalctl/pkg/token"
)

// SigningKey is the HMAC key used for every token minted by this package.
// Clients never verify signatures, so the value only needs to be stable.
var SigningKey = []byte("portalctl-mock-signing-key")

// TokenSpec describes a token to mint.
type TokenSpec struct {
	Subject   string
	UserID    int64
	Email     string
	IsStaff   bool
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// MintToken signs a token with the given claims. A zero ExpiresAt produces a
// token without an exp claim; a zero IssuedAt defaults to now.
func MintToken(spec TokenSpec) string {
	issued := spec.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}

	claims := &token.Claims{
		UserID:    spec.UserID,
		Email:     spec.Email,
		IsStaff:   spec.IsStaff,
		TokenType: spec.TokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  spec.Subject,
			IssuedAt: jwt.NewNumericDate(issued),
			ID:       uuid.NewString(),
		},
	}
	if !spec.ExpiresAt.IsZero() {
		claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(spec.ExpiresAt)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(SigningKey)
	if err != nil {
		// HS256 with a byte key only fails on programmer error.
		panic(err)
	}
	return signed
}

// AccessToken mints an access token for email expiring at exp.
func AccessToken(email string, exp time.Time) string {
	return MintToken(TokenSpec{Email: email, TokenType: "access", ExpiresAt: exp})
}

// RefreshToken mints a refresh token for email expiring at exp.
func RefreshToken(email string, exp time.Time) string {
	return MintToken(TokenSpec{Email: email, TokenType: "refresh", ExpiresAt: exp})
}
