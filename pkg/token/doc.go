// Package token decodes the self-contained access tokens issued by the portal
// API and decides whether they are expired.
//
// Tokens are three-segment JWTs. The payload is read without verifying the
// signature: verification is the server's job, the client only needs the
// claims to derive session state and to know when a token is stale.
//
// Expiry is strict. A token whose "exp" (seconds since epoch) multiplied by
// 1000 is lower than the current time in milliseconds is expired; no clock
// skew leeway is applied. Anything that cannot be decoded, and any token
// without an "exp" claim, is treated as expired.
//
//	claims, err := token.Decode(accessToken)
//	if err != nil {
//	    var decodeErr *token.DecodeError
//	    errors.As(err, &decodeErr) // always true for Decode failures
//	}
//	if token.IsExpired(accessToken, time.Now()) {
//	    // refresh or re-authenticate
//	}
package token
