// Package portal is a typed client for the portal REST API.
//
// The token endpoints (/token/ and /token/refresh/) are called with a plain
// HTTP client so a stale bearer token is never sent along with a login. All
// other endpoints go through the authenticated client supplied by the caller,
// normally one whose Transport is a transport.Transport.
//
// Errors are typed:
//
//   - *TransportError: the request never produced a response
//   - *APIError: the portal answered with a non-2xx status
//   - *DecodeError: a 2xx response could not be decoded
//   - *refresh.SessionTerminatedError: the session ended while recovering from a 401
package portal
