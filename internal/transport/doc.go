// Package transport implements the authenticated request pipeline as an
// http.RoundTripper.
//
// Every request leaving portalctl passes through Transport, which:
//
//   - attaches the stored access token as a bearer credential, if any
//   - tags the request with an X-Request-ID
//   - on a 401 from any endpoint other than the token endpoints, asks the
//     refresh coordinator for a new token and replays the request once
//
// A replay that is still rejected ends the session; the caller receives a
// *refresh.SessionTerminatedError. Transport errors and every other response
// are passed through untouched.
package transport
