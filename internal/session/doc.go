// Package session holds the process-wide authentication state of portalctl.
//
// A Session is derived from the credentials store at startup and mutated by
// login, token refresh and logout. Readers get a consistent Snapshot of the
// authentication flag and the decoded identity; the pair is swapped atomically
// so no reader ever observes one without the other.
//
// Session also implements oauth2.TokenSource, so anything that understands
// golang.org/x/oauth2 can attach the current access token.
package session
