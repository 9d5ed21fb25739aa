// Package refresh serialises access token refreshes.
//
// A Coordinator guarantees that at most one refresh call to the portal is in
// flight at any time. Every caller that asks for a refresh while one is
// underway joins it and receives the same outcome: either the new access
// token or a *SessionTerminatedError. A failed refresh ends the session
// exactly once, however many callers were waiting.
//
// The network call runs detached from the callers' contexts and is bounded by
// the coordinator's refresh timeout, so a caller that gives up never aborts
// the refresh for the others.
package refresh
