// Package mock provides test doubles for portalctl.
//
// PortalServer is an in-process portal API built on httptest. It issues
// HS256-signed access and refresh tokens, enforces bearer authentication on
// every /v1/ endpoint and records each request it sees, so tests can assert
// on exactly which Authorization header a call carried and how many refresh
// calls reached the server.
//
// Failure modes are switched on at runtime:
//
//	srv := mock.NewPortalServer(mock.PortalServerConfig{})
//	defer srv.Close()
//
//	srv.ExpireAccessTokens()           // next call gets 401, refresh succeeds
//	srv.SetRefreshFailure(http.StatusUnauthorized) // refresh is rejected
//	release := srv.HoldRefresh()       // refresh blocks until release()
//
// MockClock lets tests move time forward to expire tokens without sleeping.
package mock
