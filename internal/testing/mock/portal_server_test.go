package mock

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalctl/pkg/token"
)

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func getWithToken(t *testing.T, url, access string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestPortalServer_Login(t *testing.T) {
	srv := NewPortalServer(PortalServerConfig{})
	defer srv.Close()

	resp, body := postJSON(t, srv.URL()+"/token/", map[string]string{"username": DefaultUsername, "password": DefaultPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	access, _ := body["access"].(string)
	claims, err := token.Decode(access)
	require.NoError(t, err)
	assert.Equal(t, DefaultEmail, claims.Email)
	assert.True(t, claims.IsStaff)
	assert.Equal(t, "access", claims.TokenType)
	assert.NotEmpty(t, body["refresh"])

	resp, _ = postJSON(t, srv.URL()+"/token/", map[string]string{"username": DefaultUsername, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 2, srv.LoginCalls())
}

func TestPortalServer_OrganizationMustMatch(t *testing.T) {
	srv := NewPortalServer(PortalServerConfig{Users: map[string]User{
		"alice": {Password: "pw", Email: "alice@example.com", Organization: "acme"},
	}})
	defer srv.Close()

	resp, _ := postJSON(t, srv.URL()+"/token/", map[string]string{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = postJSON(t, srv.URL()+"/token/", map[string]string{"username": "alice", "password": "pw", "organization": "acme"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPortalServer_ProtectedEndpoints(t *testing.T) {
	srv := NewPortalServer(PortalServerConfig{})
	defer srv.Close()

	access, _ := srv.IssueTokens(DefaultUsername)

	resp := getWithToken(t, srv.URL()+"/v1/clients/", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), `error="invalid_request"`)

	resp = getWithToken(t, srv.URL()+"/v1/clients/", access)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	srv.ExpireAccessTokens()
	resp = getWithToken(t, srv.URL()+"/v1/clients/", access)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), `error="invalid_token"`)

	assert.Equal(t, []string{"", "Bearer " + access, "Bearer " + access}, srv.AuthorizationsFor("/api/v1/clients/"))
}

func TestPortalServer_AccessTokenExpiresWithClock(t *testing.T) {
	clock := NewMockClock(time.Time{})
	srv := NewPortalServer(PortalServerConfig{Clock: clock, AccessTokenLifetime: time.Minute})
	defer srv.Close()

	access, _ := srv.IssueTokens(DefaultUsername)
	assert.False(t, token.IsExpired(access, clock.Now()))

	clock.Advance(2 * time.Minute)
	assert.True(t, token.IsExpired(access, clock.Now()))

	resp := getWithToken(t, srv.URL()+"/v1/clients/", access)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPortalServer_Refresh(t *testing.T) {
	t.Run("without rotation", func(t *testing.T) {
		srv := NewPortalServer(PortalServerConfig{})
		defer srv.Close()

		_, refresh := srv.IssueTokens(DefaultUsername)
		resp, body := postJSON(t, srv.URL()+"/token/refresh/", map[string]string{"refresh": refresh})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, body["access"])
		assert.NotContains(t, body, "refresh")
		assert.Equal(t, 1, srv.RefreshCalls())
	})

	t.Run("with rotation the old token is invalidated", func(t *testing.T) {
		srv := NewPortalServer(PortalServerConfig{RotateRefreshTokens: true})
		defer srv.Close()

		_, refresh := srv.IssueTokens(DefaultUsername)
		resp, body := postJSON(t, srv.URL()+"/token/refresh/", map[string]string{"refresh": refresh})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, body["refresh"])
		assert.NotEqual(t, refresh, body["refresh"])

		resp, _ = postJSON(t, srv.URL()+"/token/refresh/", map[string]string{"refresh": refresh})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("simulated failure", func(t *testing.T) {
		srv := NewPortalServer(PortalServerConfig{})
		defer srv.Close()

		_, refresh := srv.IssueTokens(DefaultUsername)
		srv.SetRefreshFailure(http.StatusInternalServerError)
		resp, _ := postJSON(t, srv.URL()+"/token/refresh/", map[string]string{"refresh": refresh})
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("held refresh completes after release", func(t *testing.T) {
		srv := NewPortalServer(PortalServerConfig{})
		defer srv.Close()

		_, refresh := srv.IssueTokens(DefaultUsername)
		release := srv.HoldRefresh()

		done := make(chan int, 1)
		go func() {
			resp, _ := postJSON(t, srv.URL()+"/token/refresh/", map[string]string{"refresh": refresh})
			done <- resp.StatusCode
		}()

		require.Eventually(t, func() bool { return srv.RefreshCalls() == 1 }, time.Second, 5*time.Millisecond)
		select {
		case <-done:
			t.Fatal("refresh completed while held")
		case <-time.After(50 * time.Millisecond):
		}

		release()
		assert.Equal(t, http.StatusOK, <-done)
	})
}
