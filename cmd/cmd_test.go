package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalctl/internal/cli"
	"portalctl/internal/config"
	"portalctl/internal/testing/mock"
)

// harness runs portalctl commands against a mock portal with credentials
// stored in a temporary config directory.
type harness struct {
	t         *testing.T
	srv       *mock.PortalServer
	configDir string
}

func newHarness(t *testing.T, cfg mock.PortalServerConfig) *harness {
	t.Helper()
	for _, key := range []string{config.EnvAPIURL, config.EnvStorageBackend, config.EnvRedisAddr, config.EnvLogLevel} {
		t.Setenv(key, "")
	}

	srv := mock.NewPortalServer(cfg)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	yaml := "api:\n  baseURL: " + srv.URL() + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0600))
	return &harness{t: t, srv: srv, configDir: dir}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (r result) exitCode() int {
	return cli.ExitCode(r.err)
}

func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config-path", h.configDir}, args...))
	err := root.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func (h *harness) login() {
	h.t.Helper()
	res := h.run("", "auth", "login", "--username", mock.DefaultUsername, "--password", mock.DefaultPassword)
	require.NoError(h.t, res.err, res.stderr)
}

func TestAuthLogin(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})

	res := h.run("", "auth", "login", "-u", mock.DefaultUsername, "-p", mock.DefaultPassword)
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Logged in")
	assert.Contains(t, res.stderr, mock.DefaultEmail)
	assert.FileExists(t, filepath.Join(h.configDir, "credentials.json"))
	assert.Equal(t, 1, h.srv.LoginCalls())
}

func TestAuthLogin_PasswordFromStdin(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})

	res := h.run(mock.DefaultPassword+"\n", "auth", "login", "-u", mock.DefaultUsername, "--password-stdin")
	require.NoError(t, res.err)
	assert.Equal(t, 1, h.srv.LoginCalls())
}

func TestAuthLogin_WrongPassword(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})

	res := h.run("", "auth", "login", "-u", mock.DefaultUsername, "-p", "nope")
	require.Error(t, res.err)
	assert.Equal(t, cli.ExitLoginFailed, res.exitCode())
	assert.NoFileExists(t, filepath.Join(h.configDir, "credentials.json"))
}

func TestAuthLogin_NoPassword(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})

	res := h.run("", "auth", "login", "-u", mock.DefaultUsername)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "no password given")
	assert.Zero(t, h.srv.LoginCalls())
}

func TestAuthStatus(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})

	res := h.run("", "auth", "status", "-o", "json")
	require.NoError(t, res.err)
	var before authStatus
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &before))
	assert.Equal(t, "unauthenticated", before.State)
	assert.False(t, before.HasRefreshToken)

	h.login()

	res = h.run("", "auth", "status", "-o", "json")
	require.NoError(t, res.err)
	var after authStatus
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &after))
	assert.Equal(t, "authenticated", after.State)
	assert.Equal(t, mock.DefaultEmail, after.Identity)
	assert.True(t, after.Staff)
	assert.True(t, after.HasRefreshToken)
	require.NotNil(t, after.ExpiresAt)
	require.NotNil(t, after.RefreshExpiresAt)
	assert.Equal(t, config.StorageBackendFile, after.Storage)

	res = h.run("", "auth", "status")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Endpoint:  "+h.srv.URL())
	assert.Contains(t, res.stdout, "Authenticated")
	assert.Contains(t, res.stdout, mock.DefaultEmail)
}

func TestAuthWhoami(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})

	res := h.run("", "auth", "whoami")
	assert.Equal(t, cli.ExitAuthRequired, res.exitCode())

	h.login()
	res = h.run("", "auth", "whoami", "-o", "json")
	require.NoError(t, res.err)
	var who whoami
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &who))
	assert.Equal(t, mock.DefaultEmail, who.Identity)
	assert.Equal(t, int64(7), who.UserID)
	assert.True(t, who.Staff)
}

func TestAuthRefresh(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})
	h.login()

	res := h.run("", "auth", "refresh")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Token refreshed")
	assert.Equal(t, 1, h.srv.RefreshCalls())
}

func TestAuthRefresh_Rejected(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})
	h.login()
	h.srv.RevokeRefreshTokens()

	res := h.run("", "auth", "refresh")
	assert.Equal(t, cli.ExitAuthRequired, res.exitCode())
	assert.ErrorIs(t, res.err, &cli.AuthExpiredError{})
	assert.NoFileExists(t, filepath.Join(h.configDir, "credentials.json"))
}

func TestAuthLogout(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})
	h.login()

	res := h.run("", "auth", "logout")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Logged out")
	assert.NoFileExists(t, filepath.Join(h.configDir, "credentials.json"))

	res = h.run("", "auth", "logout")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "No stored credentials")
}

func TestCorruptCredentialsFile(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})
	credsPath := filepath.Join(h.configDir, "credentials.json")
	require.NoError(t, os.WriteFile(credsPath, []byte("{not json"), 0600))

	res := h.run("", "auth", "status", "-o", "json")
	require.NoError(t, res.err)
	var status authStatus
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &status))
	assert.Equal(t, "unauthenticated", status.State)

	res = h.run("", "auth", "login", "-u", mock.DefaultUsername, "-p", mock.DefaultPassword)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, cli.ExitOK, res.exitCode())

	res = h.run("", "get", "clients")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Acme Schools")

	require.NoError(t, os.WriteFile(credsPath, []byte("{not json"), 0600))
	res = h.run("", "auth", "logout")
	require.NoError(t, res.err)
	assert.NoFileExists(t, credsPath)
}

func TestGetClients(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})
	h.login()

	res := h.run("", "get", "clients")
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "NAME"}, strings.Fields(lines[0]))
	assert.Contains(t, lines[1], "Acme Schools")

	res = h.run("", "get", "clients", "-o", "yaml")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "name: Acme Schools")

	res = h.run("", "get", "clients", "-o", "xml")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "unsupported output format")
}

func TestGetClients_NotLoggedIn(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})

	res := h.run("", "get", "clients")
	require.Error(t, res.err)
	assert.Equal(t, cli.ExitAuthRequired, res.exitCode())
	assert.ErrorIs(t, res.err, &cli.AuthRequiredError{})
	assert.Zero(t, h.srv.RefreshCalls(), "nothing to refresh with")
}

func TestGetClients_RefreshesExpiredToken(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{RotateRefreshTokens: true})
	h.login()
	h.srv.ExpireAccessTokens()

	res := h.run("", "get", "clients", "--no-headers")
	require.NoError(t, res.err)
	assert.Equal(t, 1, h.srv.RefreshCalls())
	assert.NotContains(t, res.stdout, "NAME")

	// The rotated pair was persisted, so the next run needs no refresh.
	res = h.run("", "get", "clients")
	require.NoError(t, res.err)
	assert.Equal(t, 1, h.srv.RefreshCalls())
}

func TestGetClients_SessionTerminated(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})
	h.login()
	h.srv.ExpireAccessTokens()
	h.srv.RevokeRefreshTokens()

	res := h.run("", "get", "clients")
	require.Error(t, res.err)
	assert.Equal(t, cli.ExitAuthRequired, res.exitCode())
	assert.Contains(t, res.err.Error(), "portalctl auth login")

	res = h.run("", "auth", "status", "-o", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"state": "unauthenticated"`)
	assert.Contains(t, res.stdout, `"hasRefreshToken": false`)
}

func TestGetEnvironments(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})
	h.login()

	res := h.run("", "get", "environments")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "CURRENT")
	assert.Contains(t, res.stdout, "*")

	res = h.run("", "get", "environments", "--details", "-o", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"credentials_count"`)
}

func TestGetEnvironments_DetailsRequireStaff(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{Users: map[string]mock.User{
		"analyst": {Password: "pw", Email: "analyst@example.com", UserID: 9},
	}})
	res := h.run("", "auth", "login", "-u", "analyst", "-p", "pw")
	require.NoError(t, res.err)

	res = h.run("", "get", "environments", "--details")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "staff")
	assert.Empty(t, h.srv.AuthorizationsFor("/api/v1/user/current-environment/details/"))
}

func TestGetProcesses(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})
	h.login()

	res := h.run("", "get", "processes", "--environment", "10")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Student Roster")
	assert.Contains(t, res.stdout, "AcademicYear*")

	res = h.run("", "get", "processes")
	require.Error(t, res.err, "environment is required")
}

func TestProcessLookup(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})
	h.login()

	res := h.run("", "process", "lookup", "5", "AcademicYear", "-e", "10")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "2024/25")
	assert.Contains(t, res.stdout, "2025/26")

	res = h.run("", "process", "lookup", "five", "AcademicYear", "-e", "10")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid process id")
}

func TestProcessRun(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})
	h.login()

	res := h.run("", "-q", "process", "run", "5", "-e", "10", "--filter", "AcademicYear=2024")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "FIRST NAME")
	assert.Contains(t, res.stdout, "Lovelace")

	payload := h.srv.LastRunPayload()
	require.NotNil(t, payload)
	external := payload["_external_api"].(map[string]any)
	filters := external["filters"].([]any)
	require.Len(t, filters, 1)
	filter := filters[0].(map[string]any)
	assert.Equal(t, "AcademicYear", filter["path"])
	assert.Equal(t, float64(2024), filter["Value"])
	assert.Equal(t, float64(0), filter["type"])
}

func TestProcessRun_FilterErrors(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})
	h.login()

	res := h.run("", "-q", "process", "run", "5", "-e", "10")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "missing required filter(s): AcademicYear")

	res = h.run("", "-q", "process", "run", "5", "-e", "10", "-f", "Term=1", "-f", "AcademicYear=2024")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `no filter "Term"`)

	res = h.run("", "-q", "process", "run", "5", "-e", "10", "-f", "AcademicYear")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "expected path=value")

	res = h.run("", "-q", "process", "run", "6", "-e", "10")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "process 6 not found")

	assert.Nil(t, h.srv.LastRunPayload())
}

func TestVersion(t *testing.T) {
	original := GetVersion()
	defer SetVersion(original)
	SetVersion("1.2.3-test")

	h := newHarness(t, mock.PortalServerConfig{})
	res := h.run("", "version")
	require.NoError(t, res.err)
	assert.Equal(t, "portalctl version 1.2.3-test\n", res.stdout)

	res = h.run("", "--version")
	require.NoError(t, res.err)
	assert.Equal(t, "portalctl version 1.2.3-test\n", res.stdout)
}

func TestInvalidConfigReport(t *testing.T) {
	h := newHarness(t, mock.PortalServerConfig{})
	bad := "storage:\n  backend: etcd\nlogging:\n  level: loud\n"
	require.NoError(t, os.WriteFile(filepath.Join(h.configDir, "config.yaml"), []byte(bad), 0600))

	res := h.run("", "get", "clients")
	require.Error(t, res.err)
	assert.Equal(t, cli.ExitFailure, res.exitCode())
	assert.Contains(t, res.stderr, "Detailed Configuration Error Report (2 errors)")
	assert.Contains(t, res.stderr, "storage.backend")
	assert.Equal(t, 0, h.srv.LoginCalls())
}
