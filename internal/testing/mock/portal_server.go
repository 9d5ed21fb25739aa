package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Default fixtures.
const (
	DefaultUsername = "ops"
	DefaultPassword = "secret"
	DefaultEmail    = "ops@example.com"
)

// User is an account known to the mock portal.
type User struct {
	Password     string
	Email        string
	UserID       int64
	IsStaff      bool
	Organization string
}

// PortalServerConfig configures the mock portal API.
type PortalServerConfig struct {
	// Users maps usernames to accounts. Defaults to a single staff user
	// DefaultUsername / DefaultPassword.
	Users map[string]User

	// AccessTokenLifetime defaults to 5 minutes.
	AccessTokenLifetime time.Duration

	// RefreshTokenLifetime defaults to 24 hours.
	RefreshTokenLifetime time.Duration

	// RotateRefreshTokens makes /token/refresh/ return a new refresh token
	// and invalidate the old one.
	RotateRefreshTokens bool

	// Clock defaults to RealClock.
	Clock Clock
}

// RecordedRequest is a request observed by the server.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type session struct {
	username string
	user     User
	expires  time.Time
}

// PortalServer is an httptest-backed portal API.
type PortalServer struct {
	config PortalServerConfig
	clock  Clock
	server *httptest.Server

	mu             sync.Mutex
	accessTokens   map[string]session
	refreshTokens  map[string]session
	requests       []RecordedRequest
	loginCalls     int
	refreshCalls   int
	refreshFailure int
	refreshGate    chan struct{}
	lastRunPayload map[string]any
}

// NewPortalServer starts a mock portal. Call Close when done.
func NewPortalServer(cfg PortalServerConfig) *PortalServer {
	if cfg.Users == nil {
		cfg.Users = map[string]User{
			DefaultUsername: {Password: DefaultPassword, Email: DefaultEmail, UserID: 7, IsStaff: true},
		}
	}
	if cfg.AccessTokenLifetime == 0 {
		cfg.AccessTokenLifetime = 5 * time.Minute
	}
	if cfg.RefreshTokenLifetime == 0 {
		cfg.RefreshTokenLifetime = 24 * time.Hour
	}
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}

	s := &PortalServer{
		config:        cfg,
		clock:         clock,
		accessTokens:  make(map[string]session),
		refreshTokens: make(map[string]session),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token/", s.handleLogin)
	mux.HandleFunc("POST /api/token/refresh/", s.handleRefresh)
	mux.HandleFunc("GET /api/v1/clients/", s.protected(s.handleClients))
	mux.HandleFunc("GET /api/v1/user/environments", s.protected(s.handleEnvironments))
	mux.HandleFunc("GET /api/v1/user/current-environment/details/", s.protected(s.handleEnvironmentDetails))
	mux.HandleFunc("GET /api/v1/processes/", s.protected(s.handleProcesses))
	mux.HandleFunc("GET /api/v1/processes/{id}/lookup/{type}/", s.protected(s.handleLookup))
	mux.HandleFunc("POST /api/v1/processes/{id}/run/", s.protected(s.handleRun))

	s.server = httptest.NewServer(s.record(mux))
	return s
}

// URL returns the API base URL, ending in /api.
func (s *PortalServer) URL() string {
	return s.server.URL + "/api"
}

// Close shuts the server down and releases any held refresh.
func (s *PortalServer) Close() {
	s.mu.Lock()
	if s.refreshGate != nil {
		close(s.refreshGate)
		s.refreshGate = nil
	}
	s.mu.Unlock()
	s.server.Close()
}

// IssueTokens mints a valid token pair for username without going through
// /token/. It panics for unknown users.
func (s *PortalServer) IssueTokens(username string) (access, refresh string) {
	user, ok := s.config.Users[username]
	if !ok {
		panic(fmt.Sprintf("mock: unknown user %q", username))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	access = s.issueAccessLocked(username, user)
	refresh = s.issueRefreshLocked(username, user)
	return access, refresh
}

// ExpireAccessTokens revokes every access token issued so far.
func (s *PortalServer) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTokens = make(map[string]session)
}

// RevokeRefreshTokens revokes every refresh token issued so far.
func (s *PortalServer) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]session)
}

// SetRefreshFailure makes /token/refresh/ answer with status. Zero restores normal behaviour.
func (s *PortalServer) SetRefreshFailure(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFailure = status
}

// HoldRefresh blocks every /token/refresh/ call until the returned function is called.
func (s *PortalServer) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.refreshGate == gate {
				close(gate)
				s.refreshGate = nil
			}
			s.mu.Unlock()
		})
	}
}

// LoginCalls returns the number of /token/ calls.
func (s *PortalServer) LoginCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginCalls
}

// RefreshCalls returns the number of /token/refresh/ calls.
func (s *PortalServer) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// Requests returns a copy of every request seen, in arrival order.
func (s *PortalServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// AuthorizationsFor returns the Authorization headers sent to path, in arrival order.
func (s *PortalServer) AuthorizationsFor(path string) []string {
	var out []string
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r.Authorization)
		}
	}
	return out
}

// LastRunPayload returns the body of the last process run request.
func (s *PortalServer) LastRunPayload() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunPayload
}

func (s *PortalServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *PortalServer) issueAccessLocked(username string, user User) string {
	exp := s.clock.Now().Add(s.config.AccessTokenLifetime)
	tok := MintToken(TokenSpec{
		UserID:    user.UserID,
		Email:     user.Email,
		IsStaff:   user.IsStaff,
		TokenType: "access",
		IssuedAt:  s.clock.Now(),
		ExpiresAt: exp,
	})
	s.accessTokens[tok] = session{username: username, user: user, expires: exp}
	return tok
}

func (s *PortalServer) issueRefreshLocked(username string, user User) string {
	exp := s.clock.Now().Add(s.config.RefreshTokenLifetime)
	tok := MintToken(TokenSpec{
		UserID:    user.UserID,
		Email:     user.Email,
		TokenType: "refresh",
		IssuedAt:  s.clock.Now(),
		ExpiresAt: exp,
	})
	s.refreshTokens[tok] = session{username: username, user: user, expires: exp}
	return tok
}

func (s *PortalServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username     string `json:"username"`
		Password     string `json:"password"`
		Organization string `json:"organization"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginCalls++

	user, ok := s.config.Users[req.Username]
	if !ok || user.Password != req.Password || (user.Organization != "" && user.Organization != req.Organization) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "No active account found with the given credentials"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access":  s.issueAccessLocked(req.Username, user),
		"refresh": s.issueRefreshLocked(req.Username, user),
	})
}

func (s *PortalServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid request body"})
		return
	}

	s.mu.Lock()
	s.refreshCalls++
	gate := s.refreshGate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshFailure != 0 {
		writeJSON(w, s.refreshFailure, map[string]any{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}

	sess, ok := s.refreshTokens[req.Refresh]
	if !ok || s.clock.Now().After(sess.expires) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}

	resp := map[string]any{"access": s.issueAccessLocked(sess.username, sess.user)}
	if s.config.RotateRefreshTokens {
		delete(s.refreshTokens, req.Refresh)
		resp["refresh"] = s.issueRefreshLocked(sess.username, sess.user)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *PortalServer) protected(next func(http.ResponseWriter, *http.Request, User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			unauthorized(w, "invalid_request", "Authentication credentials were not provided.")
			return
		}

		s.mu.Lock()
		sess, ok := s.accessTokens[raw]
		s.mu.Unlock()

		if !ok || s.clock.Now().After(sess.expires) {
			unauthorized(w, "invalid_token", "Given token not valid for any token type")
			return
		}
		next(w, r, sess.user)
	}
}

func unauthorized(w http.ResponseWriter, code, detail string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="portal", error=%q, error_description=%q`, code, detail))
	writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": detail, "code": "token_not_valid"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func environmentID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.URL.Query().Get("client_environment_id"))
	return id, err == nil
}

func (s *PortalServer) handleClients(w http.ResponseWriter, _ *http.Request, _ User) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 1, "name": "Acme Schools"},
		{"id": 2, "name": "Globex Academy"},
	})
}

func (s *PortalServer) handleEnvironments(w http.ResponseWriter, _ *http.Request, _ User) {
	writeJSON(w, http.StatusOK, map[string]any{
		"environments": []map[string]any{
			{
				"id": 10, "client": 1, "client_name": "Acme Schools",
				"environment": 1, "environment_name": "Production", "name": "Acme Production",
				"is_active": true, "credentials": []any{}, "credentials_count": 1,
			},
			{
				"id": 11, "client": 1, "client_name": "Acme Schools",
				"environment": 2, "environment_name": "Staging", "name": "Acme Staging",
				"is_active": false, "credentials": []any{}, "credentials_count": 0,
			},
		},
		"count":                              2,
		"current_environment_ids":            []int{10},
		"current_environment_client_id":      1,
		"current_environment_client_name":    "Acme Schools",
		"current_environment_type_id":        1,
		"current_environment_type_name":      "Production",
		"current_environment_credential_ids": []int{100},
	})
}

func (s *PortalServer) handleEnvironmentDetails(w http.ResponseWriter, _ *http.Request, user User) {
	if !user.IsStaff {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "You do not have permission to perform this action."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"environment": map[string]any{
			"id": 10, "name": "Acme Production", "client_name": "Acme Schools", "client_id": 1,
			"environment_name": "Production", "environment_id": 1, "is_active": true,
		},
		"credentials": []map[string]any{
			{
				"id": 100, "name": "SIS API", "credential_type_name": "OAuth Client", "credential_type_id": 3,
				"values":     map[string]any{"client_id": "sis", "client_secret": "***"},
				"created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-02-01T00:00:00Z",
			},
		},
		"credentials_count": 1,
	})
}

func (s *PortalServer) handleProcesses(w http.ResponseWriter, r *http.Request, _ User) {
	envID, ok := environmentID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "client_environment_id is required"})
		return
	}
	writeJSON(w, http.StatusOK, []map[string]any{
		{
			"id": 5, "name": "Student Roster", "credential_type_name": "OAuth Client",
			"execution_mode_name": "sync", "domain_logic": "roster",
			"default_payload": map[string]any{
				"_internal":     map[string]any{"client_environment_id": envID},
				"_external_api": map[string]any{"filters": []any{}, "paging": map[string]any{"pageSize": 2000, "pageNumber": 1}},
				"_metadata": map[string]any{
					"available_filters": []map[string]any{
						{
							"path": "AcademicYear", "label": "Academic year", "type": "select", "filter_type": 0, "required": true,
							"values_source": map[string]any{"type": "lookup", "method": "GET", "endpoint": "AcademicYear", "display_field": "label", "value_field": "value"},
						},
					},
					"available_sorts": []map[string]any{{"path": "LastName", "label": "Last name"}},
					"paging_config":   map[string]any{"max_page_size": 2000, "default_page_size": 2000},
				},
			},
			"output_columns_metadata": []map[string]any{
				{"field": "FirstName", "label": "First name", "type": "string", "sortable": true, "filterable": true},
				{"field": "LastName", "label": "Last name", "type": "string", "sortable": true, "filterable": true},
			},
			"created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z",
		},
	})
}

func (s *PortalServer) handleLookup(w http.ResponseWriter, r *http.Request, _ User) {
	if _, ok := environmentID(r); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "client_environment_id is required"})
		return
	}
	lookupType := r.PathValue("type")
	writeJSON(w, http.StatusOK, map[string]any{
		"lookup_type": lookupType,
		"count":       2,
		"items": []map[string]any{
			{"value": 2024, "label": "2024/25"},
			{"value": 2025, "label": "2025/26"},
		},
	})
}

func (s *PortalServer) handleRun(w http.ResponseWriter, r *http.Request, _ User) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid request body"})
		return
	}

	s.mu.Lock()
	s.lastRunPayload = payload
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Process executed",
		"job_id":          99,
		"process_name":    "Student Roster",
		"environment":     "Acme Production",
		"credential_used": "SIS API",
		"status":          "completed",
		"data": []map[string]any{
			{"FirstName": "Ada", "LastName": "Lovelace"},
			{"FirstName": "Alan", "LastName": "Turing"},
		},
	})
}
