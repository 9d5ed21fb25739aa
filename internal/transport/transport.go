package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"portalctl/internal/refresh"
	"portalctl/pkg/logging"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// TokenPaths are the token endpoints relative to the API base URL. A 401 from
// them is returned to the caller as is: there is no session to recover.
var TokenPaths = []string{"/token/", "/token/refresh/"}

// ErrReplayUnauthorized is the reason for session termination when a request
// replayed with a freshly refreshed token is rejected again.
var ErrReplayUnauthorized = errors.New("request still unauthorized after token refresh")

// Session supplies the current access token and can end the session.
type Session interface {
	AccessToken(ctx context.Context) (string, error)
	OnSessionEnd(ctx context.Context, reason string) error
}

// Refresher returns a fresh access token for a rejected one.
type Refresher interface {
	RequestRefresh(ctx context.Context, staleAccessToken string) (string, error)
}

// Transport is an http.RoundTripper that authenticates requests and recovers
// from expired access tokens.
type Transport struct {
	base      http.RoundTripper
	session   Session
	refresher Refresher
	excluded  map[string]bool
}

// Option configures a Transport.
type Option func(*Transport)

// WithBase sets the underlying RoundTripper. Defaults to http.DefaultTransport.
func WithBase(base http.RoundTripper) Option {
	return func(t *Transport) {
		if base != nil {
			t.base = base
		}
	}
}

// WithBaseURL anchors the token endpoints under the API base URL, so only
// baseURL+"/token/" and baseURL+"/token/refresh/" skip recovery.
func WithBaseURL(baseURL string) Option {
	return func(t *Transport) {
		u, err := url.Parse(baseURL)
		if err != nil {
			logging.Warn("Transport", "Ignoring unparsable base URL %q: %v", baseURL, err)
			return
		}
		t.excluded = excludedPaths(u.Path)
	}
}

func excludedPaths(basePath string) map[string]bool {
	basePath = strings.TrimSuffix(basePath, "/")
	paths := make(map[string]bool, len(TokenPaths))
	for _, p := range TokenPaths {
		paths[basePath+p] = true
	}
	return paths
}

// New creates a Transport.
func New(session Session, refresher Refresher, opts ...Option) *Transport {
	t := &Transport{
		base:      http.DefaultTransport,
		session:   session,
		refresher: refresher,
		excluded:  excludedPaths(""),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	accessToken, err := t.session.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}

	out, err := prepare(req, getBody, requestID, accessToken)
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || t.isExcluded(req.URL.Path) {
		return resp, nil
	}

	challenge := ChallengeFromResponse(resp)
	drain(resp)
	logging.Debug("Transport", "%s %s rejected with 401 [%s], challenge %s", req.Method, req.URL.Path, requestID, challenge)

	newToken, err := t.refresher.RequestRefresh(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	replay, err := prepare(req, getBody, requestID, newToken)
	if err != nil {
		return nil, err
	}

	resp, err = t.base.RoundTrip(replay)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		logging.Debug("Transport", "%s %s replayed with refreshed token [%s]: %d", req.Method, req.URL.Path, requestID, resp.StatusCode)
		return resp, nil
	}

	challenge = ChallengeFromResponse(resp)
	drain(resp)
	logging.Warn("Transport", "%s %s still unauthorized after refresh [%s], ending session", req.Method, req.URL.Path, requestID)

	if err := t.session.OnSessionEnd(context.WithoutCancel(ctx), "replay_unauthorized"); err != nil {
		logging.Error("Transport", err, "Failed to end session")
	}

	reason := ErrReplayUnauthorized
	if challenge != nil && challenge.ErrorDescription != "" {
		reason = fmt.Errorf("%w: %s", ErrReplayUnauthorized, challenge.ErrorDescription)
	}
	return nil, &refresh.SessionTerminatedError{Reason: reason}
}

func (t *Transport) isExcluded(path string) bool {
	return t.excluded[path]
}

// replayableBody returns a function yielding a fresh copy of the request body,
// or nil when the request has none. The caller's body is closed either way.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}

	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

// prepare clones req with a fresh body and the given credentials.
func prepare(req *http.Request, getBody func() (io.ReadCloser, error), requestID, accessToken string) (*http.Request, error) {
	out := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		out.Body = body
		out.GetBody = getBody
	}

	out.Header.Set(RequestIDHeader, requestID)
	out.Header.Del("Authorization")
	if accessToken != "" {
		(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(out)
	}
	return out, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
