package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"portalctl/internal/credentials"
	"portalctl/internal/refresh"
	"portalctl/pkg/logging"
	pstrings "portalctl/pkg/strings"
)

// DefaultTimeout bounds every API call.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 4 << 10

// Client calls the portal API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokenClient *http.Client
	userAgent   string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the authenticated client used for every non-token endpoint.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTokenHTTPClient sets the unauthenticated client used for /token/ and /token/refresh/.
func WithTokenHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.tokenClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client for the API rooted at baseURL, e.g. http://localhost:8000/api.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		tokenClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:   "portalctl",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges a username and password for a token pair.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*credentials.Credentials, error) {
	var resp tokenResponse
	if err := c.do(ctx, c.tokenClient, http.MethodPost, "/token/", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Access == "" || resp.Refresh == "" {
		return nil, &DecodeError{Endpoint: "/token/", Reason: errors.New("response is missing access or refresh token")}
	}
	return &credentials.Credentials{AccessToken: resp.Access, RefreshToken: resp.Refresh}, nil
}

// RefreshToken exchanges a refresh token for a new access token. The
// returned RefreshToken is empty unless the server rotated it.
// It implements refresh.Refresher.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*credentials.Credentials, error) {
	var resp tokenResponse
	body := map[string]string{"refresh": refreshToken}
	if err := c.do(ctx, c.tokenClient, http.MethodPost, "/token/refresh/", nil, body, &resp); err != nil {
		return nil, err
	}
	return &credentials.Credentials{AccessToken: resp.Access, RefreshToken: resp.Refresh}, nil
}

// ListClients returns the clients visible to the user.
func (c *Client) ListClients(ctx context.Context) ([]Customer, error) {
	var out []Customer
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/v1/clients/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserEnvironments returns the environments the user can access.
func (c *Client) UserEnvironments(ctx context.Context) (*EnvironmentsResponse, error) {
	var out EnvironmentsResponse
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/v1/user/environments", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnvironmentDetails returns the current environment with its credentials.
// Only staff accounts may call it.
func (c *Client) EnvironmentDetails(ctx context.Context) (*EnvironmentDetailsResponse, error) {
	var out EnvironmentDetailsResponse
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/v1/user/current-environment/details/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessesByEnvironment lists the processes available in a client environment.
func (c *Client) ProcessesByEnvironment(ctx context.Context, clientEnvironmentID int) ([]Process, error) {
	var out []Process
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/v1/processes/", environmentQuery(clientEnvironmentID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FilterValues returns the allowed values for a process filter.
func (c *Client) FilterValues(ctx context.Context, processID int, lookupType string, clientEnvironmentID int) (*LookupResponse, error) {
	path := fmt.Sprintf("/v1/processes/%d/lookup/%s/", processID, url.PathEscape(lookupType))
	var out LookupResponse
	if err := c.do(ctx, c.httpClient, http.MethodGet, path, environmentQuery(clientEnvironmentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecuteProcess runs a process with the given filters and returns the first page of results.
func (c *Client) ExecuteProcess(ctx context.Context, processID, clientEnvironmentID int, filters []ProcessFilter) (*ProcessExecutionResponse, error) {
	var payload processExecutionPayload
	payload.Internal.ClientEnvironmentID = clientEnvironmentID
	payload.ExternalAPI.Filters = filters
	if payload.ExternalAPI.Filters == nil {
		payload.ExternalAPI.Filters = []ProcessFilter{}
	}
	payload.ExternalAPI.Paging = Paging{PageSize: DefaultPageSize, PageNumber: 1}

	path := fmt.Sprintf("/v1/processes/%d/run/", processID)
	var out ProcessExecutionResponse
	if err := c.do(ctx, c.httpClient, http.MethodPost, path, nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func environmentQuery(id int) url.Values {
	return url.Values{"client_environment_id": {strconv.Itoa(id)}}
}

// do performs a JSON request and decodes a 2xx response into out.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, in, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request for %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return classifyDoError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	logging.Debug("PortalClient", "%s %s -> %d in %s", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(method, path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Endpoint: path, Reason: err}
	}
	return nil
}

// classifyDoError keeps terminal session errors and caller cancellation
// recognisable and wraps everything else as a TransportError.
func classifyDoError(ctx context.Context, method, path string, err error) error {
	var terminated *refresh.SessionTerminatedError
	if errors.As(err, &terminated) {
		return terminated
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s %s: %w", method, path, ctxErr)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return &TransportError{Method: method, Endpoint: path, Reason: err}
}

func newAPIError(method, path string, resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{
		Method:     method,
		Endpoint:   path,
		StatusCode: resp.StatusCode,
		Body:       pstrings.Excerpt(data),
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &detail) == nil {
		apiErr.Detail = detail.Detail
	}
	return apiErr
}
