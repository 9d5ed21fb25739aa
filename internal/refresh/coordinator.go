package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"portalctl/internal/credentials"
	"portalctl/pkg/logging"
	"portalctl/pkg/token"
)

// DefaultTimeout bounds a single refresh call.
const DefaultTimeout = 30 * time.Second

// refreshKey is the only singleflight key; there is one session per process.
const refreshKey = "refresh"

// State is the coordinator's refresh state.
type State int

const (
	// StateIdle means no refresh is in flight.
	StateIdle State = iota

	// StateInFlight means a refresh call is outstanding.
	StateInFlight
)

// String returns the string representation of the state.
func (s State) String() string {
	if s == StateInFlight {
		return "in_flight"
	}
	return "idle"
}

// Refresher exchanges a refresh token for new credentials. The returned
// RefreshToken is empty unless the server rotated it.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*credentials.Credentials, error)
}

// Session is the part of the session state the coordinator reads and mutates.
type Session interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	OnRefreshSuccess(ctx context.Context, accessToken, refreshToken string) error
	OnSessionEnd(ctx context.Context, reason string) error
	Now() time.Time
}

// Coordinator runs at most one refresh at a time.
type Coordinator struct {
	session   Session
	refresher Refresher
	timeout   time.Duration

	group    singleflight.Group
	inFlight atomic.Bool
	cycles   atomic.Int64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout bounds each refresh call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCoordinator creates a coordinator for session using refresher for the network call.
func NewCoordinator(session Session, refresher Refresher, opts ...Option) *Coordinator {
	c := &Coordinator{
		session:   session,
		refresher: refresher,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports whether a refresh is currently in flight.
func (c *Coordinator) State() State {
	if c.inFlight.Load() {
		return StateInFlight
	}
	return StateIdle
}

// Cycles returns the number of refresh cycles run so far, including cycles
// that failed before reaching the network.
func (c *Coordinator) Cycles() int64 {
	return c.cycles.Load()
}

// RequestRefresh returns a fresh access token.
//
// staleAccessToken is the token the caller was rejected with. If another
// caller has already installed a different, unexpired token it is returned
// without a new refresh. Otherwise the caller starts a refresh, or joins the
// one in flight. On failure the session has been ended and the error is a
// *SessionTerminatedError. If ctx is done first, ctx.Err() is returned and the
// refresh carries on for the remaining callers.
func (c *Coordinator) RequestRefresh(ctx context.Context, staleAccessToken string) (string, error) {
	ch := c.group.DoChan(refreshKey, func() (interface{}, error) {
		return c.run(ctx, staleAccessToken)
	})

	select {
	case <-ctx.Done():
		logging.Debug("RefreshCoordinator", "Caller stopped waiting for refresh: %v", ctx.Err())
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// run is executed by exactly one caller per cycle.
func (c *Coordinator) run(callerCtx context.Context, staleAccessToken string) (string, error) {
	c.inFlight.Store(true)
	defer c.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(callerCtx), c.timeout)
	defer cancel()

	if current, ok := c.freshToken(ctx, staleAccessToken); ok {
		logging.Debug("RefreshCoordinator", "Access token already replaced, skipping refresh")
		return current, nil
	}

	cycle := c.cycles.Add(1)

	refreshToken, err := c.session.RefreshToken(ctx)
	if err != nil {
		return "", c.fail(ctx, cycle, fmt.Errorf("failed to read refresh token: %w", err))
	}
	if refreshToken == "" {
		return "", c.fail(ctx, cycle, ErrNoRefreshToken)
	}

	logging.Debug("RefreshCoordinator", "Starting refresh cycle %d", cycle)
	start := time.Now()

	creds, err := c.refresher.RefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("refresh timed out after %s: %w", c.timeout, err)
		}
		return "", c.fail(ctx, cycle, err)
	}
	if creds == nil || creds.AccessToken == "" {
		return "", c.fail(ctx, cycle, errors.New("refresh response carried no access token"))
	}

	if err := c.session.OnRefreshSuccess(ctx, creds.AccessToken, creds.RefreshToken); err != nil {
		return "", c.fail(ctx, cycle, err)
	}

	logging.Info("RefreshCoordinator", "Refresh cycle %d succeeded in %s (refresh token rotated: %t)",
		cycle, time.Since(start).Round(time.Millisecond), creds.RefreshToken != "")
	return creds.AccessToken, nil
}

// freshToken reports the stored access token when it differs from the
// caller's stale token and has not expired.
func (c *Coordinator) freshToken(ctx context.Context, staleAccessToken string) (string, bool) {
	if staleAccessToken == "" {
		return "", false
	}
	current, err := c.session.AccessToken(ctx)
	if err != nil || current == "" || current == staleAccessToken {
		return "", false
	}
	if token.IsExpired(current, c.session.Now()) {
		return "", false
	}
	return current, true
}

func (c *Coordinator) fail(ctx context.Context, cycle int64, reason error) error {
	logging.Warn("RefreshCoordinator", "Refresh cycle %d failed, ending session: %v", cycle, reason)

	// The cycle's deadline may already have passed.
	endCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if err := c.session.OnSessionEnd(endCtx, "refresh_failed"); err != nil {
		logging.Error("RefreshCoordinator", err, "Failed to end session after refresh failure")
	}
	return &SessionTerminatedError{Reason: reason}
}
