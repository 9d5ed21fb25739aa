package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"portalctl/internal/credentials"
	"portalctl/pkg/logging"
	"portalctl/pkg/token"
)

// ErrNotAuthenticated is returned by Token when no access token is stored.
var ErrNotAuthenticated = errors.New("not authenticated")

// Session is the single authentication state of the process.
type Session struct {
	store credentials.Store
	now   func() time.Time

	// opMu serialises store writes with the snapshot they publish.
	opMu sync.Mutex
	snap atomic.Pointer[Snapshot]

	watchMu  sync.Mutex
	watchers map[uint64]chan Snapshot
	nextID   uint64
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session backed by store. The session reports StateUnknown until Initialize runs.
func New(store credentials.Store, opts ...Option) *Session {
	s := &Session{
		store:    store,
		now:      time.Now,
		watchers: make(map[uint64]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap.Store(&Snapshot{State: StateUnknown})
	return s
}

// Initialize derives the session from the stored credentials. A store that
// cannot be read, or an access token that is missing, malformed or expired,
// leaves the session unauthenticated; stored credentials are kept so a later
// refresh can still use them.
func (s *Session) Initialize(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	creds, err := s.store.Load(ctx)
	if err != nil {
		logging.Warn("Session", "Could not read stored credentials, starting unauthenticated: %v", err)
		s.publish(Snapshot{State: StateUnauthenticated})
		return nil
	}
	if creds == nil || creds.AccessToken == "" {
		logging.Debug("Session", "No stored access token")
		s.publish(Snapshot{State: StateUnauthenticated})
		return nil
	}
	if token.IsExpired(creds.AccessToken, s.now()) {
		logging.Debug("Session", "Stored access token is expired or malformed (refresh token present: %t)", creds.RefreshToken != "")
		s.publish(Snapshot{State: StateUnauthenticated})
		return nil
	}

	claims, _ := token.Decode(creds.AccessToken)
	s.publish(Snapshot{State: StateAuthenticated, Identity: claims})
	logging.Debug("Session", "Restored session for %s", claims.Identity())
	return nil
}

// OnLoginSuccess persists a freshly issued token pair and marks the session authenticated.
func (s *Session) OnLoginSuccess(ctx context.Context, creds credentials.Credentials) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.store.Save(ctx, creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	snap := s.snapshotFor(creds.AccessToken)
	s.publish(snap)

	logging.Audit(logging.AuditEvent{
		Event:   "login",
		Outcome: "success",
		Subject: snap.Identity.Identity(),
	})
	return nil
}

// OnRefreshSuccess stores a refreshed access token. The stored refresh token is
// kept unless the server rotated it, in which case both are written together.
func (s *Session) OnRefreshSuccess(ctx context.Context, accessToken, refreshToken string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if refreshToken == "" {
		current, err := s.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load credentials: %w", err)
		}
		if current != nil {
			refreshToken = current.RefreshToken
		}
	}

	if err := s.store.Save(ctx, credentials.Credentials{AccessToken: accessToken, RefreshToken: refreshToken}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	snap := s.snapshotFor(accessToken)
	s.publish(snap)

	logging.Audit(logging.AuditEvent{
		Event:   "token_refreshed",
		Outcome: "success",
		Subject: snap.Identity.Identity(),
	})
	return nil
}

// OnSessionEnd clears the stored credentials and marks the session unauthenticated.
// The snapshot is reset even when clearing the store fails.
func (s *Session) OnSessionEnd(ctx context.Context, reason string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	subject := s.Snapshot().Identity.Identity()
	err := s.store.Clear(ctx)
	s.publish(Snapshot{State: StateUnauthenticated})

	ev := logging.AuditEvent{
		Event:   "session_ended",
		Outcome: "success",
		Subject: subject,
		Reason:  reason,
	}
	if err != nil {
		ev.Outcome = "failure"
		ev.Reason = fmt.Sprintf("%s: %v", reason, err)
	}
	logging.Audit(ev)

	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// snapshotFor builds the snapshot for a newly installed access token. A token
// that cannot be decoded still authenticates the session, without identity.
func (s *Session) snapshotFor(accessToken string) Snapshot {
	claims, err := token.Decode(accessToken)
	if err != nil {
		logging.Warn("Session", "Issued access token could not be decoded: %v", err)
		return Snapshot{State: StateAuthenticated}
	}
	return Snapshot{State: StateAuthenticated, Identity: claims}
}

// AccessToken returns the stored access token, or "" when none is stored.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	creds, err := s.store.Load(ctx)
	if err != nil || creds == nil {
		return "", err
	}
	return creds.AccessToken, nil
}

// RefreshToken returns the stored refresh token, or "" when none is stored.
func (s *Session) RefreshToken(ctx context.Context) (string, error) {
	creds, err := s.store.Load(ctx)
	if err != nil || creds == nil {
		return "", err
	}
	return creds.RefreshToken, nil
}

// HasCredentials reports whether anything is stored that a request could use,
// either directly or after a refresh.
func (s *Session) HasCredentials(ctx context.Context) (bool, error) {
	creds, err := s.store.Load(ctx)
	if err != nil {
		return false, err
	}
	return creds != nil && !creds.IsEmpty(), nil
}

// Token implements oauth2.TokenSource.
func (s *Session) Token() (*oauth2.Token, error) {
	creds, err := s.store.Load(context.Background())
	if err != nil {
		return nil, err
	}
	if creds == nil || creds.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	tok := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: creds.RefreshToken,
	}
	if exp, ok := token.ExpiresAt(creds.AccessToken); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

// Now returns the session's notion of the current time.
func (s *Session) Now() time.Time {
	return s.now()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	return *s.snap.Load()
}

// IsAuthenticated reports whether the session holds a non-expired access token
// as of the last state change.
func (s *Session) IsAuthenticated() bool {
	return s.Snapshot().IsAuthenticated()
}

// Identity returns the claims of the current access token, or nil.
func (s *Session) Identity() *token.Claims {
	return s.Snapshot().Identity
}

// IsStaff reports whether the authenticated account carries the is_staff flag.
func (s *Session) IsStaff() bool {
	id := s.Identity()
	return id != nil && id.IsStaff
}

// Watch returns a channel that yields the current snapshot followed by every
// change until ctx is done. A slow receiver only sees the latest value.
func (s *Session) Watch(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.watchMu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	ch <- s.Snapshot()
	s.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		s.watchMu.Lock()
		delete(s.watchers, id)
		close(ch)
		s.watchMu.Unlock()
	}()

	return ch
}

func (s *Session) publish(snap Snapshot) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	s.snap.Store(&snap)
	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
