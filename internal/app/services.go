package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"portalctl/internal/config"
	"portalctl/internal/credentials"
	"portalctl/internal/portal"
	"portalctl/internal/refresh"
	"portalctl/internal/session"
	"portalctl/internal/transport"
	"portalctl/pkg/logging"
)

// Services holds the components built during bootstrap.
type Services struct {
	// Config is the effective configuration after defaults and overrides.
	Config config.PortalConfig

	// Store persists the token pair.
	Store credentials.Store

	// Session is the single source of truth for authentication state.
	Session *session.Session

	// Coordinator runs at most one token refresh at a time.
	Coordinator *refresh.Coordinator

	// Client calls the portal API through the authenticating transport.
	Client *portal.Client

	closers []func() error
}

// InitializeServices builds the credential store, session, refresh
// coordinator and portal client, then loads stored credentials into the
// session. On error everything opened so far is closed again.
func InitializeServices(ctx context.Context, cfg config.PortalConfig, userAgent string) (*Services, error) {
	s := &Services{Config: cfg}

	store, closeStore, err := NewStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.Store = store
	if closeStore != nil {
		s.closers = append(s.closers, closeStore)
	}

	s.Session = session.New(store)
	if err := s.Session.Initialize(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to load stored credentials: %w", err)
	}

	if userAgent == "" {
		userAgent = "portalctl"
	}

	// Token endpoints never carry a bearer token.
	tokenClient := portal.NewClient(cfg.API.BaseURL,
		portal.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		portal.WithTokenHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		portal.WithUserAgent(userAgent),
	)
	s.Coordinator = refresh.NewCoordinator(s.Session, tokenClient, refresh.WithTimeout(cfg.Auth.RefreshTimeout))

	s.Client = portal.NewClient(cfg.API.BaseURL,
		portal.WithHTTPClient(&http.Client{
			Timeout:   cfg.API.Timeout,
			Transport: transport.New(s.Session, s.Coordinator, transport.WithBaseURL(cfg.API.BaseURL)),
		}),
		portal.WithTokenHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		portal.WithUserAgent(userAgent),
	)

	logging.Debug("Bootstrap", "Services initialized (storage=%s, api=%s, authenticated=%t)",
		cfg.Storage.Backend, cfg.API.BaseURL, s.Session.IsAuthenticated())
	return s, nil
}

// Close releases connections held by the credential store.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// NewStore opens the credential store selected by cfg.Backend. The returned
// close function is nil when the store holds no connections.
func NewStore(cfg config.StorageConfig) (credentials.Store, func() error, error) {
	switch cfg.Backend {
	case config.StorageBackendMemory:
		return credentials.NewMemoryStore(), nil, nil
	case config.StorageBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := credentials.NewRedisStore(client, credentials.RedisStoreConfig{
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		})
		return store, client.Close, nil
	case config.StorageBackendFile, "":
		store, err := credentials.NewFileStore(credentials.FileStoreConfig{StorageDir: cfg.Dir})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open credential store: %w", err)
		}
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
