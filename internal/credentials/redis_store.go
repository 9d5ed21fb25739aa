package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces the two credential keys.
const DefaultRedisKeyPrefix = "portalctl:"

const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"
)

// RedisStore keeps credentials in two Redis keys.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisStoreConfig configures the Redis store.
type RedisStoreConfig struct {
	// KeyPrefix is prepended to "access_token" and "refresh_token".
	KeyPrefix string

	// TTL expires both keys; zero keeps them until cleared.
	TTL time.Duration
}

// NewRedisStore wraps an existing client. The caller owns the client.
func NewRedisStore(client redis.UniversalClient, cfg RedisStoreConfig) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
	}
}

func (s *RedisStore) accessKey() string  { return s.prefix + accessTokenKey }
func (s *RedisStore) refreshKey() string { return s.prefix + refreshTokenKey }

// Save implements Store. Both keys are written in one MULTI/EXEC transaction.
func (s *RedisStore) Save(ctx context.Context, creds Credentials) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if creds.AccessToken != "" {
			pipe.Set(ctx, s.accessKey(), creds.AccessToken, s.ttl)
		} else {
			pipe.Del(ctx, s.accessKey())
		}
		if creds.RefreshToken != "" {
			pipe.Set(ctx, s.refreshKey(), creds.RefreshToken, s.ttl)
		} else {
			pipe.Del(ctx, s.refreshKey())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to persist credentials to redis: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (*Credentials, error) {
	vals, err := s.client.MGet(ctx, s.accessKey(), s.refreshKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load credentials from redis: %w", err)
	}

	var creds Credentials
	if len(vals) == 2 {
		creds.AccessToken, _ = vals[0].(string)
		creds.RefreshToken, _ = vals[1].(string)
	}
	if creds.IsEmpty() {
		return nil, nil
	}
	return &creds, nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.accessKey(), s.refreshKey()).Err(); err != nil {
		return fmt.Errorf("failed to clear credentials in redis: %w", err)
	}
	return nil
}
