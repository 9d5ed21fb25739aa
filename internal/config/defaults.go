package config

import "time"

const (
	// DefaultBaseURL is the API root of a local development portal.
	DefaultBaseURL = "http://localhost:8000/api"

	// DefaultTimeout is used for both API requests and token refreshes.
	DefaultTimeout = 30 * time.Second

	// DefaultRedisAddr is the address of a local redis.
	DefaultRedisAddr = "localhost:6379"

	// DefaultRedisKeyPrefix namespaces the credential keys.
	DefaultRedisKeyPrefix = "portalctl:"
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() PortalConfig {
	return PortalConfig{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Auth: AuthConfig{
			RefreshTimeout: DefaultTimeout,
		},
		Storage: StorageConfig{
			Backend: StorageBackendFile,
			Redis: RedisConfig{
				Addr:      DefaultRedisAddr,
				KeyPrefix: DefaultRedisKeyPrefix,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
