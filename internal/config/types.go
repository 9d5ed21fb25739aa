package config

import "time"

// PortalConfig is the top-level configuration structure for portalctl.
type PortalConfig struct {
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig locates the portal API.
type APIConfig struct {
	BaseURL string        `yaml:"baseURL"`           // API root including the /api prefix
	Timeout time.Duration `yaml:"timeout,omitempty"` // Per-request timeout (default: 30s)
}

// AuthConfig tunes session handling.
type AuthConfig struct {
	RefreshTimeout time.Duration `yaml:"refreshTimeout,omitempty"` // Bound on a single token refresh (default: 30s)
}

// Storage backends.
const (
	StorageBackendFile   = "file"
	StorageBackendMemory = "memory"
	StorageBackendRedis  = "redis"
)

// StorageConfig selects where credentials are kept.
type StorageConfig struct {
	Backend string      `yaml:"backend"`       // file, memory or redis (default: file)
	Dir     string      `yaml:"dir,omitempty"` // Directory for the file backend (default: config directory)
	Redis   RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password,omitempty"`
	DB        int           `yaml:"db,omitempty"`
	KeyPrefix string        `yaml:"keyPrefix,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty"` // Zero keeps keys until logout
}

// LoggingConfig controls log output on stderr.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}
