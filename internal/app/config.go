package app

import (
	"io"

	"portalctl/internal/config"
)

// Config holds the application configuration
type Config struct {
	// ConfigPath is the directory holding config.yaml and .env.
	ConfigPath string

	// LogLevel overrides logging.level when non-empty.
	LogLevel string

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer

	// UserAgent is sent with every API request. Defaults to "portalctl".
	UserAgent string

	// PortalConfig skips loading from ConfigPath when set.
	PortalConfig *config.PortalConfig
}

// NewConfig creates a new application configuration
func NewConfig(configPath, logLevel string) *Config {
	return &Config{
		ConfigPath: configPath,
		LogLevel:   logLevel,
	}
}
