package config

import (
	"fmt"
	"net/url"
	"strings"

	"portalctl/pkg/logging"
)

// Validate checks the configuration and returns every problem found.
// filePath is only used to label the errors.
func (c PortalConfig) Validate(filePath string) ConfigurationErrorCollection {
	var errs ConfigurationErrorCollection
	add := func(field, message string, suggestions ...string) {
		errs.Add(NewConfigurationError(filePath, field, "validation", message, suggestions...))
	}

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("api.baseURL", fmt.Sprintf("%q is not an absolute http(s) URL", c.API.BaseURL),
			"Use the API root including its path prefix, e.g. https://portal.example.com/api")
	}
	if c.API.Timeout <= 0 {
		add("api.timeout", "must be positive")
	}
	if c.Auth.RefreshTimeout <= 0 {
		add("auth.refreshTimeout", "must be positive")
	}

	switch c.Storage.Backend {
	case StorageBackendFile:
		if strings.TrimSpace(c.Storage.Dir) == "" {
			add("storage.dir", "is required for the file backend")
		}
	case StorageBackendMemory:
	case StorageBackendRedis:
		if strings.TrimSpace(c.Storage.Redis.Addr) == "" {
			add("storage.redis.addr", "is required for the redis backend")
		}
		if c.Storage.Redis.TTL < 0 {
			add("storage.redis.ttl", "must not be negative")
		}
	default:
		add("storage.backend", fmt.Sprintf("unknown backend %q", c.Storage.Backend),
			"Use one of: file, memory, redis")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", err.Error(), "Use one of: debug, info, warn, error")
	}
	if c.Logging.Format != logging.FormatText && c.Logging.Format != logging.FormatJSON {
		add("logging.format", fmt.Sprintf("unknown format %q", c.Logging.Format), "Use text or json")
	}

	return errs
}
