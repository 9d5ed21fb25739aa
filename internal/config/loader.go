package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"portalctl/pkg/logging"
)

const (
	userConfigDir  = ".config/portalctl"
	configFileName = "config.yaml"
	envFileName    = ".env"
)

// Environment variables that override config.yaml.
const (
	EnvAPIURL         = "PORTAL_API_URL"
	EnvStorageBackend = "PORTAL_STORAGE_BACKEND"
	EnvRedisAddr      = "PORTAL_REDIS_ADDR"
	EnvLogLevel       = "PORTAL_LOG_LEVEL"
)

// osUserHomeDir is a variable so tests can point it elsewhere.
var osUserHomeDir = os.UserHomeDir

// GetDefaultConfigPath returns ~/.config/portalctl.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads configuration from the given directory.
func LoadConfig(configPath string) (PortalConfig, error) {
	config := GetDefaultConfig()

	if err := loadEnvFile(filepath.Join(configPath, envFileName)); err != nil {
		return PortalConfig{}, err
	}

	configFilePath := filepath.Join(configPath, configFileName)
	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return PortalConfig{}, err
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return PortalConfig{}, ConfigurationErrorCollection{Errors: []ConfigurationError{
				NewConfigurationError(configFilePath, "", "parse", err.Error(),
					"Check the YAML syntax and that durations use Go notation such as 30s or 5m"),
			}}
		}
		logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	applyEnvOverrides(&config)

	if config.Storage.Dir == "" {
		config.Storage.Dir = configPath
	}
	config.Storage.Dir, err = expandHome(config.Storage.Dir)
	if err != nil {
		return PortalConfig{}, err
	}

	if errs := config.Validate(configFilePath); errs.HasErrors() {
		return PortalConfig{}, errs
	}
	return config, nil
}

// loadEnvFile loads a .env file without overriding variables already set.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	logging.Debug("ConfigLoader", "Loaded environment from %s", path)
	return nil
}

func applyEnvOverrides(config *PortalConfig) {
	if v := os.Getenv(EnvAPIURL); v != "" {
		config.API.BaseURL = v
	}
	if v := os.Getenv(EnvStorageBackend); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		config.Storage.Redis.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.Logging.Level = v
	}
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not expand %s: %w", path, err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
}
