package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"portalctl/internal/config"
	"portalctl/pkg/logging"
)

// Application represents the bootstrapped portalctl runtime.
type Application struct {
	services *Services
}

// NewApplication loads configuration, initializes logging and builds the
// services. The caller must Close the application when done.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	// Bootstrap at the requested level until the config says otherwise.
	logOutput := cfg.LogOutput
	if logOutput == nil {
		logOutput = os.Stderr
	}
	initLogging(cfg.LogLevel, logging.FormatText, logOutput)

	var portalCfg config.PortalConfig
	if cfg.PortalConfig != nil {
		portalCfg = *cfg.PortalConfig
	} else {
		var err error
		portalCfg, err = config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from %s", cfg.ConfigPath)
			return nil, fmt.Errorf("failed to load configuration from %s: %w", cfg.ConfigPath, err)
		}
	}

	level := portalCfg.Logging.Level
	if cfg.LogLevel != "" {
		level = cfg.LogLevel
	}
	initLogging(level, portalCfg.Logging.Format, logOutput)

	services, err := InitializeServices(ctx, portalCfg, cfg.UserAgent)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, err
	}

	return &Application{services: services}, nil
}

func initLogging(level, format string, output io.Writer) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		lvl = logging.LevelInfo
	}
	logging.Init(format, lvl, output)
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Close releases resources held by the services.
func (a *Application) Close() error {
	return a.services.Close()
}
