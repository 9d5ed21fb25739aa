// Package config loads portalctl configuration.
//
// Configuration lives in a single directory, ~/.config/portalctl by default or
// the directory given with --config-path. It may contain:
//   - config.yaml (main configuration file)
//   - .env (environment variables, loaded before overrides are applied)
//
// Values are resolved in this order, later sources winning:
//  1. built-in defaults (GetDefaultConfig)
//  2. config.yaml
//  3. environment variables, including those from .env:
//     PORTAL_API_URL, PORTAL_STORAGE_BACKEND, PORTAL_REDIS_ADDR, PORTAL_LOG_LEVEL
//
// Example config.yaml:
//
//	api:
//	  baseURL: https://portal.example.com/api
//	  timeout: 30s
//	auth:
//	  refreshTimeout: 30s
//	storage:
//	  backend: redis
//	  redis:
//	    addr: localhost:6379
//	    keyPrefix: "portalctl:"
//	logging:
//	  level: debug
//	  format: json
//
// A missing config.yaml is not an error. A malformed one, or values that fail
// validation, are reported as a ConfigurationErrorCollection.
package config
