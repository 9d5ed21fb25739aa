package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"portalctl/pkg/logging"
)

const (
	// DefaultStorageDir is the credentials directory relative to the user's home directory.
	DefaultStorageDir = ".config/portalctl"

	// credentialsFileName is the name of the credentials document inside the storage directory.
	credentialsFileName = "credentials.json"
)

// FileStore persists credentials as a JSON file.
//
// SECURITY: This store handles sensitive credentials.
//   - The file is created with 0600 permissions (owner read/write only)
//   - The storage directory is created with 0700 permissions (owner only)
//   - Token values are NEVER logged
type FileStore struct {
	mu         sync.RWMutex
	storageDir string
}

// FileStoreConfig configures the file store.
type FileStoreConfig struct {
	// StorageDir is the directory holding credentials.json.
	// Defaults to ~/.config/portalctl
	StorageDir string
}

// NewFileStore creates a file store, creating the storage directory if needed.
func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	storageDir := cfg.StorageDir
	if storageDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		storageDir = filepath.Join(homeDir, DefaultStorageDir)
	}

	if err := os.MkdirAll(storageDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	return &FileStore{storageDir: storageDir}, nil
}

// Path returns the location of the credentials file.
func (s *FileStore) Path() string {
	return filepath.Join(s.storageDir, credentialsFileName)
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(_ context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFile(creds); err != nil {
		logging.Audit(logging.AuditEvent{
			Event:   "credentials_store_failed",
			Outcome: "failure",
			Reason:  err.Error(),
		})
		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	logging.Debug("CredentialStore", "Stored credentials in %s (refresh token: %t)", s.Path(), creds.RefreshToken != "")
	return nil
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (*Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// #nosec G304 -- path is built from the configured storage directory, not user input
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	// An unreadable document counts as nothing stored, so login can replace it.
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		logging.Warn("CredentialStore", "Ignoring unreadable credentials file %s: %v", s.Path(), err)
		return nil, nil
	}
	if creds.IsEmpty() {
		return nil, nil
	}
	return &creds, nil
}

// Clear implements Store by removing the credentials file.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Audit(logging.AuditEvent{
			Event:   "credentials_clear_failed",
			Outcome: "failure",
			Reason:  err.Error(),
		})
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}

// writeFile writes creds to a temp file in the storage directory and renames it into place.
func (s *FileStore) writeFile(creds Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	tmp, err := os.CreateTemp(s.storageDir, credentialsFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict temp file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	return os.Rename(tmpPath, s.Path())
}
