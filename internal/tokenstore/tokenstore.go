// Package tokenstore persists the access/refresh token pair across process
// restarts. It is purely mechanical storage: no expiry checks, no parsing.
package tokenstore

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// TokenPair holds the bearer credentials for the current session.
// Invariant: both tokens present or both absent; Get never reports a
// half-filled pair.
type TokenPair struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

// Store reads and writes the token pair at a fixed file path.
type Store struct {
	path string
}

// DefaultPath returns the token file location under the user config dir.
func DefaultPath() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "messmate", "tokens.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "messmate", "tokens.json")
}

// New creates a store backed by the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Set writes both tokens. A subsequent Get reflects this write.
func (s *Store) Set(p TokenPair) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

// Get returns the stored pair. A missing file, unreadable file, or a file
// with either token empty all read as absent.
func (s *Store) Get() (TokenPair, bool) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return TokenPair{}, false
	}
	var p TokenPair
	if err := json.Unmarshal(b, &p); err != nil {
		return TokenPair{}, false
	}
	if p.Access == "" || p.Refresh == "" {
		return TokenPair{}, false
	}
	return p, true
}

// Clear removes both tokens. Idempotent.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsAuthenticated reports whether an access token is present.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Get()
	return ok
}
