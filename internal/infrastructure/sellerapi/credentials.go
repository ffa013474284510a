package sellerapi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Credential is one cookie-like name/value pair of an authenticated
// seller-panel browser session.
type Credential struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CredentialSet is an ordered collection of credentials. It is written
// wholesale by a login flow and never partially mutated.
type CredentialSet []Credential

// IsEmpty reports whether the set carries no credentials
func (s CredentialSet) IsEmpty() bool {
	return len(s) == 0
}

// CredentialStore provides the current session credentials and replaces
// them atomically after a successful re-authentication.
type CredentialStore interface {
	Current() (CredentialSet, error)
	Replace(set CredentialSet) error
}

// FileCredentialStore keeps the credential set in a JSON file, the same
// format the browser-automation login flow writes. Replace follows
// write-then-publish: the new set is written to a temp file, renamed over
// the old one, and only then swapped into the in-memory copy.
type FileCredentialStore struct {
	path string

	mu     sync.RWMutex
	cached CredentialSet
	loaded bool
}

// NewFileCredentialStore creates a store backed by the given JSON file.
// The file may not exist yet; Current then returns an empty set.
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

// Current returns the credential set, loading it from disk on first use
func (s *FileCredentialStore) Current() (CredentialSet, error) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.cached, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.cached, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.cached = nil
			s.loaded = true
			return nil, nil
		}
		return nil, fmt.Errorf("credential store: read %s: %w", s.path, err)
	}

	var set CredentialSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("credential store: decode %s: %w", s.path, err)
	}

	s.cached = set
	s.loaded = true
	return set, nil
}

// Replace persists the new set and publishes it for subsequent readers
func (s *FileCredentialStore) Replace(set CredentialSet) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("credential store: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("credential store: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("credential store: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("credential store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("credential store: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("credential store: publish: %w", err)
	}

	s.mu.Lock()
	s.cached = set
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// MemoryCredentialStore is an in-memory store for tests and for callers
// that manage persistence themselves.
type MemoryCredentialStore struct {
	mu  sync.RWMutex
	set CredentialSet
}

// NewMemoryCredentialStore creates a store seeded with the given set
func NewMemoryCredentialStore(set CredentialSet) *MemoryCredentialStore {
	return &MemoryCredentialStore{set: set}
}

// Current returns the stored credential set
func (s *MemoryCredentialStore) Current() (CredentialSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set, nil
}

// Replace swaps the stored credential set
func (s *MemoryCredentialStore) Replace(set CredentialSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = set
	return nil
}
