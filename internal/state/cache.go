// internal/state/cache.go
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CacheStore is a JSON-file-backed key/value cache. It backs the client's
// persistent metadata-field cache; entries carry no expiry and live until
// deleted.
type CacheStore struct {
	path string
	mu   sync.RWMutex
}

// NewCacheStore creates a file-backed CacheStore at the given file path.
func NewCacheStore(path string) *CacheStore {
	return &CacheStore{path: path}
}

// Get returns the entry for key and whether it exists.
func (s *CacheStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.load()
	if err != nil {
		return nil, false, err
	}
	value, ok := entries[key]
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores value under key. value must be valid JSON.
func (s *CacheStore) Set(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("cache value for %q is not valid JSON", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if entries == nil {
		entries = make(map[string]json.RawMessage)
	}
	entries[key] = json.RawMessage(value)
	return s.save(entries)
}

// Delete removes the entry for key. Deleting a missing key is a no-op.
func (s *CacheStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.save(entries)
}

// load reads the cache file. Returns nil if the file doesn't exist.
func (s *CacheStore) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal cache file: %w", err)
	}
	return entries, nil
}

// save writes the cache to disk using atomic write (temp file + rename).
// Compact marshal: indentation would rewrite the stored raw values, and Get
// must return the exact bytes Set stored.
func (s *CacheStore) save(entries map[string]json.RawMessage) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp cache file: %w", err)
	}
	return nil
}
