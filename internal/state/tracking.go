// internal/state/tracking.go
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// TrackingStore keeps per-asset key/value records, most importantly the
// file_upload_date timestamp the materializer compares against the remote
// modified time to decide whether a new download is needed.
type TrackingStore struct {
	path string
	mu   sync.RWMutex
}

// NewTrackingStore creates a file-backed TrackingStore at the given file path.
func NewTrackingStore(path string) *TrackingStore {
	return &TrackingStore{path: path}
}

// Get returns the value stored for (assetID, name) and whether it exists.
func (s *TrackingStore) Get(assetID, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.load()
	if err != nil {
		return "", false, err
	}
	record, ok := records[assetID]
	if !ok {
		return "", false, nil
	}
	value, ok := record[name]
	return value, ok, nil
}

// Set stores value under (assetID, name).
func (s *TrackingStore) Set(assetID, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	if records == nil {
		records = make(map[string]map[string]string)
	}
	if records[assetID] == nil {
		records[assetID] = make(map[string]string)
	}
	records[assetID][name] = value
	return s.save(records)
}

// Delete removes (assetID, name), dropping the asset's record when it
// becomes empty. Deleting a missing key is a no-op.
func (s *TrackingStore) Delete(assetID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	record, ok := records[assetID]
	if !ok {
		return nil
	}
	if _, ok := record[name]; !ok {
		return nil
	}
	delete(record, name)
	if len(record) == 0 {
		delete(records, assetID)
	}
	return s.save(records)
}

// AssetIDs returns the tracked asset ids in sorted order. The refresh sweep
// iterates this list.
func (s *TrackingStore) AssetIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// load reads the tracking file. Returns nil if the file doesn't exist.
func (s *TrackingStore) load() (map[string]map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tracking file: %w", err)
	}

	var records map[string]map[string]string
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unmarshal tracking file: %w", err)
	}
	return records, nil
}

// save writes the records to disk using atomic write (temp file + rename).
func (s *TrackingStore) save(records map[string]map[string]string) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tracking records: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create tracking dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp tracking file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp tracking file: %w", err)
	}
	return nil
}
