package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps records as a JSON object in a single file. Writes are
// serialized in-process by a mutex and across processes by an advisory
// lock on "<path>.lock", then land atomically via rename.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates a FileStore at path. The file is created on first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) lockPath() string {
	return s.path + ".lock"
}

// Get reads key from disk.
func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return "", false, nil
	}

	lock := NewFileLock(s.lockPath())
	if err := lock.LockShared(); err != nil {
		return "", false, fmt.Errorf("failed to acquire read lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	records, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := records[key]
	return v, ok, nil
}

// Set writes key under an exclusive lock, keeping all other records.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	lock := NewFileLock(s.lockPath())
	if err := lock.LockExclusive(); err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	records, err := s.load()
	if err != nil {
		return err
	}
	records[key] = value

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}
	return nil
}

// Close is a no-op; locks are held only for the duration of a call.
func (s *FileStore) Close() error { return nil }

// load reads the whole file. Caller holds the file lock.
func (s *FileStore) load() (map[string]string, error) {
	records := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	return records, nil
}
