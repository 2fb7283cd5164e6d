// Package state records the last installed version of each package.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/tsukumogami/vsixsync/internal/config"
)

// Store is a durable key-value store for version records.
// Get reports ok=false for a key that was never set.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Timestamped is implemented by stores that record when each key was
// last written.
type Timestamped interface {
	UpdatedAt(key string) (time.Time, bool, error)
}

// StoreCloser is a Store holding resources that must be released.
type StoreCloser interface {
	Store
	Close() error
}

// Backends accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Key returns the record key for a package.
func Key(pkg string) string {
	return pkg + "-lastVersion"
}

// Open returns the store for backend, rooted at cfg's home directory.
// An empty backend selects the JSON file store.
func Open(cfg *config.Config, backend string) (StoreCloser, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	switch backend {
	case "", BackendJSON:
		return NewFileStore(cfg.StateFile), nil
	case BackendSQLite:
		return NewSQLiteStore(cfg.StateDB)
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}

// MemoryStore keeps records in memory. Used for dry runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	writes int
}

// NewMemoryStore creates a MemoryStore seeded with initial (may be nil).
func NewMemoryStore(initial map[string]string) *MemoryStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.writes++
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// Writes returns how many times Set was called.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Snapshot returns a copy of all records.
func (m *MemoryStore) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
