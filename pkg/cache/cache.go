// Package cache builds the cache backends named by the CACHES setting.
//
// Values are stored JSON-encoded. Supported backends:
//   - "redis" : LOCATION is redis://[:password@]host:port/db or host:port
//   - "locmem": process-local map
//   - "dummy" : stores nothing, every Get misses
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shashiranjanraj/dorm/pkg/settings"
)

// DefaultTimeout applies when a cache entry has no TIMEOUT.
const DefaultTimeout = 300 * time.Second

// Store is one cache backend.
type Store interface {
	// Get unmarshals the value at key into dest and reports a hit.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value for ttl. Zero ttl means the alias default.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// Manager owns one Store per CACHES alias.
type Manager struct {
	stores   map[string]Store
	backends map[string]string
}

// New builds a store per entry. Nothing is dialled until first use.
func New(caches map[string]settings.Cache) (*Manager, error) {
	m := &Manager{stores: map[string]Store{}, backends: map[string]string{}}
	for alias, c := range caches {
		ttl := DefaultTimeout
		if c.Timeout > 0 {
			ttl = time.Duration(c.Timeout) * time.Second
		}
		var (
			s   Store
			err error
		)
		switch c.Backend {
		case "redis":
			s, err = newRedisStore(c.Location, c.KeyPrefix, ttl)
		case "locmem":
			s = newMemoryStore(c.KeyPrefix, ttl)
		case "dummy":
			s = dummyStore{}
		default:
			err = fmt.Errorf("unsupported BACKEND %q", c.Backend)
		}
		if err != nil {
			return nil, fmt.Errorf("cache: %s: %w", alias, err)
		}
		m.stores[alias] = s
		m.backends[alias] = c.Backend
	}
	return m, nil
}

// Aliases returns the configured aliases, sorted.
func (m *Manager) Aliases() []string {
	out := make([]string, 0, len(m.stores))
	for alias := range m.stores {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Backend returns the BACKEND of alias.
func (m *Manager) Backend(alias string) string { return m.backends[alias] }

// Use returns the store for alias.
func (m *Manager) Use(alias string) (Store, error) {
	s, ok := m.stores[alias]
	if !ok {
		return nil, fmt.Errorf("cache: %q is not configured", alias)
	}
	return s, nil
}

// Close closes every store.
func (m *Manager) Close() error {
	var firstErr error
	for _, s := range m.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ─── locmem ───────────────────────────────────────────────────────────────────

type memItem struct {
	data    []byte
	expires time.Time
}

type memoryStore struct {
	mu     sync.Mutex
	prefix string
	ttl    time.Duration
	items  map[string]memItem
	now    func() time.Time
}

func newMemoryStore(prefix string, ttl time.Duration) *memoryStore {
	return &memoryStore{prefix: prefix, ttl: ttl, items: map[string]memItem{}, now: time.Now}
}

func (s *memoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	s.mu.Lock()
	item, ok := s.items[s.prefix+key]
	if ok && s.now().After(item.expires) {
		delete(s.items, s.prefix+key)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(item.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	s.mu.Lock()
	s.items[s.prefix+key] = memItem{data: data, expires: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.items, s.prefix+k)
	}
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }
func (s *memoryStore) Close() error               { return nil }

// ─── dummy ────────────────────────────────────────────────────────────────────

type dummyStore struct{}

func (dummyStore) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (dummyStore) Set(context.Context, string, any, time.Duration) error { return nil }
func (dummyStore) Delete(context.Context, ...string) error               { return nil }
func (dummyStore) Ping(context.Context) error                            { return nil }
func (dummyStore) Close() error                                          { return nil }
