package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shashiranjanraj/dorm/pkg/logger"
	"github.com/shashiranjanraj/dorm/pkg/settings"
)

// DefaultAlias is the STORAGES entry used when none is named.
const DefaultAlias = "default"

// ─── Manager ──────────────────────────────────────────────────────────────────

// Manager owns one Disk per STORAGES alias. Disks are built on first use so
// that a broken s3 entry only fails the commands that touch it.
type Manager struct {
	baseDir string
	configs map[string]settings.Storage

	mu    sync.Mutex
	disks map[string]Disk
}

// New prepares the disks described by storages.
func New(baseDir string, storages map[string]settings.Storage) *Manager {
	return &Manager{baseDir: baseDir, configs: storages, disks: map[string]Disk{}}
}

// Aliases returns the configured aliases, sorted.
func (m *Manager) Aliases() []string {
	out := make([]string, 0, len(m.configs))
	for alias := range m.configs {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Use returns the disk for alias.
func (m *Manager) Use(ctx context.Context, alias string) (Disk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.disks[alias]; ok {
		return d, nil
	}
	cfg, ok := m.configs[alias]
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured", alias)
	}

	var (
		d   Disk
		err error
	)
	switch cfg.Backend {
	case "local":
		d = newLocalDisk(m.baseDir, cfg.Options)
	case "s3":
		d, err = newS3Disk(ctx, cfg.Options)
	default:
		err = fmt.Errorf("storage: %s: unsupported BACKEND %q", alias, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	m.disks[alias] = d
	logger.Debug("storage: disk ready", "alias", alias, "backend", cfg.Backend)
	return d, nil
}

// Default returns the "default" disk.
func (m *Manager) Default(ctx context.Context) (Disk, error) {
	return m.Use(ctx, DefaultAlias)
}

// Register plugs in a custom Disk under alias.
func (m *Manager) Register(alias string, d Disk) {
	m.mu.Lock()
	m.disks[alias] = d
	m.mu.Unlock()
}

func option(opts map[string]any, key, fallback string) string {
	if v, ok := opts[key]; ok && v != nil {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}
	return fallback
}
