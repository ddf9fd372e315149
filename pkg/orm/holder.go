package orm

import (
	"fmt"
	"sync"

	"github.com/shashiranjanraj/dorm/pkg/conf"
	"github.com/shashiranjanraj/dorm/pkg/settings"
)

// ErrAlreadyConfigured is returned by a second SettingsHolder.Configure.
var ErrAlreadyConfigured = fmt.Errorf("orm: %w", conf.ErrAlreadyConfigured)

// SettingsHolder is the engine's global configuration object. It accepts
// exactly one settings map per process.
type SettingsHolder struct {
	mu    sync.RWMutex
	raw   settings.Map
	typed *settings.Settings
}

// Configured reports whether a map was accepted.
func (h *SettingsHolder) Configured() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.typed != nil
}

// Configure decodes and stores m. The holder only counts as configured once
// decoding succeeded.
func (h *SettingsHolder) Configure(m settings.Map) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.typed != nil {
		return ErrAlreadyConfigured
	}
	s, err := settings.Decode(m)
	if err != nil {
		return err
	}
	h.raw = m.Clone()
	h.typed = s
	return nil
}

// Current returns the typed settings.
func (h *SettingsHolder) Current() (*settings.Settings, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.typed == nil {
		return nil, fmt.Errorf("orm: settings are not configured: %w", conf.ErrNotConfigured)
	}
	return h.typed, nil
}

// Raw returns a copy of the accepted map.
func (h *SettingsHolder) Raw() settings.Map {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.raw.Clone()
}
