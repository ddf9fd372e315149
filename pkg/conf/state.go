// Package conf wraps the engine's global configuration object with
// initialize-once semantics.
//
// A State never keeps its own "configured" flag: it asks the wrapped Holder,
// so the two can never disagree, and a nested configure call that lands
// after the holder accepted a map is a silent no-op.
package conf

import (
	"errors"
	"fmt"

	"github.com/shashiranjanraj/dorm/pkg/settings"
)

var (
	// ErrNotConfigured reports engine use before setup completed.
	ErrNotConfigured = errors.New("dorm setup not done")

	// ErrAlreadyConfigured is what a Holder returns when asked to configure
	// twice. State treats it as success.
	ErrAlreadyConfigured = errors.New("settings already configured")
)

// Holder is the engine-side configuration object.
type Holder interface {
	// Configured reports whether a map has been accepted.
	Configured() bool
	// Configure applies m, or returns ErrAlreadyConfigured (possibly wrapped)
	// if a map was accepted before.
	Configure(m settings.Map) error
}

// State is the process-wide configuration state handed to every component
// that needs it.
type State struct {
	holder Holder
}

// New wraps h.
func New(h Holder) *State {
	return &State{holder: h}
}

// IsConfigured reports whether configuration has been applied.
func (s *State) IsConfigured() bool {
	return s.holder.Configured()
}

// Configure applies m once per process. Later calls return nil without
// touching the holder.
func (s *State) Configure(m settings.Map) error {
	if s.IsConfigured() {
		return nil
	}
	if err := s.holder.Configure(m); err != nil {
		if errors.Is(err, ErrAlreadyConfigured) {
			return nil
		}
		return err
	}
	return nil
}

// EnsureConfigured fails with ErrNotConfigured until Configure succeeded.
// Code paths that touch the engine call it as a precondition guard.
func (s *State) EnsureConfigured() error {
	if !s.IsConfigured() {
		return fmt.Errorf("%w: ensure dorm.Setup is called before engine features are used", ErrNotConfigured)
	}
	return nil
}
