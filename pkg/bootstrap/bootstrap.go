// Package bootstrap runs the one-time sequence that prepares the engine for
// a project: resolve the project root, load its settings, configure the
// engine, put the root on the search path, then let the engine set itself
// up.
//
// The engine discovers apps during its own setup, so that step must see the
// final configuration and the registered search path. Setup is idempotent
// end to end: once the engine is configured, later calls return nil.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/shashiranjanraj/dorm/pkg/conf"
	"github.com/shashiranjanraj/dorm/pkg/logger"
	"github.com/shashiranjanraj/dorm/pkg/metrics"
	"github.com/shashiranjanraj/dorm/pkg/orm"
	"github.com/shashiranjanraj/dorm/pkg/project"
	"github.com/shashiranjanraj/dorm/pkg/searchpath"
	"github.com/shashiranjanraj/dorm/pkg/settings"
)

// Engine is the part of the engine the bootstrapper drives.
type Engine interface {
	Setup(ctx context.Context) error
}

// Loader loads a project's settings map.
type Loader interface {
	Load(root string) (settings.Map, error)
}

// Bootstrapper composes path resolution, settings loading, configuration,
// search-path registration and engine setup.
type Bootstrapper struct {
	state  *conf.State
	loader Loader
	path   *searchpath.Path
	engine Engine
}

// New returns a bootstrapper over explicit collaborators.
func New(state *conf.State, loader Loader, path *searchpath.Path, engine Engine) *Bootstrapper {
	return &Bootstrapper{state: state, loader: loader, path: path, engine: engine}
}

// ForEngine wires a bootstrapper to e's settings holder and search path.
func ForEngine(e *orm.Engine, opts ...settings.LoaderOption) *Bootstrapper {
	return New(conf.New(e.Settings()), settings.NewLoader(opts...), e.SearchPath(), e)
}

// State returns the configuration state the bootstrapper applies.
func (b *Bootstrapper) State() *conf.State { return b.state }

// Setup bootstraps the project at projectPath, or at the working directory
// when projectPath is empty. A missing settings file fails with
// *settings.NotFoundError, unwrapped.
func (b *Bootstrapper) Setup(ctx context.Context, projectPath string) (err error) {
	if b.state.IsConfigured() {
		return nil
	}
	start := time.Now()
	defer func() { metrics.ObserveSetup(start, err) }()

	root, err := project.Resolve(projectPath)
	if err != nil {
		return err
	}

	m, err := b.loader.Load(root)
	if err != nil {
		return err
	}

	if err := b.state.Configure(m); err != nil {
		return fmt.Errorf("bootstrap: configure: %w", err)
	}

	if searchpath.Register(b.path, root) {
		logger.Debug("bootstrap: project root added to search path", "root", root)
	}

	if err := b.engine.Setup(ctx); err != nil {
		return fmt.Errorf("bootstrap: engine setup: %w", err)
	}

	logger.Debug("bootstrap: ready", "root", root, "took", time.Since(start).String())
	return nil
}

// EnsureSetup fails with conf.ErrNotConfigured until Setup succeeded.
func (b *Bootstrapper) EnsureSetup() error {
	return b.state.EnsureConfigured()
}
