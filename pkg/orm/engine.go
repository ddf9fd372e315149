package orm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/dorm/config"
	"github.com/shashiranjanraj/dorm/pkg/cache"
	"github.com/shashiranjanraj/dorm/pkg/database"
	"github.com/shashiranjanraj/dorm/pkg/logger"
	"github.com/shashiranjanraj/dorm/pkg/migration"
	"github.com/shashiranjanraj/dorm/pkg/searchpath"
	"github.com/shashiranjanraj/dorm/pkg/settings"
	"github.com/shashiranjanraj/dorm/pkg/storage"
)

// ErrNotReady is returned by accessors used before Setup finished.
var ErrNotReady = errors.New("orm: apps aren't loaded yet")

type setupState int

const (
	stateIdle setupState = iota
	statePopulating
	stateReady
)

// Engine owns the app registry and every backend built from settings.
type Engine struct {
	catalog    *Catalog
	holder     *SettingsHolder
	path       *searchpath.Path
	migrations *migration.Registry

	mu      sync.Mutex
	state   setupState
	apps    []*App
	byLabel map[string]*App
	dbs     *database.Connections
	caches  *cache.Manager
	storage *storage.Manager
}

// Option customises an Engine.
type Option func(*Engine)

// WithMigrations replaces the migration registry (default migration.Default).
func WithMigrations(reg *migration.Registry) Option {
	return func(e *Engine) { e.migrations = reg }
}

// New returns an engine over catalog that resolves app directories
// through path.
func New(catalog *Catalog, path *searchpath.Path, opts ...Option) *Engine {
	e := &Engine{
		catalog:    catalog,
		holder:     &SettingsHolder{},
		path:       path,
		migrations: migration.Default,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Default is the process-wide engine over DefaultCatalog.
var Default = New(DefaultCatalog, searchpath.FromEnv())

// Settings returns the engine's configuration holder.
func (e *Engine) Settings() *SettingsHolder { return e.holder }

// SearchPath returns the engine's search path.
func (e *Engine) SearchPath() *searchpath.Path { return e.path }

// Migrations returns the migration registry the engine runs.
func (e *Engine) Migrations() *migration.Registry { return e.migrations }

// Ready reports whether Setup completed.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateReady
}

// Setup loads the installed apps and builds the backends. It requires
// configured settings and runs once: later calls, including calls made
// from a ready hook while setup is still running, return nil.
func (e *Engine) Setup(ctx context.Context) error {
	e.mu.Lock()
	if e.state != stateIdle {
		e.mu.Unlock()
		return nil
	}
	e.state = statePopulating
	e.mu.Unlock()

	err := e.populate(ctx)

	e.mu.Lock()
	if err != nil {
		e.state = stateIdle
		e.apps, e.byLabel = nil, nil
		e.dbs, e.caches, e.storage = nil, nil, nil
	} else {
		e.state = stateReady
	}
	e.mu.Unlock()
	return err
}

func (e *Engine) populate(ctx context.Context) error {
	s, err := e.holder.Current()
	if err != nil {
		return err
	}

	if err := configureLogging(s.Logging); err != nil {
		return err
	}

	apps := make([]*App, 0, len(s.InstalledApps))
	byLabel := make(map[string]*App, len(s.InstalledApps))
	for _, label := range s.InstalledApps {
		cfg, ok := e.catalog.Lookup(label)
		if !ok {
			return &AppNotFoundError{Label: label}
		}
		app := &App{
			Label:  label,
			Path:   LabelPath(label),
			Models: append([]any(nil), cfg.Models...),
			ready:  append([]ReadyFunc(nil), cfg.ready...),
		}
		if dir, ok := e.path.Resolve(app.Path); ok {
			app.Dir = dir
		}
		apps = append(apps, app)
		byLabel[label] = app
	}

	caches, err := cache.New(s.Caches)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.apps = apps
	e.byLabel = byLabel
	e.dbs = database.New(s.BaseDir, s.Databases, s.Debug)
	e.caches = caches
	e.storage = storage.New(s.BaseDir, s.Storages)
	e.mu.Unlock()

	logger.Debug("orm: apps loaded", "count", len(apps), "search_path", e.path.String())

	for _, app := range apps {
		for _, fn := range app.ready {
			if err := fn(ctx, e); err != nil {
				return fmt.Errorf("orm: %s ready: %w", app.Label, err)
			}
		}
	}
	return nil
}

func configureLogging(l settings.Logging) error {
	if l.Level == "" && l.Format == "" && l.Mongo == nil {
		return nil
	}
	format := l.Format
	if format == "" && config.AppEnv() == "production" {
		format = "json"
	}
	opts := logger.Options{Level: l.Level, Format: format}
	if l.Mongo != nil {
		opts.Mongo = &logger.MongoOptions{
			URI:        l.Mongo.URI,
			Database:   l.Mongo.Database,
			Collection: l.Mongo.Collection,
		}
	}
	return logger.Configure(opts)
}

// ─── Accessors ────────────────────────────────────────────────────────────────

// Apps returns the installed apps in INSTALLED_APPS order.
func (e *Engine) Apps() ([]*App, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.byLabel == nil {
		return nil, ErrNotReady
	}
	return append([]*App(nil), e.apps...), nil
}

// App returns the installed app with label.
func (e *Engine) App(label string) (*App, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.byLabel == nil {
		return nil, ErrNotReady
	}
	app, ok := e.byLabel[label]
	if !ok {
		return nil, &AppNotFoundError{Label: label}
	}
	return app, nil
}

// DB returns the gorm connection for alias.
func (e *Engine) DB(alias string) (*gorm.DB, error) {
	dbs, err := e.databases()
	if err != nil {
		return nil, err
	}
	return dbs.Get(alias)
}

func (e *Engine) databases() (*database.Connections, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dbs == nil {
		return nil, ErrNotReady
	}
	return e.dbs, nil
}

// Cache returns the cache store for alias.
func (e *Engine) Cache(alias string) (cache.Store, error) {
	caches, err := e.cacheManager()
	if err != nil {
		return nil, err
	}
	return caches.Use(alias)
}

func (e *Engine) cacheManager() (*cache.Manager, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.caches == nil {
		return nil, ErrNotReady
	}
	return e.caches, nil
}

// Storage returns the storage manager.
func (e *Engine) Storage() (*storage.Manager, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.storage == nil {
		return nil, ErrNotReady
	}
	return e.storage, nil
}

// Close releases database and cache connections and flushes the log sink.
func (e *Engine) Close() error {
	e.mu.Lock()
	dbs, caches := e.dbs, e.caches
	e.mu.Unlock()

	var errs []error
	if dbs != nil {
		errs = append(errs, dbs.Close())
	}
	if caches != nil {
		errs = append(errs, caches.Close())
	}
	logger.Close()
	return errors.Join(errs...)
}
