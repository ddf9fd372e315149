package orm

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// ReadyFunc runs once the engine finished setup, in INSTALLED_APPS order.
type ReadyFunc func(ctx context.Context, e *Engine) error

// AppConfig is an app as declared by its package, before it is installed.
type AppConfig struct {
	Label  string
	Models []any
	ready  []ReadyFunc
}

// OnReady adds a hook run after setup.
func (a *AppConfig) OnReady(fn ReadyFunc) *AppConfig {
	a.ready = append(a.ready, fn)
	return a
}

// Catalog holds every app declaration compiled into the binary.
type Catalog struct {
	mu   sync.RWMutex
	apps map[string]*AppConfig
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{apps: map[string]*AppConfig{}}
}

// DefaultCatalog is what RegisterApp writes to.
var DefaultCatalog = NewCatalog()

// RegisterApp declares label with models in the default catalog.
func RegisterApp(label string, models ...any) *AppConfig {
	return DefaultCatalog.Register(label, models...)
}

// Register declares label with models. Declaring a label again adds models
// to the existing declaration, so an app may register from several files.
// Models must be pointers to structs.
func (c *Catalog) Register(label string, models ...any) *AppConfig {
	for _, m := range models {
		t := reflect.TypeOf(m)
		if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
			panic(fmt.Sprintf("orm: app %q: model %T must be a pointer to a struct", label, m))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cfg, ok := c.apps[label]
	if !ok {
		cfg = &AppConfig{Label: label}
		c.apps[label] = cfg
	}
	cfg.Models = append(cfg.Models, models...)
	return cfg
}

// Lookup returns the declaration of label.
func (c *Catalog) Lookup(label string) (*AppConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg, ok := c.apps[label]
	return cfg, ok
}

// Labels returns every declared label, sorted.
func (c *Catalog) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.apps))
	for label := range c.apps {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// App is an installed app.
type App struct {
	Label string
	// Path is the label as a relative directory: "shop.billing" -> "shop/billing".
	Path string
	// Dir is the app's directory on the search path, empty if it has none.
	Dir    string
	Models []any

	ready []ReadyFunc
}

// IsLocal reports whether the app was found on the search path.
func (a *App) IsLocal() bool { return a.Dir != "" }

// HasModels reports whether the app declares at least one model.
func (a *App) HasModels() bool { return len(a.Models) > 0 }

// ModelName returns the lower-case "app.model" label of m.
func (a *App) ModelName(m any) string {
	return a.Label + "." + strings.ToLower(reflect.TypeOf(m).Elem().Name())
}

// LabelPath converts a dotted app label to a slash-separated path.
func LabelPath(label string) string {
	return strings.ReplaceAll(label, ".", "/")
}

// AppNotFoundError is returned when INSTALLED_APPS names an app that was not
// compiled into the binary.
type AppNotFoundError struct {
	Label string
}

func (e *AppNotFoundError) Error() string {
	return fmt.Sprintf("orm: no installed app with label %q (is its package imported?)", e.Label)
}
