// Package migration tracks and runs per-app database migrations.
//
// Migration files live in <app>/migrations/ and register themselves from
// init(), usually as generated by `makemigrations`:
//
//	func init() {
//	    migration.Register("blog", "0001_initial", migration.Func{
//	        UpFn: func(db *gorm.DB) error { return db.AutoMigrate(&blog.Post{}) },
//	        DownFn: func(db *gorm.DB) error { return db.Migrator().DropTable(&blog.Post{}) },
//	    })
//	}
//
// Applied migrations are recorded in the dorm_migrations table together
// with the batch they ran in, so `rollback` can undo the last batch.
package migration

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/dorm/pkg/logger"
	"github.com/shashiranjanraj/dorm/pkg/metrics"
)

// Migration is the interface every migration must implement.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

// Func adapts two functions to Migration. A nil DownFn makes the
// migration irreversible.
type Func struct {
	UpFn   func(db *gorm.DB) error
	DownFn func(db *gorm.DB) error
}

func (f Func) Up(db *gorm.DB) error { return f.UpFn(db) }

func (f Func) Down(db *gorm.DB) error {
	if f.DownFn == nil {
		return fmt.Errorf("migration is irreversible")
	}
	return f.DownFn(db)
}

// Record is the row stored per applied migration.
type Record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	App   string    `gorm:"uniqueIndex:idx_dorm_migrations_app_name;size:255;not null"`
	Name  string    `gorm:"uniqueIndex:idx_dorm_migrations_app_name;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (Record) TableName() string { return "dorm_migrations" }

// ─── Registry ─────────────────────────────────────────────────────────────────

// Entry is one registered migration.
type Entry struct {
	App       string
	Name      string
	Migration Migration
}

// Key is "app.name".
func (e Entry) Key() string { return e.App + "." + e.Name }

// Registry holds migrations registered by app packages.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
}

// Default is the registry migration files register with.
var Default = &Registry{}

// Register adds a migration to the default registry.
func Register(app, name string, m Migration) { Default.Register(app, name, m) }

// Register adds a migration. Registering the same app and name twice panics.
func (r *Registry) Register(app, name string, m Migration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.App == app && e.Name == name {
			panic(fmt.Sprintf("migration: %s.%s registered twice", app, name))
		}
	}
	r.entries = append(r.entries, Entry{App: app, Name: name, Migration: m})
}

// For returns app's migrations sorted by name.
func (r *Registry) For(app string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Entry
	for _, e := range r.entries {
		if e.App == app {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Has reports whether app registered at least one migration.
func (r *Registry) Has(app string) bool {
	return len(r.For(app)) > 0
}

// Apps returns the apps with registered migrations, sorted.
func (r *Registry) Apps() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, e := range r.entries {
		if !seen[e.App] {
			seen[e.App] = true
			out = append(out, e.App)
		}
	}
	sort.Strings(out)
	return out
}

// ─── Runner ───────────────────────────────────────────────────────────────────

// Runner executes and tracks migrations on one connection.
type Runner struct {
	db  *gorm.DB
	reg *Registry
	out io.Writer
}

// New creates a Runner. Progress lines go to out.
func New(db *gorm.DB, reg *Registry, out io.Writer) *Runner {
	return &Runner{db: db, reg: reg, out: out}
}

// EnsureTable creates the tracking table if it does not exist.
func (r *Runner) EnsureTable(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Record{})
}

// Pending returns unapplied migrations of apps, in app order then name order.
// No apps means every app in the registry.
func (r *Runner) Pending(ctx context.Context, apps ...string) ([]Entry, error) {
	applied, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		apps = r.reg.Apps()
	}
	var pending []Entry
	for _, app := range apps {
		for _, e := range r.reg.For(app) {
			if _, ok := applied[e.Key()]; !ok {
				pending = append(pending, e)
			}
		}
	}
	return pending, nil
}

// Run applies every pending migration of apps in a single batch and returns
// how many ran. On failure the count covers the migrations applied and
// recorded before the failing one.
func (r *Runner) Run(ctx context.Context, apps ...string) (int, error) {
	if err := r.EnsureTable(ctx); err != nil {
		return 0, fmt.Errorf("migration: ensure table: %w", err)
	}
	pending, err := r.Pending(ctx, apps...)
	if err != nil {
		return 0, fmt.Errorf("migration: fetch pending: %w", err)
	}
	if len(pending) == 0 {
		fmt.Fprintln(r.out, "  No migrations to apply.")
		return 0, nil
	}

	batch, err := r.lastBatch(ctx)
	if err != nil {
		return 0, err
	}
	batch++

	db := r.db.WithContext(ctx)
	for i, e := range pending {
		fmt.Fprintf(r.out, "  Applying %s...", e.Key())
		if err := e.Migration.Up(db); err != nil {
			fmt.Fprintln(r.out, " FAILED")
			return i, fmt.Errorf("migration: %s up: %w", e.Key(), err)
		}
		if err := db.Create(&Record{App: e.App, Name: e.Name, Batch: batch}).Error; err != nil {
			return i, fmt.Errorf("migration: record %s: %w", e.Key(), err)
		}
		fmt.Fprintln(r.out, " OK")
		metrics.MigrationsApplied.WithLabelValues(e.App).Inc()
	}

	logger.Info("migration: done", "ran", len(pending), "batch", batch)
	return len(pending), nil
}

// Rollback reverses all migrations of the most recent batch, newest first.
func (r *Runner) Rollback(ctx context.Context) (int, error) {
	if err := r.EnsureTable(ctx); err != nil {
		return 0, fmt.Errorf("migration: ensure table: %w", err)
	}
	batch, err := r.lastBatch(ctx)
	if err != nil {
		return 0, err
	}
	if batch == 0 {
		fmt.Fprintln(r.out, "  Nothing to roll back.")
		return 0, nil
	}

	db := r.db.WithContext(ctx)
	var records []Record
	if err := db.Where("batch = ?", batch).Order("id desc").Find(&records).Error; err != nil {
		return 0, fmt.Errorf("migration: load batch %d: %w", batch, err)
	}

	for _, rec := range records {
		m := r.lookup(rec.App, rec.Name)
		if m == nil {
			return 0, fmt.Errorf("migration: cannot roll back %s.%s: not registered", rec.App, rec.Name)
		}
		fmt.Fprintf(r.out, "  Unapplying %s.%s...", rec.App, rec.Name)
		if err := m.Down(db); err != nil {
			fmt.Fprintln(r.out, " FAILED")
			return 0, fmt.Errorf("migration: %s.%s down: %w", rec.App, rec.Name, err)
		}
		if err := db.Delete(&rec).Error; err != nil {
			return 0, fmt.Errorf("migration: forget %s.%s: %w", rec.App, rec.Name, err)
		}
		fmt.Fprintln(r.out, " OK")
	}
	return len(records), nil
}

// Status prints each app's migrations with an [X] for applied ones.
func (r *Runner) Status(ctx context.Context, apps ...string) error {
	if err := r.EnsureTable(ctx); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		apps = r.reg.Apps()
	}
	for _, app := range apps {
		fmt.Fprintln(r.out, app)
		entries := r.reg.For(app)
		if len(entries) == 0 {
			fmt.Fprintln(r.out, " (no migrations)")
			continue
		}
		for _, e := range entries {
			mark := " "
			if _, ok := applied[e.Key()]; ok {
				mark = "X"
			}
			fmt.Fprintf(r.out, " [%s] %s\n", mark, e.Name)
		}
	}
	return nil
}

func (r *Runner) applied(ctx context.Context) (map[string]Record, error) {
	var rows []Record
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("migration: load applied: %w", err)
	}
	out := make(map[string]Record, len(rows))
	for _, rec := range rows {
		out[rec.App+"."+rec.Name] = rec
	}
	return out, nil
}

func (r *Runner) lastBatch(ctx context.Context) (int, error) {
	var batch struct{ Max int }
	err := r.db.WithContext(ctx).Model(&Record{}).Select("COALESCE(MAX(batch), 0) as max").Scan(&batch).Error
	if err != nil {
		return 0, fmt.Errorf("migration: last batch: %w", err)
	}
	return batch.Max, nil
}

func (r *Runner) lookup(app, name string) Migration {
	for _, e := range r.reg.For(app) {
		if e.Name == name {
			return e.Migration
		}
	}
	return nil
}
