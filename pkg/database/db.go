// Package database opens gorm connections for the DATABASES setting.
// Connections are opened lazily, one per alias, and reused.
package database

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shashiranjanraj/dorm/pkg/logger"
	"github.com/shashiranjanraj/dorm/pkg/settings"
)

// DefaultAlias is the connection used when a command does not name one.
const DefaultAlias = "default"

// Engines lists accepted ENGINE values and the driver each maps to.
var Engines = map[string]string{
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
	"postgres":   "postgres",
	"postgresql": "postgres",
	"mysql":      "mysql",
	"sqlserver":  "sqlserver",
}

// UnknownAliasError is returned for an alias missing from DATABASES.
type UnknownAliasError struct {
	Alias string
}

func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("database: the connection %q doesn't exist", e.Alias)
}

// Connections holds one lazily opened *gorm.DB per alias.
type Connections struct {
	baseDir string
	configs map[string]settings.Database
	debug   bool

	mu    sync.Mutex
	conns map[string]*gorm.DB
}

// New prepares connections for dbs. Nothing is opened yet.
// Relative sqlite names are resolved against baseDir.
func New(baseDir string, dbs map[string]settings.Database, debug bool) *Connections {
	return &Connections{
		baseDir: baseDir,
		configs: dbs,
		debug:   debug,
		conns:   make(map[string]*gorm.DB),
	}
}

// Aliases returns the configured aliases, sorted.
func (c *Connections) Aliases() []string {
	out := make([]string, 0, len(c.configs))
	for alias := range c.configs {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Get returns the connection for alias, opening it on first use.
func (c *Connections) Get(alias string) (*gorm.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if db, ok := c.conns[alias]; ok {
		return db, nil
	}
	cfg, ok := c.configs[alias]
	if !ok {
		return nil, &UnknownAliasError{Alias: alias}
	}

	db, err := c.open(cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %s: %w", alias, err)
	}
	c.conns[alias] = db
	logger.Debug("database: connection opened", "alias", alias, "engine", cfg.Engine)
	return db, nil
}

// Ping opens alias if needed and verifies the connection is live.
func (c *Connections) Ping(ctx context.Context, alias string) error {
	db, err := c.Get(alias)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: %s: get sql.DB: %w", alias, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %s: ping: %w", alias, err)
	}
	return nil
}

// Close closes every opened connection.
func (c *Connections) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for alias, db := range c.conns {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("database: %s: close: %w", alias, err)
		}
		delete(c.conns, alias)
	}
	return firstErr
}

func (c *Connections) open(cfg settings.Database) (*gorm.DB, error) {
	dialector, err := Dialector(c.baseDir, cfg)
	if err != nil {
		return nil, fmt.Errorf("build dialector: %w", err)
	}

	mode := gormlogger.Silent
	if c.debug {
		mode = gormlogger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(mode),
	})
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)
	if cfg.ConnMaxAge > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxAge) * time.Second)
	}
	return db, nil
}

// Dialector builds the gorm dialector for one DATABASES entry.
func Dialector(baseDir string, cfg settings.Database) (gorm.Dialector, error) {
	dsn, err := DSN(baseDir, cfg)
	if err != nil {
		return nil, err
	}
	switch Engines[strings.ToLower(cfg.Engine)] {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlserver":
		return sqlserver.Open(dsn), nil
	}
	return nil, unsupported(cfg.Engine)
}

// DSN renders the driver connection string for cfg.
func DSN(baseDir string, cfg settings.Database) (string, error) {
	switch Engines[strings.ToLower(cfg.Engine)] {
	case "sqlite":
		return sqliteDSN(baseDir, cfg)
	case "postgres":
		return postgresDSN(cfg), nil
	case "mysql":
		return mysqlDSN(cfg), nil
	case "sqlserver":
		return sqlserverDSN(cfg), nil
	}
	return "", unsupported(cfg.Engine)
}

func unsupported(engine string) error {
	return fmt.Errorf("unsupported ENGINE %q (supported: sqlite, postgres, mysql, sqlserver)", engine)
}

func sqliteDSN(baseDir string, cfg settings.Database) (string, error) {
	name := cfg.Name
	switch {
	case name == "":
		return "", fmt.Errorf("sqlite: NAME is required")
	case name == ":memory:", strings.HasPrefix(name, "file:"):
		return name, nil
	case !filepath.IsAbs(name):
		name = filepath.Join(baseDir, name)
	}
	if q := optionQuery(cfg.Options); q != "" {
		name += "?" + q
	}
	return name, nil
}

func postgresDSN(cfg settings.Database) string {
	opts := map[string]any{"sslmode": "disable"}
	for k, v := range cfg.Options {
		opts[k] = v
	}
	parts := []string{
		"host=" + orDefault(cfg.Host, "localhost"),
		"port=" + fmt.Sprint(portOr(cfg.Port, 5432)),
	}
	if cfg.User != "" {
		parts = append(parts, "user="+cfg.User)
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+cfg.Password)
	}
	if cfg.Name != "" {
		parts = append(parts, "dbname="+cfg.Name)
	}
	for _, k := range sortedOptionKeys(opts) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, opts[k]))
	}
	return strings.Join(parts, " ")
}

func mysqlDSN(cfg settings.Database) string {
	opts := map[string]any{"charset": "utf8mb4", "parseTime": "True", "loc": "Local"}
	for k, v := range cfg.Options {
		opts[k] = v
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		cfg.User, cfg.Password,
		orDefault(cfg.Host, "localhost"), portOr(cfg.Port, 3306),
		cfg.Name, optionQuery(opts))
}

func sqlserverDSN(cfg settings.Database) string {
	q := url.Values{}
	for k, v := range cfg.Options {
		q.Set(k, fmt.Sprint(v))
	}
	if cfg.Name != "" {
		q.Set("database", cfg.Name)
	}
	u := url.URL{
		Scheme:   "sqlserver",
		Host:     fmt.Sprintf("%s:%d", orDefault(cfg.Host, "localhost"), portOr(cfg.Port, 1433)),
		RawQuery: q.Encode(),
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return u.String()
}

func optionQuery(opts map[string]any) string {
	parts := make([]string, 0, len(opts))
	for _, k := range sortedOptionKeys(opts) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, opts[k]))
	}
	return strings.Join(parts, "&")
}

func sortedOptionKeys(opts map[string]any) []string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func portOr(p, def int) int {
	if p == 0 {
		return def
	}
	return p
}
