// Package logger provides the structured, levelled logger used across dorm,
// built on log/slog.
//
// The base logger is ready at import time (level and format come from the
// tool's own config). The engine reconfigures it from the project's LOGGING
// setting during setup:
//
//	logger.Configure(logger.Options{Level: "debug", Format: "json"})
//	logger.Info("migration applied", "app", "blog", "name", "0001_initial")
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/shashiranjanraj/dorm/config"
)

var (
	// L is the process-wide logger. Replace it only through Configure.
	L *slog.Logger

	level = new(slog.LevelVar)

	mu     sync.Mutex
	closer io.Closer
)

func init() {
	format := "text"
	switch config.AppEnv() {
	case "production", "prod":
		format = "json" // structured JSON for log aggregators
	}
	level.Set(ParseLevel(config.LogLevel()))
	L = slog.New(newHandler(os.Stderr, format))
	slog.SetDefault(L)
}

// Options describe a logger configuration. Zero fields keep the current
// value.
type Options struct {
	Level  string
	Format string // "text" or "json"
	Output io.Writer
	Mongo  *MongoOptions
}

// Configure rebuilds L from opts. A previously attached Mongo sink is
// flushed and closed first.
func Configure(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if opts.Level != "" {
		level.Set(ParseLevel(opts.Level))
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handler := newHandler(out, opts.Format)

	if closer != nil {
		_ = closer.Close()
		closer = nil
	}
	if opts.Mongo != nil && opts.Mongo.URI != "" {
		mh, err := NewMongoHandler(*opts.Mongo)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		closer = mh
		handler = NewMultiHandler(handler, mh)
	}

	L = slog.New(handler)
	slog.SetDefault(L)
	return nil
}

// SetLevel changes the level of the current handler chain in place.
func SetLevel(name string) { level.Set(ParseLevel(name)) }

// Close flushes and detaches any asynchronous sink.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
		closer = nil
	}
}

// ParseLevel maps a level name to a slog.Level; unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ─────────────────────────────────────────────
// Short-hand helpers (use base logger)
// ─────────────────────────────────────────────

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at INFO level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at WARN level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at ERROR level.
func Error(msg string, args ...any) { L.Error(msg, args...) }
