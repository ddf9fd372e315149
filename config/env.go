// Package config holds the settings of the dorm tool itself (log level,
// environment, default project directory), as opposed to the settings file
// of the project dorm bootstraps.
//
// Values are merged from built-in defaults, a .env file in the working
// directory and finally the process environment, which always wins.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	defaultLogLevel = "info"
	defaultAppEnv   = "local"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load reads .env once per process. Later calls return the first result.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFrom(".env", os.LookupEnv)
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"DORM_PROJECT_DIR":  "",
		"DORM_LOG_LEVEL":    defaultLogLevel,
		"DORM_ENV":          defaultAppEnv,
		"DORM_METRICS_FILE": "",
		"DORM_NO_DELEGATE":  "",
	}
}

// ProjectDir is the explicit project root to bootstrap, empty for the
// working directory.
func ProjectDir() string {
	_ = Load()
	return get("DORM_PROJECT_DIR", "")
}

// LogLevel is one of debug, info, warn, error.
func LogLevel() string {
	_ = Load()
	return strings.ToLower(get("DORM_LOG_LEVEL", defaultLogLevel))
}

// AppEnv is the deployment environment; production switches logs to JSON.
func AppEnv() string {
	_ = Load()
	return strings.ToLower(get("DORM_ENV", defaultAppEnv))
}

// MetricsFile is the path the CLI writes its prometheus textfile to after a
// run. Empty disables the export.
func MetricsFile() string {
	_ = Load()
	return get("DORM_METRICS_FILE", "")
}

// NoDelegate reports whether the global CLI must run every command in
// process instead of handing it to the project's own entrypoint.
func NoDelegate() bool {
	_ = Load()
	switch strings.ToLower(get("DORM_NO_DELEGATE", "")) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Get reads any key with a fallback.
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}

func loadFrom(envPath string, lookup func(string) (string, bool)) error {
	loaded := defaultValues()

	if err := mergeDotEnv(envPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	for key := range loaded {
		if v, ok := lookup(key); ok {
			loaded[key] = strings.TrimSpace(v)
		}
	}

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

// mergeDotEnv only honours DORM_ keys; the rest of a project's .env belongs
// to the project.
func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		if !strings.HasPrefix(key, "DORM_") {
			continue
		}
		value := strings.TrimSpace(line[idx+1:])
		out[key] = strings.Trim(value, `"'`)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

func get(key, fallback string) string {
	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}
