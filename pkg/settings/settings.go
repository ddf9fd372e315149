// Package settings locates and evaluates a project's settings file and turns
// it into a configuration map.
//
// A project keeps exactly one settings file at its root, named settings.<ext>
// where ext is one of hcl, toml, yaml, yml or json (searched in that order).
// Only bindings whose name is entirely upper case are settings; everything
// else in the file is a helper and is dropped.
//
//	m, err := settings.NewLoader().Load("/srv/blog")
//	s, err := settings.Decode(m)
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BaseName is the settings file name without extension.
const BaseName = "settings"

// DefaultFormat is the format `dorm init` writes.
const DefaultFormat = "hcl"

// Extensions lists the recognized settings formats in lookup priority.
var Extensions = []string{"hcl", "toml", "yaml", "yml", "json"}

// Map is a configuration map from setting name to value. Values are plain Go
// values: string, bool, int64, float64, []any and map[string]any.
type Map map[string]any

// Clone returns a shallow copy of m.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FileName returns settings.<ext>.
func FileName(ext string) string { return BaseName + "." + ext }

// Candidates returns every path Locate probes under root, in order.
func Candidates(root string) []string {
	out := make([]string, 0, len(Extensions))
	for _, ext := range Extensions {
		out = append(out, filepath.Join(root, FileName(ext)))
	}
	return out
}

// Locate returns the settings file under root, if any.
func Locate(root string) (string, bool) {
	for _, path := range Candidates(root) {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// IsSettingName reports whether name is made of A-Z, 0-9 and _ only and
// contains at least one letter.
func IsSettingName(name string) bool {
	hasLetter := false
	for i := 0; i < len(name); i++ {
		switch c := name[i]; {
		case c >= 'A' && c <= 'Z':
			hasLetter = true
		case c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return hasLetter
}

// Filter keeps only setting names from raw.
func Filter(raw map[string]any) Map {
	out := make(Map, len(raw))
	for k, v := range raw {
		if IsSettingName(k) {
			out[k] = v
		}
	}
	return out
}

// ─── Errors ───────────────────────────────────────────────────────────────────

// NotFoundError is returned when no settings file exists at the project root.
type NotFoundError struct {
	Root string
	Path string // the canonical settings file the project should have
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "settings: no settings file found at %s\n", e.Path)
	b.WriteString("Ensure that your project is initialized properly:\n")
	fmt.Fprintf(&b, "  - run the command from the project root (the directory that holds %s), or\n", filepath.Base(e.Path))
	b.WriteString("  - pass the project path explicitly (dorm --project-dir <path>, or dorm.Setup(ctx, path)).\n")
	fmt.Fprintf(&b, "Execute `dorm init` or manually create one of: %s", strings.Join(fileNames(), ", "))
	return b.String()
}

func fileNames() []string {
	out := make([]string, 0, len(Extensions))
	for _, ext := range Extensions {
		out = append(out, FileName(ext))
	}
	return out
}

// ImproperlyConfiguredError reports a setting with a wrong type or value.
type ImproperlyConfiguredError struct {
	Setting string
	Reason  string
	Err     error
}

func (e *ImproperlyConfiguredError) Error() string {
	msg := fmt.Sprintf("settings: %s is improperly configured: %s", e.Setting, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ImproperlyConfiguredError) Unwrap() error { return e.Err }

// EvalError wraps a failure to evaluate the settings file itself.
type EvalError struct {
	Path string
	Err  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("settings: evaluate %s: %v", e.Path, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }
