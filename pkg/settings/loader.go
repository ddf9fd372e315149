package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/shashiranjanraj/dorm/pkg/logger"
)

// Default values injected when the settings file leaves them out.
const (
	DefaultAutoField = "BigAutoField"
)

// Loader evaluates settings files. The zero value is not usable; use
// NewLoader.
type Loader struct {
	lookupEnv func(string) (string, bool)
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithEnv replaces the environment lookup used by env() and ${NAME}.
func WithEnv(lookup func(string) (string, bool)) LoaderOption {
	return func(l *Loader) { l.lookupEnv = lookup }
}

// NewLoader returns a Loader reading the process environment.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load evaluates the settings file under root and returns a fresh
// configuration map on every call. It never touches an already applied
// configuration.
func (l *Loader) Load(root string) (Map, error) {
	path, ok := Locate(root)
	if !ok {
		return nil, &NotFoundError{Root: root, Path: filepath.Join(root, FileName(DefaultFormat))}
	}
	l.warnShadowed(root, path)

	raw, err := l.evaluate(path, root)
	if err != nil {
		return nil, &EvalError{Path: path, Err: err}
	}

	m := Filter(raw)
	if _, ok := m["DEFAULT_AUTO_FIELD"]; !ok {
		m["DEFAULT_AUTO_FIELD"] = DefaultAutoField
	}
	if _, ok := m["BASE_DIR"]; !ok {
		m["BASE_DIR"] = root
	}

	logger.Debug("settings: loaded", "path", path, "settings", len(m), "ignored", len(raw)-len(m))
	return m, nil
}

func (l *Loader) warnShadowed(root, chosen string) {
	for _, path := range Candidates(root) {
		if path == chosen {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			logger.Warn("settings: ignoring extra settings file", "path", path, "using", chosen)
		}
	}
}

func (l *Loader) evaluate(path, root string) (map[string]any, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "hcl" {
		return evalHCL(path, root, l.lookupEnv)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := map[string]any{}
	switch ext {
	case "toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported settings format %q", ext)
	}

	vars := l.expander(root)
	for k, v := range raw {
		raw[k] = normalize(v, vars)
	}
	return raw, nil
}

var refPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expander resolves ${BASE_DIR} and ${ENV_NAME}; unknown references are kept
// verbatim.
func (l *Loader) expander(root string) func(string) string {
	return func(s string) string {
		return refPattern.ReplaceAllStringFunc(s, func(ref string) string {
			name := refPattern.FindStringSubmatch(ref)[1]
			if name == "BASE_DIR" {
				return root
			}
			if v, ok := l.lookupEnv(name); ok {
				return v
			}
			return ref
		})
	}
}

// normalize converts decoder-specific shapes into the Map value set and
// expands string references.
func normalize(v any, expand func(string) string) any {
	switch t := v.(type) {
	case string:
		return expand(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case int:
		return int64(t)
	case int64, float64, bool, nil:
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e, expand)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e, expand)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e, expand)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e, expand)
		}
		return out
	default:
		return fmt.Sprint(t)
	}
}
