package settings

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shashiranjanraj/dorm/pkg/logger"
)

// Settings is the typed view of a configuration map.
type Settings struct {
	BaseDir          string
	Debug            bool
	InstalledApps    []string
	Databases        map[string]Database
	DefaultAutoField string
	TimeZone         string
	UseTZ            bool
	Caches           map[string]Cache
	Storages         map[string]Storage
	Logging          Logging

	// Extra holds upper-case settings dorm does not know about. Projects may
	// define their own.
	Extra Map
}

// Database is one entry of DATABASES.
type Database struct {
	Engine     string         `json:"ENGINE"`
	Name       string         `json:"NAME"`
	User       string         `json:"USER"`
	Password   string         `json:"PASSWORD"`
	Host       string         `json:"HOST"`
	Port       int            `json:"PORT"`
	Options    map[string]any `json:"OPTIONS"`
	ConnMaxAge int            `json:"CONN_MAX_AGE"`
}

// Cache is one entry of CACHES.
type Cache struct {
	Backend   string `json:"BACKEND"`
	Location  string `json:"LOCATION"`
	Timeout   int    `json:"TIMEOUT"`
	KeyPrefix string `json:"KEY_PREFIX"`
}

// Storage is one entry of STORAGES.
type Storage struct {
	Backend string         `json:"BACKEND"`
	Options map[string]any `json:"OPTIONS"`
}

// Logging configures the engine logger.
type Logging struct {
	Level  string        `json:"LEVEL"`
	Format string        `json:"FORMAT"`
	Mongo  *MongoLogging `json:"MONGO"`
}

// MongoLogging enables the MongoDB log sink.
type MongoLogging struct {
	URI        string `json:"URI"`
	Database   string `json:"DATABASE"`
	Collection string `json:"COLLECTION"`
}

// Auto field names accepted by DEFAULT_AUTO_FIELD.
var AutoFields = map[string]string{
	"AutoField":      "uint32",
	"BigAutoField":   "uint64",
	"SmallAutoField": "uint16",
}

var (
	cacheBackends   = []string{"redis", "locmem", "dummy"}
	storageBackends = []string{"local", "s3"}
	logFormats      = []string{"", "text", "json"}
)

// Defaults returns the value every known setting takes when the settings
// file omits it.
func Defaults(baseDir string) Map {
	return Map{
		"BASE_DIR":           baseDir,
		"DEBUG":              false,
		"INSTALLED_APPS":     []any{},
		"DATABASES":          map[string]any{},
		"DEFAULT_AUTO_FIELD": DefaultAutoField,
		"TIME_ZONE":          "UTC",
		"USE_TZ":             true,
		"CACHES":             map[string]any{},
		"STORAGES": map[string]any{
			"default": map[string]any{"BACKEND": "local", "OPTIONS": map[string]any{"location": baseDir}},
		},
		"LOGGING": map[string]any{},
	}
}

// Decode validates m against the known settings and returns the typed view.
// Unknown upper-case keys are kept in Extra.
func Decode(m Map) (*Settings, error) {
	s := &Settings{}
	base, _ := m["BASE_DIR"].(string)

	fields := map[string]any{
		"BASE_DIR":           &s.BaseDir,
		"DEBUG":              &s.Debug,
		"INSTALLED_APPS":     &s.InstalledApps,
		"DATABASES":          &s.Databases,
		"DEFAULT_AUTO_FIELD": &s.DefaultAutoField,
		"TIME_ZONE":          &s.TimeZone,
		"USE_TZ":             &s.UseTZ,
		"CACHES":             &s.Caches,
		"STORAGES":           &s.Storages,
		"LOGGING":            &s.Logging,
	}

	defaults := Defaults(base)
	for _, name := range sortedKeys(fields) {
		val, ok := m[name]
		if !ok || val == nil {
			val = defaults[name]
		}
		if err := assign(val, fields[name]); err != nil {
			return nil, &ImproperlyConfiguredError{Setting: name, Reason: "unexpected value type", Err: err}
		}
	}

	s.Extra = Map{}
	for k, v := range m {
		if _, known := fields[k]; !known {
			s.Extra[k] = v
		}
	}
	if len(s.Extra) > 0 {
		logger.Debug("settings: custom settings present", "names", strings.Join(sortedKeys(s.Extra), ","))
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if _, ok := AutoFields[s.DefaultAutoField]; !ok {
		return &ImproperlyConfiguredError{
			Setting: "DEFAULT_AUTO_FIELD",
			Reason:  fmt.Sprintf("%q is not one of %s", s.DefaultAutoField, strings.Join(sortedKeys(AutoFields), ", ")),
		}
	}

	seen := make(map[string]bool, len(s.InstalledApps))
	for _, app := range s.InstalledApps {
		if strings.TrimSpace(app) == "" {
			return &ImproperlyConfiguredError{Setting: "INSTALLED_APPS", Reason: "empty application label"}
		}
		if seen[app] {
			return &ImproperlyConfiguredError{Setting: "INSTALLED_APPS", Reason: fmt.Sprintf("application labels aren't unique, duplicates: %s", app)}
		}
		seen[app] = true
	}

	for alias, db := range s.Databases {
		if db.Engine == "" {
			return &ImproperlyConfiguredError{Setting: "DATABASES", Reason: fmt.Sprintf("%q has no ENGINE", alias)}
		}
	}
	for alias, c := range s.Caches {
		if !contains(cacheBackends, c.Backend) {
			return &ImproperlyConfiguredError{Setting: "CACHES", Reason: fmt.Sprintf("%q has unsupported BACKEND %q", alias, c.Backend)}
		}
	}
	for alias, st := range s.Storages {
		if !contains(storageBackends, st.Backend) {
			return &ImproperlyConfiguredError{Setting: "STORAGES", Reason: fmt.Sprintf("%q has unsupported BACKEND %q", alias, st.Backend)}
		}
	}
	if !contains(logFormats, strings.ToLower(s.Logging.Format)) {
		return &ImproperlyConfiguredError{Setting: "LOGGING", Reason: fmt.Sprintf("unsupported FORMAT %q", s.Logging.Format)}
	}
	return nil
}

// IsInstalled reports whether label is listed in INSTALLED_APPS.
func (s *Settings) IsInstalled(label string) bool {
	return contains(s.InstalledApps, label)
}

// assign moves a Map value into a typed destination through its JSON form.
func assign(val any, dst any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
