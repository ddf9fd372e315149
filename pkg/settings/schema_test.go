package settings_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/dorm/pkg/settings"
)

func TestDecodeAppliesDefaults(t *testing.T) {
	s, err := settings.Decode(settings.Map{"BASE_DIR": "/srv/app", "DEFAULT_AUTO_FIELD": "BigAutoField"})
	require.NoError(t, err)

	assert.Equal(t, "/srv/app", s.BaseDir)
	assert.Equal(t, "UTC", s.TimeZone)
	assert.True(t, s.UseTZ)
	assert.Empty(t, s.InstalledApps)
	require.Contains(t, s.Storages, "default")
	assert.Equal(t, "local", s.Storages["default"].Backend)
	assert.Equal(t, "/srv/app", s.Storages["default"].Options["location"])
}

func TestDecodeTypedValues(t *testing.T) {
	m := settings.Map{
		"DEFAULT_AUTO_FIELD": "AutoField",
		"INSTALLED_APPS":     []any{"blog"},
		"DATABASES": map[string]any{
			"default": map[string]any{"ENGINE": "postgres", "NAME": "blog", "PORT": int64(5433)},
		},
		"CACHES": map[string]any{
			"default": map[string]any{"BACKEND": "redis", "LOCATION": "redis://localhost:6379/1"},
		},
		"LOGGING":   map[string]any{"LEVEL": "debug", "FORMAT": "json"},
		"MY_OPTION": "custom",
	}

	s, err := settings.Decode(m)
	require.NoError(t, err)

	assert.Equal(t, 5433, s.Databases["default"].Port)
	assert.Equal(t, "redis", s.Caches["default"].Backend)
	assert.Equal(t, "json", s.Logging.Format)
	assert.Equal(t, "custom", s.Extra["MY_OPTION"])
	assert.True(t, s.IsInstalled("blog"))
	assert.False(t, s.IsInstalled("shop"))
}

func TestDecodeRejectsWrongTypes(t *testing.T) {
	_, err := settings.Decode(settings.Map{"DEFAULT_AUTO_FIELD": "BigAutoField", "INSTALLED_APPS": "blog"})

	var improper *settings.ImproperlyConfiguredError
	require.True(t, errors.As(err, &improper))
	assert.Equal(t, "INSTALLED_APPS", improper.Setting)
}

func TestDecodeValidation(t *testing.T) {
	cases := map[string]settings.Map{
		"DEFAULT_AUTO_FIELD": {"DEFAULT_AUTO_FIELD": "UUIDField"},
		"INSTALLED_APPS":     {"DEFAULT_AUTO_FIELD": "BigAutoField", "INSTALLED_APPS": []any{"blog", "blog"}},
		"DATABASES":          {"DEFAULT_AUTO_FIELD": "BigAutoField", "DATABASES": map[string]any{"default": map[string]any{"NAME": "x"}}},
		"CACHES":             {"DEFAULT_AUTO_FIELD": "BigAutoField", "CACHES": map[string]any{"default": map[string]any{"BACKEND": "memcached"}}},
		"STORAGES":           {"DEFAULT_AUTO_FIELD": "BigAutoField", "STORAGES": map[string]any{"default": map[string]any{"BACKEND": "ftp"}}},
	}
	for setting, m := range cases {
		t.Run(setting, func(t *testing.T) {
			_, err := settings.Decode(m)
			var improper *settings.ImproperlyConfiguredError
			require.True(t, errors.As(err, &improper), "got %v", err)
			assert.Equal(t, setting, improper.Setting)
		})
	}
}
