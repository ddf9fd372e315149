package database_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/dorm/pkg/database"
	"github.com/shashiranjanraj/dorm/pkg/settings"
)

func TestDSN(t *testing.T) {
	cases := []struct {
		name string
		cfg  settings.Database
		want string
	}{
		{
			name: "sqlite relative",
			cfg:  settings.Database{Engine: "sqlite3", Name: "db.sqlite3"},
			want: filepath.Join("/srv/app", "db.sqlite3"),
		},
		{
			name: "sqlite memory",
			cfg:  settings.Database{Engine: "sqlite", Name: ":memory:"},
			want: ":memory:",
		},
		{
			name: "sqlite options",
			cfg:  settings.Database{Engine: "sqlite", Name: "/tmp/x.db", Options: map[string]any{"_busy_timeout": 5000}},
			want: "/tmp/x.db?_busy_timeout=5000",
		},
		{
			name: "postgres",
			cfg:  settings.Database{Engine: "postgresql", Name: "shop", User: "u", Password: "p", Host: "db"},
			want: "host=db port=5432 user=u password=p dbname=shop sslmode=disable",
		},
		{
			name: "mysql",
			cfg:  settings.Database{Engine: "mysql", Name: "shop", User: "u", Password: "p", Port: 3307},
			want: "u:p@tcp(localhost:3307)/shop?charset=utf8mb4&loc=Local&parseTime=True",
		},
		{
			name: "sqlserver",
			cfg:  settings.Database{Engine: "sqlserver", Name: "shop", User: "sa", Password: "pw", Host: "mssql"},
			want: "sqlserver://sa:pw@mssql:1433?database=shop",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := database.DSN("/srv/app", tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDSNRejectsUnknownEngine(t *testing.T) {
	_, err := database.DSN("/srv/app", settings.Database{Engine: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported ENGINE "oracle"`)

	_, err = database.DSN("/srv/app", settings.Database{Engine: "sqlite"})
	assert.Error(t, err)
}

func TestGetUnknownAlias(t *testing.T) {
	conns := database.New("/srv/app", map[string]settings.Database{}, false)

	_, err := conns.Get("replica")
	var unknown *database.UnknownAliasError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "replica", unknown.Alias)
}

func TestGetReusesSQLiteConnection(t *testing.T) {
	root := t.TempDir()
	conns := database.New(root, map[string]settings.Database{
		"default": {Engine: "sqlite", Name: "db.sqlite3"},
	}, false)
	t.Cleanup(func() { _ = conns.Close() })

	first, err := conns.Get("default")
	if err != nil {
		t.Skipf("sqlite driver unavailable: %v", err)
	}
	if err := conns.Ping(context.Background(), "default"); err != nil {
		t.Skipf("sqlite driver unavailable: %v", err)
	}
	second, err := conns.Get("default")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, []string{"default"}, conns.Aliases())
	assert.FileExists(t, filepath.Join(root, "db.sqlite3"))
}
