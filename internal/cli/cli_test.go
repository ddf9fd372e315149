package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/dorm/internal/cli"
	"github.com/shashiranjanraj/dorm/pkg/bootstrap"
	"github.com/shashiranjanraj/dorm/pkg/dispatch"
	"github.com/shashiranjanraj/dorm/pkg/orm"
	"github.com/shashiranjanraj/dorm/pkg/searchpath"
	"github.com/shashiranjanraj/dorm/pkg/settings"
)

type Entry struct {
	ID   uint64 `gorm:"primaryKey"`
	Body string
}

type harness struct {
	cli    *cli.CLI
	engine *orm.Engine
	boot   *bootstrap.Bootstrapper
	out    *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	catalog := orm.NewCatalog()
	catalog.Register("journal", &Entry{})
	catalog.Register("notes")

	e := orm.New(catalog, searchpath.New())
	t.Cleanup(func() { _ = e.Close() })
	boot := bootstrap.ForEngine(e)
	out := &bytes.Buffer{}
	return &harness{
		cli:    cli.New(e, boot, cli.WithIO(bytes.NewReader(nil), out, out)),
		engine: e,
		boot:   boot,
		out:    out,
	}
}

func (h *harness) run(root string, args ...string) error {
	return h.cli.Run(context.Background(), append([]string{"--project-dir", root}, args...))
}

func tempRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return root
}

func TestInitCreatesSettingsOnce(t *testing.T) {
	root := tempRoot(t)
	h := newHarness(t)

	require.NoError(t, h.run(root, "init"))
	path := filepath.Join(root, "settings.hcl")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "INSTALLED_APPS = []")
	assert.Contains(t, h.out.String(), "✅  Created: "+path)
	assert.False(t, h.boot.State().IsConfigured())

	require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0o644))
	err = h.run(root, "init")
	var already *cli.AlreadyInitializedError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, path, already.Path)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# mine\n", string(after))
}

func TestInitFormat(t *testing.T) {
	root := tempRoot(t)
	h := newHarness(t)

	require.NoError(t, h.run(root, "init", "--format", "toml"))
	assert.FileExists(t, filepath.Join(root, "settings.toml"))

	// The generated file loads.
	m, err := settings.NewLoader().Load(root)
	require.NoError(t, err)
	assert.Empty(t, m["INSTALLED_APPS"])
	assert.Contains(t, m, "DATABASES")

	err = h.run(tempRoot(t), "init", "--format", "ini")
	assert.Error(t, err)
}

func TestInitRefusesOtherFormats(t *testing.T) {
	root := tempRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "settings.yaml"), []byte("DEBUG: true\n"), 0o644))

	err := newHarness(t).run(root, "init")

	var already *cli.AlreadyInitializedError
	require.True(t, errors.As(err, &already))
	assert.NoFileExists(t, filepath.Join(root, "settings.hcl"))
}

func TestHiddenCommandsAlwaysFail(t *testing.T) {
	assertDisabled := func(t *testing.T, h *harness, root string) {
		t.Helper()
		for _, name := range cli.Hidden {
			err := h.run(root, name, "x")
			var disabled *dispatch.DisabledError
			require.True(t, errors.As(err, &disabled), "%s in %s", name, root)
			assert.Equal(t, name, disabled.Name)
		}
	}

	t.Run("without settings", func(t *testing.T) {
		root := tempRoot(t)
		h := newHarness(t)

		assertDisabled(t, h, root)
		assert.False(t, h.boot.State().IsConfigured())
	})

	t.Run("configured", func(t *testing.T) {
		root := tempRoot(t)
		require.NoError(t, os.WriteFile(filepath.Join(root, "settings.json"), []byte(`{}`), 0o644))
		h := newHarness(t)
		require.NoError(t, h.boot.Setup(context.Background(), root))
		require.True(t, h.boot.State().IsConfigured())

		assertDisabled(t, h, root)
	})
}

func TestHelpNeedsNoSettings(t *testing.T) {
	root := tempRoot(t)
	h := newHarness(t)

	require.NoError(t, h.run(root))
	assert.Contains(t, h.out.String(), "Available subcommands:\n\n[dorm]\n    init\n\n[orm]\n")
	assert.NotContains(t, h.out.String(), "startapp")

	h.out.Reset()
	require.NoError(t, h.run(root, "help", "--commands"))
	assert.Equal(t, "check\ndiffsettings\ndumpdata\nflush\ninit\nmakemigrations\nmigrate\nrollback\nrunserver\nshowmigrations\n", h.out.String())

	h.out.Reset()
	require.NoError(t, h.run(root, "help", "runserver"))
	assert.Contains(t, h.out.String(), "runserver [addrport]")

	h.out.Reset()
	require.NoError(t, h.run(root, "help", "init"))
	assert.Contains(t, h.out.String(), "--format")
	assert.False(t, h.boot.State().IsConfigured())
}

func TestMissingSettings(t *testing.T) {
	root := tempRoot(t)

	err := newHarness(t).run(root, "migrate")

	var notFound *settings.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Contains(t, err.Error(), root)
}

func TestMakeMigrationsEnsuresPackages(t *testing.T) {
	root := tempRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "settings.json"), []byte(`{"INSTALLED_APPS": ["journal", "notes"]}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "journal"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0o755))
	h := newHarness(t)

	require.NoError(t, h.run(root, "makemigrations"))

	marker := filepath.Join(root, "journal", "migrations", "doc.go")
	content, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "package migrations\n", string(content))
	assert.NoDirExists(t, filepath.Join(root, "notes", "migrations"))
	assert.FileExists(t, filepath.Join(root, "journal", "migrations", "0001_initial.go"))
	assert.Contains(t, h.out.String(), "Migrations for 'journal':")
	assert.Equal(t, root, h.engine.SearchPath().Dirs()[0])

	// A second run in the same process is a no-op.
	h.out.Reset()
	require.NoError(t, h.run(root, "makemigrations"))
	assert.Equal(t, "No changes detected\n", h.out.String())
	again, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, content, again)
}

func TestMakeMigrationsIgnoresBaseDir(t *testing.T) {
	root := tempRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "settings.json"), []byte(`{"BASE_DIR": "${BASE_DIR}/var", "INSTALLED_APPS": ["journal"]}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "journal"), 0o755))
	h := newHarness(t)

	require.NoError(t, h.run(root, "makemigrations"))

	s, err := h.engine.Settings().Current()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "var"), s.BaseDir)
	assert.FileExists(t, filepath.Join(root, "journal", "migrations", "doc.go"))
	assert.FileExists(t, filepath.Join(root, "journal", "migrations", "0001_initial.go"))
	assert.Contains(t, h.out.String(), "Migrations for 'journal':")
	assert.NoDirExists(t, filepath.Join(root, "var"))
}

func TestEnsureMigrationPackagesKeepsExistingMarker(t *testing.T) {
	root := tempRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "settings.json"), []byte(`{"INSTALLED_APPS": ["journal"]}`), 0o644))
	marker := filepath.Join(root, "journal", "migrations", "doc.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(marker), 0o755))
	require.NoError(t, os.WriteFile(marker, []byte("// Package migrations is mine.\npackage migrations\n"), 0o644))

	h := newHarness(t)
	require.NoError(t, h.boot.Setup(context.Background(), root))

	created, err := cli.EnsureMigrationPackages(h.engine)
	require.NoError(t, err)
	assert.Empty(t, created)

	content, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "// Package migrations is mine.\npackage migrations\n", string(content))
}

func TestEnsureMigrationPackagesBeforeSetup(t *testing.T) {
	_, err := cli.EnsureMigrationPackages(orm.New(orm.NewCatalog(), searchpath.New()))
	assert.ErrorIs(t, err, orm.ErrNotReady)
}
