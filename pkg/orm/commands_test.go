package orm_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/dorm/pkg/migration"
	"github.com/shashiranjanraj/dorm/pkg/orm"
	"github.com/shashiranjanraj/dorm/pkg/searchpath"
)

func TestCommandNames(t *testing.T) {
	cmds := orm.New(orm.NewCatalog(), searchpath.New()).Commands("dorm", &bytes.Buffer{}, &bytes.Buffer{})

	assert.Equal(t, []string{
		"check", "diffsettings", "dumpdata", "flush", "makemigrations", "migrate",
		"rollback", "runserver", "showmigrations", "startapp", "startproject",
	}, cmds.Names())
	assert.True(t, cmds.Has("migrate"))
	assert.False(t, cmds.Has("init"))
}

func TestCommandHelpText(t *testing.T) {
	cmds := orm.New(orm.NewCatalog(), searchpath.New()).Commands("dorm", &bytes.Buffer{}, &bytes.Buffer{})

	help := cmds.HelpText()

	assert.True(t, strings.HasPrefix(help, "Type 'dorm help <subcommand>' for help on a specific subcommand."))
	assert.Contains(t, help, orm.SubcommandsMarker+"\n\n"+orm.SectionLabel+"\n    check\n")
	assert.Contains(t, help, "    startproject\n")
}

func TestCommandUsage(t *testing.T) {
	cmds := orm.New(orm.NewCatalog(), searchpath.New()).Commands("dorm", &bytes.Buffer{}, &bytes.Buffer{})

	usage, err := cmds.Usage("migrate")
	require.NoError(t, err)
	assert.Contains(t, usage, "Updates database schema")
	assert.Contains(t, usage, "--database")

	_, err = cmds.Usage("nope")
	assert.EqualError(t, err, `orm: unknown command "nope"`)
}

func TestCommandsRequireSetup(t *testing.T) {
	var out bytes.Buffer
	cmds := orm.New(orm.NewCatalog(), searchpath.New()).Commands("dorm", &out, &out)

	for _, name := range []string{"check", "migrate", "makemigrations", "dumpdata"} {
		err := cmds.Run(context.Background(), name, nil)
		assert.ErrorIs(t, err, orm.ErrNotReady, name)
	}
	assert.EqualError(t, cmds.Run(context.Background(), "nope", nil), `orm: unknown command "nope"`)
}

func TestCommandRejectsBadArgs(t *testing.T) {
	var out bytes.Buffer
	cmds := orm.New(orm.NewCatalog(), searchpath.New()).Commands("dorm", &out, &out)

	err := cmds.Run(context.Background(), "migrate", []string{"a", "b"})
	assert.Error(t, err)
}

func TestDiffSettings(t *testing.T) {
	root := t.TempDir()
	e, _ := newEngine(t, root)

	var out bytes.Buffer
	require.NoError(t, e.Commands("dorm", &out, &out).Run(context.Background(), "diffsettings", nil))

	text := out.String()
	assert.Contains(t, text, `DATABASES = {"default":{"ENGINE":"sqlite3","NAME":"db.sqlite3"}}`)
	assert.NotContains(t, text, "TIME_ZONE")
	assert.NotContains(t, text, "###")

	out.Reset()
	require.NoError(t, e.Commands("dorm", &out, &out).Run(context.Background(), "diffsettings", []string{"--all"}))
	assert.Contains(t, out.String(), `TIME_ZONE = "UTC"`)
}

func TestStartApp(t *testing.T) {
	root := t.TempDir()
	e, _ := newEngine(t, root)

	var out bytes.Buffer
	cmds := e.Commands("dorm", &out, &out)
	require.NoError(t, cmds.Run(context.Background(), "startapp", []string{"shop.billing"}))

	models, err := os.ReadFile(filepath.Join(root, "shop", "billing", "models.go"))
	require.NoError(t, err)
	assert.Contains(t, string(models), "package billing")
	assert.Contains(t, string(models), "ID        uint64")
	assert.Contains(t, string(models), `orm.RegisterApp("shop.billing", &Example{})`)
	assert.FileExists(t, filepath.Join(root, "shop", "billing", "migrations", "doc.go"))
	assert.Contains(t, out.String(), "✅  Created: ")

	err = cmds.Run(context.Background(), "startapp", []string{"shop.billing"})
	assert.ErrorContains(t, err, "file already exists")

	err = cmds.Run(context.Background(), "startapp", []string{"Bad-Name"})
	assert.ErrorContains(t, err, "not a valid app name")
}

func TestStartProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mysite")
	var out bytes.Buffer
	cmds := orm.New(orm.NewCatalog(), searchpath.New()).Commands("dorm", &out, &out)

	require.NoError(t, cmds.Run(context.Background(), "startproject", []string{"example.com/mysite", dir}))

	src, err := os.ReadFile(filepath.Join(dir, "main.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "dorm.Main()")
	assert.Contains(t, string(src), `_ "example.com/mysite/blog"`)
	assert.FileExists(t, filepath.Join(dir, "settings.hcl"))
	assert.Contains(t, out.String(), "go mod init example.com/mysite")
}

// ─── Database-backed commands ─────────────────────────────────────────────────

// readyEngine sets up an engine with a blog app that has a migration, and a
// tags app without one.
func readyEngine(t *testing.T) (*orm.Engine, *gorm.DB) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "blog"), 0o755))

	reg := &migration.Registry{}
	reg.Register("blog", "0001_initial", migration.Func{
		UpFn:   func(db *gorm.DB) error { return db.AutoMigrate(&Post{}) },
		DownFn: func(db *gorm.DB) error { return db.Migrator().DropTable(&Post{}) },
	})

	catalog := orm.NewCatalog()
	catalog.Register("blog", &Post{})
	catalog.Register("tags", &Tag{})
	e := orm.New(catalog, searchpath.New(root), orm.WithMigrations(reg))
	require.NoError(t, e.Settings().Configure(map[string]any{
		"BASE_DIR":       root,
		"INSTALLED_APPS": []any{"blog", "tags"},
		"DATABASES": map[string]any{
			"default": map[string]any{"ENGINE": "sqlite", "NAME": "db.sqlite3"},
		},
		"CACHES": map[string]any{
			"default": map[string]any{"BACKEND": "locmem"},
		},
	}))
	t.Cleanup(func() { _ = e.Close() })
	require.NoError(t, e.Setup(context.Background()))

	db, err := e.DB("default")
	if err != nil {
		t.Skipf("sqlite driver unavailable: %v", err)
	}
	return e, db
}

func TestMigrateAndShowMigrations(t *testing.T) {
	e, db := readyEngine(t)
	var out bytes.Buffer
	cmds := e.Commands("dorm", &out, &out)

	require.NoError(t, cmds.Run(context.Background(), "migrate", nil))
	text := out.String()
	assert.Contains(t, text, "  Synchronize unmigrated apps: tags\n")
	assert.Contains(t, text, "  Apply all migrations: blog\n")
	assert.Contains(t, text, "  Creating tables for tags... OK")
	assert.Contains(t, text, "Applying blog.0001_initial...")
	assert.True(t, db.Migrator().HasTable(&Post{}))
	assert.True(t, db.Migrator().HasTable(&Tag{}))

	out.Reset()
	require.NoError(t, cmds.Run(context.Background(), "showmigrations", []string{"blog"}))
	assert.Contains(t, out.String(), "[X] 0001_initial")

	out.Reset()
	require.NoError(t, cmds.Run(context.Background(), "rollback", nil))
	assert.Contains(t, out.String(), "Unapplying blog.0001_initial")
	assert.False(t, db.Migrator().HasTable(&Post{}))
}

func TestDumpDataAndFlush(t *testing.T) {
	e, db := readyEngine(t)
	var out bytes.Buffer
	cmds := e.Commands("dorm", &out, &out)
	require.NoError(t, cmds.Run(context.Background(), "migrate", nil))
	require.NoError(t, db.Create(&Post{Title: "hello"}).Error)
	require.NoError(t, db.Create(&Tag{Name: "go"}).Error)

	out.Reset()
	require.NoError(t, cmds.Run(context.Background(), "dumpdata", []string{"blog"}))
	var fixtures []orm.Fixture
	require.NoError(t, json.Unmarshal(out.Bytes(), &fixtures))
	require.Len(t, fixtures, 1)
	assert.Equal(t, "blog.post", fixtures[0].Model)
	assert.Equal(t, "hello", fixtures[0].Fields["title"])

	out.Reset()
	err := cmds.Run(context.Background(), "dumpdata", []string{"nope"})
	assert.EqualError(t, err, "unknown application or model: nope")

	cmds.SetInput(strings.NewReader("no\n"))
	require.NoError(t, cmds.Run(context.Background(), "flush", nil))
	assert.Contains(t, out.String(), "Flush cancelled.")

	out.Reset()
	require.NoError(t, cmds.Run(context.Background(), "flush", []string{"--no-input"}))
	assert.Contains(t, out.String(), "✅  Flushed 2 tables.")

	var count int64
	require.NoError(t, db.Model(&Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCheck(t *testing.T) {
	e, _ := readyEngine(t)
	var out bytes.Buffer

	require.NoError(t, e.Commands("dorm", &out, &out).Run(context.Background(), "check", nil))
	assert.Contains(t, out.String(), "tags: (orm.W001)")
	assert.Contains(t, out.String(), "System check identified 1 issues (0 silenced).")
}
