package bootstrap_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/dorm/pkg/bootstrap"
	"github.com/shashiranjanraj/dorm/pkg/conf"
	"github.com/shashiranjanraj/dorm/pkg/orm"
	"github.com/shashiranjanraj/dorm/pkg/project"
	"github.com/shashiranjanraj/dorm/pkg/searchpath"
	"github.com/shashiranjanraj/dorm/pkg/settings"
)

type Entry struct {
	ID    uint64 `gorm:"primaryKey"`
	Title string
}

func projectRoot(t *testing.T, settingsJSON string) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	if settingsJSON != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, "settings.json"), []byte(settingsJSON), 0o644))
	}
	return root
}

func newEngine(t *testing.T, dirs ...string) *orm.Engine {
	t.Helper()
	catalog := orm.NewCatalog()
	catalog.Register("journal", &Entry{})
	e := orm.New(catalog, searchpath.New(dirs...))
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestSetupBootstrapsOnce(t *testing.T) {
	root := projectRoot(t, `{"INSTALLED_APPS": ["journal"], "DEBUG": true, "helper": 1}`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "journal"), 0o755))
	e := newEngine(t, "/opt/shared")
	b := bootstrap.ForEngine(e)

	assert.ErrorIs(t, b.EnsureSetup(), conf.ErrNotConfigured)

	require.NoError(t, b.Setup(context.Background(), root))
	require.NoError(t, b.EnsureSetup())
	assert.True(t, e.Ready())
	assert.Equal(t, []string{root, "/opt/shared"}, e.SearchPath().Dirs())

	raw := e.Settings().Raw()
	assert.Equal(t, "BigAutoField", raw["DEFAULT_AUTO_FIELD"])
	assert.Equal(t, root, raw["BASE_DIR"])
	assert.NotContains(t, raw, "helper")

	app, err := e.App("journal")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "journal"), app.Dir)

	require.NoError(t, b.Setup(context.Background(), root))
	require.NoError(t, b.Setup(context.Background(), ""))
	assert.Equal(t, []string{root, "/opt/shared"}, e.SearchPath().Dirs())
}

func TestSetupMissingSettings(t *testing.T) {
	root := projectRoot(t, "")
	b := bootstrap.ForEngine(newEngine(t))

	err := b.Setup(context.Background(), root)

	var notFound *settings.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, root, notFound.Root)
	assert.Contains(t, err.Error(), root)
	assert.ErrorIs(t, b.EnsureSetup(), conf.ErrNotConfigured)
}

func TestSetupInvalidProjectPath(t *testing.T) {
	root := projectRoot(t, `{}`)
	b := bootstrap.ForEngine(newEngine(t))

	err := b.Setup(context.Background(), filepath.Join(root, "settings.json"))

	var invalid *project.InvalidPathError
	assert.True(t, errors.As(err, &invalid))
	assert.False(t, b.State().IsConfigured())
}

type recordingEngine struct {
	state *conf.State
	path  *searchpath.Path
	root  string
	calls int
	sawOK bool
}

func (e *recordingEngine) Setup(context.Context) error {
	e.calls++
	e.sawOK = e.state.IsConfigured() && e.path.Contains(e.root)
	return nil
}

type mockLoader struct {
	mock.Mock
}

func (l *mockLoader) Load(root string) (settings.Map, error) {
	args := l.Called(root)
	m, _ := args.Get(0).(settings.Map)
	return m, args.Error(1)
}

func TestSetupOrdersEngineLast(t *testing.T) {
	root := projectRoot(t, "")
	state := conf.New(&orm.SettingsHolder{})
	path := searchpath.New()
	engine := &recordingEngine{state: state, path: path, root: root}
	loader := &mockLoader{}
	loader.On("Load", root).Return(settings.Map{"DEFAULT_AUTO_FIELD": "BigAutoField"}, nil).Once()
	b := bootstrap.New(state, loader, path, engine)

	require.NoError(t, b.Setup(context.Background(), root))
	require.NoError(t, b.Setup(context.Background(), root))

	assert.Equal(t, 1, engine.calls)
	loader.AssertExpectations(t)
	assert.True(t, engine.sawOK)
}

func TestSetupSurfacesEngineErrors(t *testing.T) {
	root := projectRoot(t, `{"INSTALLED_APPS": ["missing"]}`)
	e := newEngine(t)
	b := bootstrap.ForEngine(e)

	err := b.Setup(context.Background(), root)

	var notFound *orm.AppNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.False(t, e.Ready())
}
