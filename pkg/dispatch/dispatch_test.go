package dispatch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/dorm/pkg/dispatch"
)

type fakeTable struct {
	names []string
	ran   []string
	help  string
}

func newTable(names ...string) *fakeTable {
	sort.Strings(names)
	help := "Type 'dorm help <subcommand>' for help on a specific subcommand.\n\nAvailable subcommands:\n\n[orm]\n"
	for _, n := range names {
		help += "    " + n + "\n"
	}
	return &fakeTable{names: names, help: help}
}

func (t *fakeTable) Names() []string { return t.names }

func (t *fakeTable) Has(name string) bool {
	for _, n := range t.names {
		if n == name {
			return true
		}
	}
	return false
}

func (t *fakeTable) Run(_ context.Context, name string, args []string) error {
	t.ran = append(t.ran, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return nil
}

func (t *fakeTable) Usage(name string) (string, error) { return "usage of " + name + "\n", nil }

func (t *fakeTable) HelpText() string { return t.help }

func newDispatcher(table *fakeTable, out *bytes.Buffer, opts ...dispatch.Option) *dispatch.Dispatcher {
	opts = append([]dispatch.Option{
		dispatch.Inject(dispatch.Command{
			Name:  "init",
			Short: "Create a settings file.",
			Run:   func(context.Context, []string) error { return nil },
		}),
		dispatch.Hide("startapp", "startproject", "runserver"),
		dispatch.WithOutput(out),
	}, opts...)
	return dispatch.New("dorm", table, opts...)
}

func TestFetchPriority(t *testing.T) {
	table := newTable("migrate", "startapp", "init")
	d := newDispatcher(table, &bytes.Buffer{})

	// Injected wins over a table command of the same name.
	cmd, err := d.Fetch("init")
	require.NoError(t, err)
	require.NoError(t, cmd.Run(context.Background(), nil))
	assert.Empty(t, table.ran)

	cmd, err = d.Fetch("startapp")
	require.NoError(t, err)
	err = cmd.Run(context.Background(), []string{"blog"})
	var disabled *dispatch.DisabledError
	require.True(t, errors.As(err, &disabled))
	assert.Equal(t, "startapp", disabled.Name)
	assert.Contains(t, err.Error(), `"startapp"`)

	cmd, err = d.Fetch("migrate")
	require.NoError(t, err)
	require.NoError(t, cmd.Run(context.Background(), []string{"blog"}))
	assert.Equal(t, []string{"migrate blog"}, table.ran)

	_, err = d.Fetch("bogus")
	var unknown *dispatch.UnknownCommandError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "bogus", unknown.Name)
}

func TestRenderHelpCommandsOnly(t *testing.T) {
	d := newDispatcher(newTable("migrate", "check", "startapp", "runserver"), &bytes.Buffer{})

	assert.Equal(t, "check\ninit\nmigrate\n", d.RenderHelp(true))
}

func TestRenderHelpFull(t *testing.T) {
	d := newDispatcher(newTable("migrate", "check", "startapp", "startproject"), &bytes.Buffer{})

	want := "Type 'dorm help <subcommand>' for help on a specific subcommand.\n" +
		"\n" +
		"Available subcommands:\n" +
		"\n" +
		"[dorm]\n" +
		"    init\n" +
		"\n" +
		"[orm]\n" +
		"    check\n" +
		"    migrate\n"
	assert.Equal(t, want, d.RenderHelp(false))
}

func TestRenderHelpWithoutMarker(t *testing.T) {
	table := newTable("migrate")
	table.help = "Commands:\n    migrate\n"
	d := newDispatcher(table, &bytes.Buffer{}, dispatch.WithSectionLabel("[extra]"))

	assert.Equal(t, "Commands:\n    migrate\n\n[extra]\n    init\n", d.RenderHelp(false))
}

func TestBeforeSetupRejectsHiddenNames(t *testing.T) {
	d := newDispatcher(newTable("startapp"), &bytes.Buffer{})

	for _, name := range []string{"startapp", "startproject", "runserver"} {
		done, err := d.BeforeSetup(context.Background(), name, nil)
		assert.True(t, done, name)
		var disabled *dispatch.DisabledError
		assert.True(t, errors.As(err, &disabled), name)
	}
}

func TestInjectedNameIsNeverHidden(t *testing.T) {
	ran := false
	d := newDispatcher(newTable("migrate"), &bytes.Buffer{},
		dispatch.Inject(dispatch.Command{
			Name: "startapp",
			Run:  func(context.Context, []string) error { ran = true; return nil },
		}),
	)

	assert.False(t, d.IsHidden("startapp"))
	done, err := d.BeforeSetup(context.Background(), "startapp", nil)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, d.Execute(context.Background(), "startapp", nil))
	assert.True(t, ran)
	assert.Contains(t, d.Names(), "startapp")
}

func TestHooks(t *testing.T) {
	var calls []string
	d := newDispatcher(newTable("makemigrations"), &bytes.Buffer{},
		dispatch.Before("init", func(_ context.Context, args []string) (bool, error) {
			calls = append(calls, "before init")
			return true, nil
		}),
		dispatch.After("makemigrations", func(_ context.Context, args []string) error {
			calls = append(calls, fmt.Sprintf("after makemigrations %v", args))
			return nil
		}),
	)
	ctx := context.Background()

	done, err := d.BeforeSetup(ctx, "init", nil)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = d.BeforeSetup(ctx, "makemigrations", nil)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, d.AfterSetup(ctx, "makemigrations", []string{"blog"}))
	require.NoError(t, d.AfterSetup(ctx, "migrate", nil))
	assert.Equal(t, []string{"before init", "after makemigrations [blog]"}, calls)
}

func TestAfterSetupError(t *testing.T) {
	boom := errors.New("boom")
	d := newDispatcher(newTable("makemigrations"), &bytes.Buffer{},
		dispatch.After("makemigrations", func(context.Context, []string) error { return boom }),
	)

	assert.ErrorIs(t, d.AfterSetup(context.Background(), "makemigrations", nil), boom)
}

func TestExecuteHelp(t *testing.T) {
	var out bytes.Buffer
	table := newTable("migrate", "startapp")
	d := newDispatcher(table, &out)
	ctx := context.Background()

	require.NoError(t, d.Execute(ctx, "", nil))
	assert.Contains(t, out.String(), "[dorm]\n    init\n")
	assert.NotContains(t, out.String(), "startapp")

	out.Reset()
	require.NoError(t, d.Execute(ctx, "help", []string{"--commands"}))
	assert.Equal(t, "init\nmigrate\n", out.String())

	out.Reset()
	require.NoError(t, d.Execute(ctx, "help", []string{"migrate"}))
	assert.Equal(t, "usage of migrate\n", out.String())

	out.Reset()
	require.NoError(t, d.Execute(ctx, "help", []string{"init"}))
	assert.Equal(t, "Create a settings file.\n", out.String())

	var disabled *dispatch.DisabledError
	assert.True(t, errors.As(d.Execute(ctx, "help", []string{"startapp"}), &disabled))

	var unknown *dispatch.UnknownCommandError
	assert.True(t, errors.As(d.Execute(ctx, "help", []string{"bogus"}), &unknown))
}

func TestExecuteDelegates(t *testing.T) {
	table := newTable("migrate")
	d := newDispatcher(table, &bytes.Buffer{})

	require.NoError(t, d.Execute(context.Background(), "migrate", []string{"--database", "replica"}))
	assert.Equal(t, []string{"migrate --database replica"}, table.ran)

	var unknown *dispatch.UnknownCommandError
	assert.True(t, errors.As(d.Execute(context.Background(), "bogus", nil), &unknown))
	assert.Contains(t, unknown.Error(), "Type 'dorm help' for usage.")
}
