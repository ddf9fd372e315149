// Package cli is the dorm command-line flow shared by the global binary and
// by project entrypoints:
//
//	before-setup hook -> bootstrap -> ensure configured -> after-setup hook -> execute
//
// init and help finish in the before-setup step, so they work in a directory
// without settings. Hidden engine commands fail there too.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/dorm/config"
	"github.com/shashiranjanraj/dorm/pkg/bootstrap"
	"github.com/shashiranjanraj/dorm/pkg/dispatch"
	"github.com/shashiranjanraj/dorm/pkg/logger"
	"github.com/shashiranjanraj/dorm/pkg/metrics"
	"github.com/shashiranjanraj/dorm/pkg/orm"
	"github.com/shashiranjanraj/dorm/pkg/project"
)

// Prog is the program name used in help and usage text.
const Prog = "dorm"

// Hidden lists the engine commands that scaffold a full application project.
var Hidden = []string{"startproject", "startapp"}

// CLI runs one dorm invocation.
type CLI struct {
	engine   *orm.Engine
	boot     *bootstrap.Bootstrapper
	delegate bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	projectDir string
}

// Option configures a CLI.
type Option func(*CLI)

// WithDelegation makes commands that need the project's apps run through
// the project's own entrypoint (see delegate.go).
func WithDelegation(on bool) Option {
	return func(c *CLI) { c.delegate = on }
}

// WithIO replaces the standard streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(c *CLI) { c.stdin, c.stdout, c.stderr = stdin, stdout, stderr }
}

// New returns a CLI driving e through boot.
func New(e *orm.Engine, boot *bootstrap.Bootstrapper, opts ...Option) *CLI {
	c := &CLI{
		engine: e,
		boot:   boot,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dispatcher returns the command surface: init injected, Hidden disabled,
// help and init handled before setup and migration packages ensured before
// makemigrations.
func (c *CLI) Dispatcher() *dispatch.Dispatcher {
	cmds := c.engine.Commands(Prog, c.stdout, c.stderr)
	cmds.SetInput(c.stdin)

	initCmd := InitCommand(func() string { return c.projectDir }, c.stdout)

	var d *dispatch.Dispatcher
	d = dispatch.New(Prog, cmds,
		dispatch.Inject(initCmd),
		dispatch.Hide(Hidden...),
		dispatch.WithOutput(c.stdout),
		dispatch.Before(InitName, func(ctx context.Context, args []string) (bool, error) {
			return true, initCmd.Run(ctx, args)
		}),
		dispatch.Before(dispatch.HelpCommand, func(_ context.Context, args []string) (bool, error) {
			return true, d.Help(args)
		}),
		dispatch.After("makemigrations", func(context.Context, []string) error {
			_, err := EnsureMigrationPackages(c.engine)
			return err
		}),
	)
	return d
}

// Run executes argv (without the program name).
func (c *CLI) Run(ctx context.Context, argv []string) error {
	root := c.rootCommand()
	root.SetArgs(argv)
	err := root.ExecuteContext(ctx)

	if path := config.MetricsFile(); path != "" {
		if werr := metrics.WriteTextfile(path); werr != nil {
			logger.Warn("cli: metrics textfile not written", "path", path, "error", werr)
		}
	}
	return err
}

func (c *CLI) rootCommand() *cobra.Command {
	var (
		verbose    bool
		noDelegate bool
	)
	root := &cobra.Command{
		Use:                Prog + " [flags] <subcommand> [args]",
		Short:              "Use the dorm ORM from a standalone project.",
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logger.SetLevel("debug")
			}
			name := dispatch.HelpCommand
			if len(args) > 0 {
				name, args = args[0], args[1:]
			}
			return c.flow(cmd.Context(), name, args, c.delegate && !noDelegate && !config.NoDelegate())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().SetInterspersed(false)
	root.Flags().StringVar(&c.projectDir, "project-dir", config.ProjectDir(), "Project root (default: the working directory).")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output.")
	root.Flags().BoolVar(&noDelegate, "no-delegate", false, "Run every command in this process instead of the project's entrypoint.")
	root.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		_ = c.flow(cmd.Context(), dispatch.HelpCommand, nil, false)
	})
	return root
}

func (c *CLI) flow(ctx context.Context, name string, args []string, delegate bool) error {
	d := c.Dispatcher()

	done, err := d.BeforeSetup(ctx, name, args)
	if done || err != nil {
		return err
	}

	if delegate {
		root, err := project.Resolve(c.projectDir)
		if err != nil {
			return err
		}
		if entry, ok := findEntrypoint(root); ok {
			return c.runInProject(ctx, root, entry, append([]string{name}, args...))
		}
		logger.Debug("cli: no project entrypoint found, running in process", "root", root)
	}

	if err := c.boot.Setup(ctx, c.projectDir); err != nil {
		return err
	}
	if err := c.boot.EnsureSetup(); err != nil {
		return err
	}
	if err := d.AfterSetup(ctx, name, args); err != nil {
		return err
	}
	return d.Execute(ctx, name, args)
}
