// Package dispatch layers dorm's own subcommands over the engine's command
// table.
//
// A name is resolved in a fixed order: injected commands first, then hidden
// names (which always fail with DisabledError), then the underlying table.
// Hooks keyed by subcommand name run before and after engine setup.
//
//	d := dispatch.New("dorm", engine.Commands("dorm", os.Stdout, os.Stderr),
//	    dispatch.Inject(initCmd),
//	    dispatch.Hide("startapp", "startproject"),
//	    dispatch.After("makemigrations", ensurePackages),
//	)
package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shashiranjanraj/dorm/pkg/logger"
	"github.com/shashiranjanraj/dorm/pkg/metrics"
)

// SectionLabel heads the injected commands' block in the full help text.
const SectionLabel = "[dorm]"

// SubcommandsMarker is the help-text line injected commands are spliced
// after.
const SubcommandsMarker = "Available subcommands:"

// HelpCommand is the name that renders help instead of running a command.
const HelpCommand = "help"

// Table is the underlying command table.
type Table interface {
	Names() []string
	Has(name string) bool
	Run(ctx context.Context, name string, args []string) error
	Usage(name string) (string, error)
	HelpText() string
}

// Command is one executable subcommand.
type Command struct {
	Name  string
	Short string
	// Usage is printed by "help <name>". Defaults to Short.
	Usage string
	Run   func(ctx context.Context, args []string) error
}

// BeforeHook runs before engine setup. Returning done=true ends the
// invocation without setup or execution.
type BeforeHook func(ctx context.Context, args []string) (done bool, err error)

// AfterHook runs after engine setup and before the command executes.
type AfterHook func(ctx context.Context, args []string) error

// ─── Errors ───────────────────────────────────────────────────────────────────

// DisabledError is returned whenever a hidden subcommand is run or asked
// for help.
type DisabledError struct {
	Name string
}

func (e *DisabledError) Error() string {
	return fmt.Sprintf("the %q command is disabled: it needs a full application project, which dorm does not provide", e.Name)
}

// UnknownCommandError is returned for names no layer provides.
type UnknownCommandError struct {
	Name string
	Prog string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q\nType '%s help' for usage.", e.Name, e.Prog)
}

// ─── Dispatcher ───────────────────────────────────────────────────────────────

// Dispatcher is the unified command surface.
type Dispatcher struct {
	prog     string
	table    Table
	injected map[string]Command
	hidden   map[string]bool
	before   map[string]BeforeHook
	after    map[string]AfterHook
	label    string
	out      io.Writer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// Inject adds commands that take priority over the table.
func Inject(cmds ...Command) Option {
	return func(d *Dispatcher) {
		for _, c := range cmds {
			d.injected[c.Name] = c
		}
	}
}

// Hide disables table commands. An injected command of the same name stays
// enabled.
func Hide(names ...string) Option {
	return func(d *Dispatcher) {
		for _, n := range names {
			d.hidden[n] = true
		}
	}
}

// Before registers a hook for name run before setup.
func Before(name string, hook BeforeHook) Option {
	return func(d *Dispatcher) { d.before[name] = hook }
}

// After registers a hook for name run after setup.
func After(name string, hook AfterHook) Option {
	return func(d *Dispatcher) { d.after[name] = hook }
}

// WithSectionLabel replaces SectionLabel.
func WithSectionLabel(label string) Option {
	return func(d *Dispatcher) { d.label = label }
}

// WithOutput sets where help is printed (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(d *Dispatcher) { d.out = w }
}

// New returns a dispatcher named prog over table.
func New(prog string, table Table, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		prog:     prog,
		table:    table,
		injected: map[string]Command{},
		hidden:   map[string]bool{},
		before:   map[string]BeforeHook{},
		after:    map[string]AfterHook{},
		label:    SectionLabel,
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(d)
	}
	for name := range d.injected {
		delete(d.hidden, name)
	}
	return d
}

// IsHidden reports whether name is disabled.
func (d *Dispatcher) IsHidden(name string) bool { return d.hidden[name] }

// Fetch resolves name to a command.
func (d *Dispatcher) Fetch(name string) (Command, error) {
	if c, ok := d.injected[name]; ok {
		return c, nil
	}
	if d.hidden[name] {
		return Command{
			Name: name,
			Run: func(context.Context, []string) error {
				return &DisabledError{Name: name}
			},
		}, nil
	}
	if d.table.Has(name) {
		return Command{
			Name: name,
			Run: func(ctx context.Context, args []string) error {
				return d.table.Run(ctx, name, args)
			},
		}, nil
	}
	return Command{}, &UnknownCommandError{Name: name, Prog: d.prog}
}

// Usage returns the help of name.
func (d *Dispatcher) Usage(name string) (string, error) {
	if c, ok := d.injected[name]; ok {
		if c.Usage != "" {
			return c.Usage, nil
		}
		return c.Short + "\n", nil
	}
	if d.hidden[name] {
		return "", &DisabledError{Name: name}
	}
	if d.table.Has(name) {
		return d.table.Usage(name)
	}
	return "", &UnknownCommandError{Name: name, Prog: d.prog}
}

// ─── Help ─────────────────────────────────────────────────────────────────────

// RenderHelp returns the sorted visible command names, one per line, when
// commandsOnly is set. Otherwise it returns the table's help text with an
// injected section spliced in after SubcommandsMarker and every line that
// mentions a hidden command removed.
func (d *Dispatcher) RenderHelp(commandsOnly bool) string {
	if commandsOnly {
		return strings.Join(d.Names(), "\n") + "\n"
	}

	section := []string{"", d.label}
	for _, name := range d.injectedNames() {
		section = append(section, "    "+name)
	}

	var out []string
	spliced := false
	for _, line := range strings.Split(d.table.HelpText(), "\n") {
		if d.mentionsHidden(line) {
			continue
		}
		out = append(out, line)
		if !spliced && strings.TrimSpace(line) == SubcommandsMarker {
			out = append(out, section...)
			spliced = true
		}
	}
	if !spliced {
		if n := len(out); n > 0 && out[n-1] == "" {
			out = out[:n-1]
		}
		out = append(out, section...)
		out = append(out, "")
	}
	return strings.Join(out, "\n")
}

// Names returns the visible command names, sorted.
func (d *Dispatcher) Names() []string {
	seen := map[string]bool{}
	for _, n := range d.table.Names() {
		seen[n] = true
	}
	for n := range d.injected {
		seen[n] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		if !d.hidden[n] {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) injectedNames() []string {
	names := make([]string, 0, len(d.injected))
	for n := range d.injected {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) mentionsHidden(line string) bool {
	for n := range d.hidden {
		if strings.Contains(line, n) {
			return true
		}
	}
	return false
}

// ─── Flow ─────────────────────────────────────────────────────────────────────

// BeforeSetup runs before engine setup. Hidden names fail here, so they
// fail whether or not the project is configured. done reports that the
// invocation was fully handled.
func (d *Dispatcher) BeforeSetup(ctx context.Context, name string, args []string) (done bool, err error) {
	if d.hidden[name] {
		err = &DisabledError{Name: name}
		metrics.RecordCommand(name, err)
		return true, err
	}
	hook, ok := d.before[name]
	if !ok {
		return false, nil
	}
	done, err = hook(ctx, args)
	if done {
		metrics.RecordCommand(name, err)
	}
	return done, err
}

// AfterSetup runs the after-setup hook of name, if any.
func (d *Dispatcher) AfterSetup(ctx context.Context, name string, args []string) error {
	hook, ok := d.after[name]
	if !ok {
		return nil
	}
	if err := hook(ctx, args); err != nil {
		metrics.RecordCommand(name, err)
		return err
	}
	return nil
}

// Execute runs name with args. An empty name or "help" renders help:
// "help" prints everything, "help --commands" the names only and
// "help <name>" that command's usage.
func (d *Dispatcher) Execute(ctx context.Context, name string, args []string) error {
	if name == "" || name == HelpCommand {
		err := d.Help(args)
		metrics.RecordCommand(HelpCommand, err)
		return err
	}

	cmd, err := d.Fetch(name)
	if err == nil {
		logger.Debug("dispatch: running command", "command", name, "args", strings.Join(args, " "))
		err = cmd.Run(ctx, args)
	}
	metrics.RecordCommand(name, err)
	return err
}

// Help prints the full help, the names only for "--commands", or the usage
// of the named command.
func (d *Dispatcher) Help(args []string) error {
	switch {
	case len(args) == 0:
		_, err := io.WriteString(d.out, d.RenderHelp(false))
		return err
	case args[0] == "--commands":
		_, err := io.WriteString(d.out, d.RenderHelp(true))
		return err
	default:
		usage, err := d.Usage(args[0])
		if err != nil {
			return err
		}
		_, err = io.WriteString(d.out, usage)
		return err
	}
}
