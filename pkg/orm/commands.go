package orm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/template"

	"github.com/spf13/cobra"
)

// SubcommandsMarker is the help-text line after which subcommands are
// listed, one "[section]" block per provider.
const SubcommandsMarker = "Available subcommands:"

// SectionLabel heads the engine's own block in the help text.
const SectionLabel = "[orm]"

var helpTmpl = template.Must(template.New("help").Parse(`Type '{{.Prog}} help <subcommand>' for help on a specific subcommand.

` + SubcommandsMarker + `

` + SectionLabel + `
{{range .Names}}    {{.}}
{{end}}`))

type commandFactory func(c *Commands) *cobra.Command

// ─── Command table ────────────────────────────────────────────────────────────

var factories = []commandFactory{
	newCheckCmd,
	newDiffSettingsCmd,
	newDumpDataCmd,
	newFlushCmd,
	newMakeMigrationsCmd,
	newMigrateCmd,
	newRollbackCmd,
	newRunServerCmd,
	newShowMigrationsCmd,
	newStartAppCmd,
	newStartProjectCmd,
}

// Commands is the engine's command table. Every Run builds a fresh cobra
// tree so flag values never leak between invocations.
type Commands struct {
	engine *Engine
	prog   string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Commands returns the command table bound to e.
func (e *Engine) Commands(prog string, stdout, stderr io.Writer) *Commands {
	return &Commands{engine: e, prog: prog, stdin: os.Stdin, stdout: stdout, stderr: stderr}
}

// SetInput replaces stdin for commands that prompt.
func (c *Commands) SetInput(r io.Reader) { c.stdin = r }

func (c *Commands) build() (*cobra.Command, map[string]*cobra.Command) {
	root := &cobra.Command{
		Use:           c.prog,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	byName := make(map[string]*cobra.Command, len(factories))
	for _, f := range factories {
		cmd := f(c)
		root.AddCommand(cmd)
		byName[cmd.Name()] = cmd
	}
	return root, byName
}

// Names returns every subcommand name, sorted.
func (c *Commands) Names() []string {
	_, byName := c.build()
	out := make([]string, 0, len(byName))
	for name := range byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Has reports whether name is a subcommand.
func (c *Commands) Has(name string) bool {
	_, byName := c.build()
	_, ok := byName[name]
	return ok
}

// Run executes subcommand name with args.
func (c *Commands) Run(ctx context.Context, name string, args []string) error {
	root, byName := c.build()
	if _, ok := byName[name]; !ok {
		return fmt.Errorf("orm: unknown command %q", name)
	}
	root.SetArgs(append([]string{name}, args...))
	return root.ExecuteContext(ctx)
}

// Usage returns the help of subcommand name.
func (c *Commands) Usage(name string) (string, error) {
	_, byName := c.build()
	cmd, ok := byName[name]
	if !ok {
		return "", fmt.Errorf("orm: unknown command %q", name)
	}
	var buf bytes.Buffer
	if cmd.Long != "" {
		fmt.Fprintf(&buf, "%s\n\n", cmd.Long)
	} else {
		fmt.Fprintf(&buf, "%s\n\n", cmd.Short)
	}
	buf.WriteString(cmd.UsageString())
	return buf.String(), nil
}

// HelpText lists every subcommand under SubcommandsMarker.
func (c *Commands) HelpText() string {
	var buf bytes.Buffer
	_ = helpTmpl.Execute(&buf, struct {
		Prog  string
		Names []string
	}{c.prog, c.Names()})
	return buf.String()
}

func (c *Commands) ready() error {
	if !c.engine.Ready() {
		return ErrNotReady
	}
	return nil
}

// targetApps returns the installed apps named by labels, or all of them.
func (c *Commands) targetApps(labels []string) ([]*App, error) {
	if len(labels) == 0 {
		return c.engine.Apps()
	}
	out := make([]*App, 0, len(labels))
	for _, label := range labels {
		app, err := c.engine.App(label)
		if err != nil {
			return nil, fmt.Errorf("app '%s' could not be found; is it in INSTALLED_APPS?", label)
		}
		out = append(out, app)
	}
	return out, nil
}
