package orm

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// MigrationsDir is the package directory inside an app that holds its
// migration files.
const MigrationsDir = "migrations"

var (
	migrationFile = regexp.MustCompile(`^(\d{4})_[A-Za-z0-9_]+\.go$`)
	migrationName = regexp.MustCompile(`^[a-z0-9_]+$`)
)

type makeMigrationsOpts struct {
	name   string
	empty  bool
	dryRun bool
	now    func() time.Time
}

type plannedMigration struct {
	app     *App
	path    string
	ops     []string
	content []byte
}

type stubImport struct {
	Alias string
	Path  string
}

func newMakeMigrationsCmd(c *Commands) *cobra.Command {
	opts := makeMigrationsOpts{now: time.Now}
	cmd := &cobra.Command{
		Use:   "makemigrations [app_label...]",
		Short: "Creates new migration(s) for apps.",
		Long: "Creates new migration(s) for apps.\n\n" +
			"Without app labels, only installed apps that already have a migrations\n" +
			"package are considered. Naming an app creates its package if needed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ready(); err != nil {
				return err
			}
			apps, err := c.targetApps(args)
			if err != nil {
				return err
			}
			s, err := c.engine.Settings().Current()
			if err != nil {
				return err
			}
			return c.makeMigrations(cmd.OutOrStdout(), s.BaseDir, apps, len(args) > 0, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "Use this name for migration file(s).")
	cmd.Flags().BoolVar(&opts.empty, "empty", false, "Create an empty migration.")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Just show what migrations would be made; don't actually write them.")
	return cmd
}

func (c *Commands) makeMigrations(out io.Writer, baseDir string, apps []*App, explicit bool, opts makeMigrationsOpts) error {
	if opts.name != "" && !migrationName.MatchString(opts.name) {
		return fmt.Errorf("makemigrations: the migration name must be lower-case letters, digits and underscores, got %q", opts.name)
	}

	var planned []*plannedMigration
	for _, app := range apps {
		p, err := planMigration(baseDir, app, explicit, opts)
		if err != nil {
			return err
		}
		if p != nil {
			planned = append(planned, p)
		}
	}

	if len(planned) == 0 {
		if explicit && len(apps) == 1 {
			fmt.Fprintf(out, "No changes detected in app '%s'\n", apps[0].Label)
		} else {
			fmt.Fprintln(out, "No changes detected")
		}
		return nil
	}

	for _, p := range planned {
		rel := p.path
		if r, err := filepath.Rel(baseDir, p.path); err == nil {
			rel = r
		}
		fmt.Fprintf(out, "Migrations for '%s':\n  %s\n", p.app.Label, rel)
		for _, op := range p.ops {
			fmt.Fprintf(out, "    - %s\n", op)
		}
		if opts.dryRun {
			continue
		}
		if err := writeNew(p.path, p.content); err != nil {
			return fmt.Errorf("makemigrations: %w", err)
		}
	}
	return nil
}

// planMigration returns nil when app needs no new migration.
func planMigration(baseDir string, app *App, explicit bool, opts makeMigrationsOpts) (*plannedMigration, error) {
	if !app.IsLocal() {
		if explicit {
			return nil, fmt.Errorf("makemigrations: app '%s' has no directory on the search path", app.Label)
		}
		return nil, nil
	}

	dir := filepath.Join(app.Dir, MigrationsDir)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		if !explicit {
			return nil, nil
		}
		if !opts.dryRun {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("makemigrations: %w", err)
			}
		}
	}

	last, err := lastMigrationNumber(dir)
	if err != nil {
		return nil, err
	}
	if !opts.empty && (last > 0 || !app.HasModels()) {
		return nil, nil
	}

	number := last + 1
	name := opts.name
	switch {
	case name != "":
	case number == 1:
		name = "initial"
	default:
		name = "auto_" + opts.now().Format("20060102_1504")
	}
	fullName := fmt.Sprintf("%04d_%s", number, name)

	data := struct {
		Generated  string
		App        string
		Name       string
		Imports    []stubImport
		Models     []string
		DropModels []string
	}{
		Generated: opts.now().Format("2006-01-02 15:04"),
		App:       app.Label,
		Name:      fullName,
	}

	var ops []string
	if !opts.empty {
		imports, refs, err := modelRefs(app.Models)
		if err != nil {
			return nil, fmt.Errorf("makemigrations: %s: %w", app.Label, err)
		}
		data.Imports = imports
		data.Models = refs
		for i := len(refs) - 1; i >= 0; i-- {
			data.DropModels = append(data.DropModels, refs[i])
		}
		for _, m := range app.Models {
			ops = append(ops, "Create model "+reflect.TypeOf(m).Elem().Name())
		}
	}

	content, err := renderGoStub(baseDir, "migration", data)
	if err != nil {
		return nil, fmt.Errorf("makemigrations: %w", err)
	}
	return &plannedMigration{
		app:     app,
		path:    filepath.Join(dir, fullName+".go"),
		ops:     ops,
		content: content,
	}, nil
}

func lastMigrationNumber(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("makemigrations: %w", err)
	}
	last := 0
	for _, e := range entries {
		m := migrationFile.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		if n, _ := strconv.Atoi(m[1]); n > last {
			last = n
		}
	}
	return last, nil
}

// modelRefs returns the imports and qualified type names a migration file
// needs to reference models.
func modelRefs(models []any) ([]stubImport, []string, error) {
	aliases := map[string]string{}
	used := map[string]bool{"gorm": true, "migration": true}
	var imports []stubImport
	var refs []string
	for _, m := range models {
		t := reflect.TypeOf(m).Elem()
		pkg := t.PkgPath()
		if pkg == "" || pkg == "main" {
			return nil, nil, fmt.Errorf("model %s must live in an importable package, not %q", t.Name(), pkg)
		}
		alias, ok := aliases[pkg]
		if !ok {
			base := strings.NewReplacer("-", "", ".", "").Replace(path.Base(pkg))
			alias = base
			for i := 2; used[alias]; i++ {
				alias = base + strconv.Itoa(i)
			}
			used[alias] = true
			aliases[pkg] = alias
			imports = append(imports, stubImport{Alias: alias, Path: pkg})
		}
		refs = append(refs, alias+"."+t.Name())
	}
	return imports, refs, nil
}
