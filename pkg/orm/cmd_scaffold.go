package orm

import (
	"fmt"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/dorm/pkg/settings"
)

// ─── startapp ─────────────────────────────────────────────────────────────────

func newStartAppCmd(c *Commands) *cobra.Command {
	return &cobra.Command{
		Use:   "startapp name [directory]",
		Short: "Creates an app directory structure for the given app name.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := args[0]
			pkg := label[strings.LastIndex(label, ".")+1:]
			if !token.IsIdentifier(pkg) || strings.ToLower(pkg) != pkg {
				return fmt.Errorf("startapp: %q is not a valid app name; use lower-case letters, digits and underscores", label)
			}

			root, idType := c.scaffoldDefaults()
			dir := filepath.Join(root, LabelPath(label))
			if len(args) == 2 {
				dir = args[1]
			}

			models, err := renderGoStub(root, "app_models", struct {
				Package, Label, Model, IDType string
			}{pkg, label, "Example", idType})
			if err != nil {
				return err
			}
			doc, err := renderGoStub(root, "migrations_doc", struct{ Label string }{label})
			if err != nil {
				return err
			}
			return writeAll(cmd.OutOrStdout(), []scaffoldFile{
				{filepath.Join(dir, "models.go"), models},
				{filepath.Join(dir, MigrationsDir, "doc.go"), doc},
			})
		},
	}
}

// ─── startproject ─────────────────────────────────────────────────────────────

func newStartProjectCmd(c *Commands) *cobra.Command {
	return &cobra.Command{
		Use:   "startproject name [directory]",
		Short: "Creates a project directory structure for the given project name.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if strings.ContainsAny(name, ` \`) || name == "" {
				return fmt.Errorf("startproject: %q is not a valid module name", name)
			}
			root, _ := c.scaffoldDefaults()
			dir := filepath.Join(root, filepath.Base(name))
			if len(args) == 2 {
				dir = args[1]
			}
			if entries, err := os.ReadDir(dir); err == nil && len(entries) > 0 {
				return fmt.Errorf("startproject: %s already exists and is not empty", dir)
			}

			mainSrc, err := renderGoStub(root, "project_main", struct{ Module string }{name})
			if err != nil {
				return err
			}
			conf, err := settings.Template(settings.DefaultFormat)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := writeAll(out, []scaffoldFile{
				{filepath.Join(dir, settings.FileName(settings.DefaultFormat)), []byte(conf)},
				{filepath.Join(dir, "main.go"), mainSrc},
			}); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n📋  Next steps:\n\n    cd %s\n    go mod init %s\n    go mod tidy\n\n", dir, name)
			return nil
		},
	}
}

// scaffoldDefaults returns the directory to scaffold into and the Go type
// for primary keys. Both fall back to sane values when settings are not
// configured, since scaffolding does not need a database.
func (c *Commands) scaffoldDefaults() (root, idType string) {
	idType = settings.AutoFields[settings.DefaultAutoField]
	if s, err := c.engine.Settings().Current(); err == nil {
		root = s.BaseDir
		if t, ok := settings.AutoFields[s.DefaultAutoField]; ok {
			idType = t
		}
	}
	if root == "" {
		root, _ = os.Getwd()
	}
	return root, idType
}

type scaffoldFile struct {
	path    string
	content []byte
}

func writeAll(out io.Writer, files []scaffoldFile) error {
	for _, f := range files {
		if err := writeNew(f.path, f.content); err != nil {
			return err
		}
		fmt.Fprintf(out, "✅  Created: %s\n", f.path)
	}
	return nil
}
