package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/shashiranjanraj/dorm/pkg/dispatch"
	"github.com/shashiranjanraj/dorm/pkg/project"
	"github.com/shashiranjanraj/dorm/pkg/settings"
)

// InitName is the injected command that creates a project's settings file.
const InitName = "init"

const initUsage = `Creates a settings file in the project directory.

Usage:
  dorm init [--format hcl|toml|yaml|json]

Flags:
      --format string   settings file format (default "hcl")
`

// AlreadyInitializedError is returned by init when the project already has a
// settings file. The existing file is left untouched.
type AlreadyInitializedError struct {
	Path string
}

func (e *AlreadyInitializedError) Error() string {
	return fmt.Sprintf("dorm already initialized with this project (settings file already exists at %s)", e.Path)
}

// InitCommand returns the injected init command for the project resolved
// from projectDir.
func InitCommand(projectDir func() string, out io.Writer) dispatch.Command {
	return dispatch.Command{
		Name:  InitName,
		Short: "Creates a settings file in the project directory.",
		Usage: initUsage,
		Run: func(_ context.Context, args []string) error {
			fs := pflag.NewFlagSet(InitName, pflag.ContinueOnError)
			fs.SetOutput(io.Discard)
			format := fs.String("format", settings.DefaultFormat, "settings file format")
			if err := fs.Parse(args); err != nil {
				return fmt.Errorf("init: %w", err)
			}
			if fs.NArg() > 0 {
				return fmt.Errorf("init: unexpected arguments: %v", fs.Args())
			}

			root, err := project.Resolve(projectDir())
			if err != nil {
				return err
			}
			_, err = Init(root, *format, out)
			return err
		},
	}
}

// Init writes the default settings file of format into root, echoing its
// content to out. It never overwrites and never loads settings.
func Init(root, format string, out io.Writer) (string, error) {
	if existing, ok := settings.Locate(root); ok {
		return "", &AlreadyInitializedError{Path: existing}
	}

	content, err := settings.Template(format)
	if err != nil {
		return "", fmt.Errorf("init: %w", err)
	}
	path := filepath.Join(root, settings.FileName(format))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", &AlreadyInitializedError{Path: path}
		}
		return "", fmt.Errorf("init: %w", err)
	}
	if _, err := io.WriteString(f, content); err != nil {
		f.Close()
		return "", fmt.Errorf("init: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("init: %w", err)
	}

	fmt.Fprintln(out, content)
	fmt.Fprintf(out, "✅  Created: %s\n", path)
	return path, nil
}
