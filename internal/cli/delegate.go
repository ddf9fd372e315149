package cli

// delegate.go hands commands to the project's own entrypoint.
//
// A project's apps and migrations register from init() in its own packages,
// so only a binary built from the project can see them. When the global
// dorm binary runs inside a project with a go.mod it executes
// `go run <entrypoint> <cmd> ...` there; the project's main.go calls
// dorm.Main(), which runs the same flow in process.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shashiranjanraj/dorm/pkg/logger"
)

// NoDelegateEnv is set for the delegated child so it never delegates again.
const NoDelegateEnv = "DORM_NO_DELEGATE"

// ExitError carries the exit status of a delegated run whose output, error
// message included, already reached the terminal.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// entrypointCandidates are probed in order when the project root itself has
// no Go files.
var entrypointCandidates = []string{
	"cmd/dorm",
	"cmd/manage",
	"cmd/server",
	"cmd/app",
	"cmd/main",
	"main",
	"cmd",
}

// findEntrypoint returns the package to pass to `go run`. ok is false when
// root is not a Go module or no main package candidate has Go files.
func findEntrypoint(root string) (dir string, ok bool) {
	if _, err := os.Stat(filepath.Join(root, "go.mod")); err != nil {
		return "", false
	}
	if hasGoFiles(root) {
		return ".", true
	}
	for _, sub := range entrypointCandidates {
		if hasGoFiles(filepath.Join(root, sub)) {
			return "./" + sub, true
		}
	}
	return "", false
}

func hasGoFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") {
			return true
		}
	}
	return false
}

// runInProject runs `go run <entrypoint> argv...` in root with the CLI's
// standard streams.
func (c *CLI) runInProject(ctx context.Context, root, entrypoint string, argv []string) error {
	args := append([]string{"run", entrypoint}, argv...)
	logger.Debug("cli: delegating to project", "root", root, "cmd", "go "+strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = root
	cmd.Stdin = c.stdin
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	cmd.Env = append(os.Environ(), NoDelegateEnv+"=1", "DORM_PROJECT_DIR="+root)

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	if err != nil {
		return fmt.Errorf("delegate: %w", err)
	}
	return nil
}
