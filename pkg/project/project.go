// Package project resolves the root directory of a dorm project.
package project

import (
	"fmt"
	"os"
	"path/filepath"
)

// InvalidPathError is returned when the resolved project root is not an
// existing directory.
type InvalidPathError struct {
	Path string
	Err  error
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("project: path should be a directory: %s", e.Path)
}

func (e *InvalidPathError) Unwrap() error { return e.Err }

// Resolve returns the absolute, symlink-free project root. An empty explicit
// path means the process working directory.
func Resolve(explicit string) (string, error) {
	path := explicit
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("project: working directory: %w", err)
		}
		path = wd
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &InvalidPathError{Path: path, Err: err}
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &InvalidPathError{Path: abs, Err: err}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", &InvalidPathError{Path: resolved, Err: err}
	}
	if !info.IsDir() {
		return "", &InvalidPathError{Path: resolved}
	}
	return resolved, nil
}
