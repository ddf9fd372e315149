package project_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/dorm/pkg/project"
)

func realpath(t *testing.T, p string) string {
	t.Helper()
	r, err := filepath.EvalSymlinks(p)
	require.NoError(t, err)
	return r
}

func TestResolveExplicitDirectory(t *testing.T) {
	dir := t.TempDir()

	root, err := project.Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, realpath(t, dir), root)

	again, err := project.Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, root, again)
}

func TestResolveEmptyUsesWorkingDirectory(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	root, err := project.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, realpath(t, wd), root)
}

func TestResolveRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.hcl")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := project.Resolve(file)
	var invalid *project.InvalidPathError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, invalid.Error(), "settings.hcl")
}

func TestResolveRejectsMissingPath(t *testing.T) {
	_, err := project.Resolve(filepath.Join(t.TempDir(), "nope"))

	var invalid *project.InvalidPathError
	require.True(t, errors.As(err, &invalid))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
