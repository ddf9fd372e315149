package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shashiranjanraj/dorm/pkg/logger"
	"github.com/shashiranjanraj/dorm/pkg/orm"
)

// MarkerFile marks a directory as an app's migrations package.
const MarkerFile = "doc.go"

const markerContent = "package migrations\n"

// EnsureMigrationPackages creates <app dir>/migrations/doc.go for every
// installed app that declares at least one model and was found on the
// search path. Existing files are never touched. It returns the markers it
// created.
func EnsureMigrationPackages(e *orm.Engine) ([]string, error) {
	apps, err := e.Apps()
	if err != nil {
		return nil, err
	}

	var created []string
	for _, app := range apps {
		if !app.HasModels() || !app.IsLocal() {
			continue
		}

		pkg := filepath.Join(app.Dir, orm.MigrationsDir)
		if err := os.MkdirAll(pkg, 0o755); err != nil {
			return created, fmt.Errorf("makemigrations: %w", err)
		}
		marker := filepath.Join(pkg, MarkerFile)
		f, err := os.OpenFile(marker, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("makemigrations: %w", err)
		}
		_, werr := f.WriteString(markerContent)
		if err := errors.Join(werr, f.Close()); err != nil {
			return created, fmt.Errorf("makemigrations: write %s: %w", marker, err)
		}
		logger.Debug("cli: created migrations package", "app", app.Label, "path", marker)
		created = append(created, marker)
	}
	return created, nil
}
