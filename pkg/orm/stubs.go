package orm

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"text/template"
)

//go:embed stubs/*.stub
var defaultStubs embed.FS

// StubDir is where a project may override the embedded stubs, relative to
// its root.
const StubDir = ".dorm/stubs"

// renderStub renders stubs/<name>.stub, preferring an override under
// root/.dorm/stubs. Output ending in .go is gofmt'ed.
func renderStub(root, name string, data any) ([]byte, error) {
	var content []byte
	userPath := filepath.Join(root, StubDir, name+".stub")
	if _, err := os.Stat(userPath); root != "" && err == nil {
		content, err = os.ReadFile(userPath)
		if err != nil {
			return nil, fmt.Errorf("read stub override %s: %w", userPath, err)
		}
	} else {
		content, err = defaultStubs.ReadFile("stubs/" + name + ".stub")
		if err != nil {
			return nil, fmt.Errorf("embedded stub not found: %s", name)
		}
	}

	t, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse stub %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute stub %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func renderGoStub(root, name string, data any) ([]byte, error) {
	src, err := renderStub(root, name, data)
	if err != nil {
		return nil, err
	}
	formatted, err := format.Source(src)
	if err != nil {
		return nil, fmt.Errorf("format stub %s: %w", name, err)
	}
	return formatted, nil
}

// writeNew creates path with content, refusing to overwrite.
func writeNew(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("file already exists: %s", path)
		}
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
