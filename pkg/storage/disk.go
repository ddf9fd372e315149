// Package storage provides the file storage backends named by the
// STORAGES setting.
//
// Two backends are available:
//   - "local": a directory on the local filesystem (OPTIONS.location)
//   - "s3"   : S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
// The "default" alias is what engine commands such as `dumpdata --output`
// write to:
//
//	disk, _ := engine.Storage().Default()
//	disk.Put(ctx, "fixtures/blog.json", data)
package storage

import (
	"context"
	"io"
)

// Disk is the storage driver interface. Every backend implements it.
type Disk interface {
	// ── Write ──────────────────────────────────────────────────────────────────

	// Put writes content to path, creating parent directories as needed.
	Put(ctx context.Context, path string, content []byte) error

	// PutStream writes from r to path.
	PutStream(ctx context.Context, path string, r io.Reader) error

	// ── Read ───────────────────────────────────────────────────────────────────

	// Get returns the full content of the file at path.
	Get(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether a file exists at path.
	Exists(ctx context.Context, path string) bool

	// URL returns the public URL for path.
	URL(path string) string

	// ── Delete ─────────────────────────────────────────────────────────────────

	// Delete removes a file. Returns nil if the file did not exist.
	Delete(ctx context.Context, path string) error

	// ── Listing ────────────────────────────────────────────────────────────────

	// Files lists the files directly inside directory.
	Files(ctx context.Context, directory string) ([]string, error)
}
