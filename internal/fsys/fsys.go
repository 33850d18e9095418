// Package fsys is the filesystem side of the batch mover: creating
// destination folders and moving files into them. It works against an
// afero.Fs so the same code runs on the real disk and on in-memory trees.
package fsys

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// Move errors.
var (
	ErrSourceNotFound    = errors.New("source file not found")
	ErrDestinationExists = errors.New("destination already exists")
	ErrNotDirectory      = errors.New("path exists and is not a directory")
)

// Service is the set of filesystem calls the apply engine depends on.
type Service interface {
	// EnsureFolder creates path and any missing parents. Calling it on an
	// existing directory is not an error.
	EnsureFolder(ctx context.Context, path string) error
	// Move renames oldPath to newPath. It fails when oldPath does not exist.
	Move(ctx context.Context, oldPath, newPath string) error
}

// FS implements Service on top of an afero filesystem.
type FS struct {
	fs        afero.Fs
	overwrite bool
	dirPerm   os.FileMode
}

// Option configures an FS during construction.
type Option func(*FS)

// WithOverwrite lets Move replace an existing destination file.
func WithOverwrite(overwrite bool) Option {
	return func(f *FS) {
		f.overwrite = overwrite
	}
}

// WithDirPerm overrides the permission bits used for created folders.
func WithDirPerm(perm os.FileMode) Option {
	return func(f *FS) {
		f.dirPerm = perm
	}
}

// New wraps fs.
func New(fs afero.Fs, opts ...Option) *FS {
	f := &FS{fs: fs, dirPerm: 0o755}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewOS returns an FS backed by the host filesystem.
func NewOS(opts ...Option) *FS {
	return New(afero.NewOsFs(), opts...)
}

// Fs exposes the underlying filesystem.
func (f *FS) Fs() afero.Fs {
	return f.fs
}

// EnsureFolder creates path recursively. It is idempotent, and fails when
// path already exists as a regular file.
func (f *FS) EnsureFolder(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("ensure folder: empty path")
	}
	info, err := f.fs.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("ensure folder %s: %w", path, ErrNotDirectory)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("ensure folder %s: %w", path, err)
	}
	if err := f.fs.MkdirAll(path, f.dirPerm); err != nil {
		return fmt.Errorf("create folder %s: %w", path, err)
	}
	return nil
}

// Move renames oldPath to newPath. A missing source is always reported, and
// an existing destination is refused unless the FS was built WithOverwrite.
// Moving a file onto its own path succeeds without touching the disk.
func (f *FS) Move(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := f.fs.Stat(oldPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("move %s: %w", oldPath, ErrSourceNotFound)
		}
		return fmt.Errorf("move %s: %w", oldPath, err)
	}
	if oldPath == newPath {
		return nil
	}
	if !f.overwrite {
		if _, err := f.fs.Stat(newPath); err == nil {
			return fmt.Errorf("move %s to %s: %w", oldPath, newPath, ErrDestinationExists)
		}
	}
	if err := f.fs.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("move %s to %s: %w", oldPath, newPath, err)
	}
	return nil
}

// Exists reports whether path exists.
func (f *FS) Exists(path string) (bool, error) {
	return afero.Exists(f.fs, path)
}
