// Package vault is the adapter boundary to the host's hierarchical file
// store. The engine only ever touches the host's documents through this
// interface; the local-disk implementation below is what the standalone CLI
// uses.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FS exposes the primitive operations the engine needs from host storage.
// Paths are slash-separated and relative to the vault root.
type FS interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
	MkdirAll(ctx context.Context, path string) error
}

// OSFS implements FS over a directory on the local filesystem.
type OSFS struct {
	Root string
}

// NewOSFS returns an FS rooted at the given directory.
func NewOSFS(root string) *OSFS {
	return &OSFS{Root: root}
}

// Abs resolves a vault-relative path to an absolute local path.
func (v *OSFS) Abs(path string) string {
	return filepath.Join(v.Root, filepath.FromSlash(path))
}

// ReadFile implements FS.
func (v *OSFS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(v.Abs(path))
	if err != nil {
		return nil, fmt.Errorf("vault read %s: %w", path, err)
	}
	return data, nil
}

// WriteFile implements FS, creating parent directories as needed.
func (v *OSFS) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs := v.Abs(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("vault mkdir for %s: %w", path, err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return fmt.Errorf("vault write %s: %w", path, err)
	}
	return nil
}

// Exists implements FS.
func (v *OSFS) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(v.Abs(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("vault stat %s: %w", path, err)
}

// MkdirAll implements FS. Creation is idempotent; a directory created by a
// concurrent caller is not an error.
func (v *OSFS) MkdirAll(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(v.Abs(path), 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("vault mkdir %s: %w", path, err)
	}
	return nil
}
