package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/onnwee/regions/internal/tracing"
)

// FileKV stores each key as a JSON file under a directory. Writes go to a
// temporary file that is renamed into place, so a crash never leaves a
// partially written value behind.
type FileKV struct {
	dir string
}

// NewFileKV creates the directory if needed and returns a store rooted at it.
func NewFileKV(dir string) (*FileKV, error) {
	if dir == "" {
		return nil, errors.New("persist directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create persist directory: %w", err)
	}
	return &FileKV{dir: dir}, nil
}

// Name implements KV.
func (f *FileKV) Name() string { return BackendFile }

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

// Save implements KV.
func (f *FileKV) Save(ctx context.Context, key string, value []byte) (err error) {
	_, endSpan := tracing.StartStorageSpan(ctx, BackendFile, "save", key)
	defer func() { endSpan(err) }()
	if err := checkKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", key, err)
	}
	return nil
}

// Load implements KV.
func (f *FileKV) Load(ctx context.Context, key string) (_ []byte, err error) {
	_, endSpan := tracing.StartStorageSpan(ctx, BackendFile, "load", key)
	defer func() { endSpan(err) }()
	b, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return b, nil
}

// Delete implements KV.
func (f *FileKV) Delete(ctx context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
