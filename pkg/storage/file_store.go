package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrFileNotFound is returned when a reference does not resolve to a stored file.
var ErrFileNotFound = errors.New("file not found")

// FileStore persists uploaded files under opaque references.
type FileStore interface {
	// Save writes r under a fresh unique reference derived from name.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	// Open returns the stored bytes or ErrFileNotFound.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Exists(ctx context.Context, ref string) (bool, error)
	// Remove deletes the file. Missing files are not an error.
	Remove(ctx context.Context, ref string) error
}

// LocalStore saves uploaded files to disk under a base directory.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates the base directory if missing.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Save writes an uploaded file and returns its reference.
func (f *LocalStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// The directory may have been removed since startup.
	if err := os.MkdirAll(f.basePath, 0o755); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}
	ref := NewKey(name)
	target := filepath.Join(f.basePath, ref)

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("close file: %w", err)
	}
	return ref, nil
}

// Open returns a reader for the stored file.
func (f *LocalStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	target, ok := f.resolve(ref)
	if !ok {
		return nil, ErrFileNotFound
	}
	file, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		_ = file.Close()
		return nil, ErrFileNotFound
	}
	return file, nil
}

// Exists reports whether a regular file is stored under ref.
func (f *LocalStore) Exists(_ context.Context, ref string) (bool, error) {
	target, ok := f.resolve(ref)
	if !ok {
		return false, nil
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// Remove deletes a stored file.
func (f *LocalStore) Remove(_ context.Context, ref string) error {
	target, ok := f.resolve(ref)
	if !ok {
		return nil
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (f *LocalStore) resolve(ref string) (string, bool) {
	if !validRef(ref) {
		return "", false
	}
	return filepath.Join(f.basePath, ref), true
}
