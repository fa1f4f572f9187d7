// Package fs implements the local filesystem store for DittoFM.
//
// Store paths map one-to-one onto files below the base directory, so a
// server started in a working directory with "content" and "public"
// subdirectories serves exactly those directories.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/marmos91/dittofm/pkg/store"
)

// FSStore implements store.Store on top of the local filesystem.
//
// Thread Safety:
// Safe for concurrent use; every call opens and closes its own handles.
// Concurrent writes to the same file are not serialized.
type FSStore struct {
	basePath string
}

// NewFSStore creates a filesystem store rooted at basePath.
//
// The base directory is created with 0755 permissions when missing.
func NewFSStore(ctx context.Context, basePath string) (*FSStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{basePath: abs}, nil
}

// BasePath returns the absolute base directory of the store.
func (s *FSStore) BasePath() string {
	return s.basePath
}

// osPath validates p and joins it onto the base directory.
func (s *FSStore) osPath(p string) (string, error) {
	cleaned, err := store.CleanPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(cleaned)), nil
}

// mapError translates OS errors into store sentinels, keeping the original
// error in the chain.
func mapError(op, p string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, iofs.ErrNotExist):
		return fmt.Errorf("%s %q: %w", op, p, store.ErrNotFound)
	case errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%s %q: %w", op, p, store.ErrNotDirectory)
	case errors.Is(err, syscall.EISDIR):
		return fmt.Errorf("%s %q: %w", op, p, store.ErrIsDirectory)
	case errors.Is(err, syscall.ENOTEMPTY):
		return fmt.Errorf("%s %q: %w", op, p, store.ErrNotEmpty)
	// ENOTEMPTY also matches fs.ErrExist, so it must be tested first.
	case errors.Is(err, iofs.ErrExist):
		return fmt.Errorf("%s %q: %w", op, p, store.ErrExists)
	default:
		return fmt.Errorf("%s %q: %w", op, p, err)
	}
}

func (s *FSStore) Stat(ctx context.Context, p string) (store.EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return store.EntryInfo{}, err
	}

	full, err := s.osPath(p)
	if err != nil {
		return store.EntryInfo{}, err
	}

	fi, err := os.Stat(full)
	if err != nil {
		return store.EntryInfo{}, mapError("stat", p, err)
	}

	info := store.EntryInfo{
		Name:    store.Base(p),
		Type:    store.EntryTypeFile,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}
	if fi.IsDir() {
		info.Type = store.EntryTypeDirectory
		info.Size = 0
	}
	return info, nil
}

func (s *FSStore) List(ctx context.Context, p string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := s.osPath(p)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, mapError("list", p, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *FSStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := s.osPath(p)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, mapError("open", p, err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, mapError("open", p, err)
	}
	if fi.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %q: %w", p, store.ErrIsDirectory)
	}
	return f, nil
}

func (s *FSStore) Write(ctx context.Context, p string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	full, err := s.osPath(p)
	if err != nil {
		return 0, err
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, mapError("write", p, err)
	}

	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		return n, fmt.Errorf("write %q: %w", p, copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("write %q: %w", p, closeErr)
	}
	return n, nil
}

func (s *FSStore) Mkdir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.osPath(p)
	if err != nil {
		return err
	}

	return mapError("mkdir", p, os.Mkdir(full, 0755))
}

func (s *FSStore) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.osPath(p)
	if err != nil {
		return err
	}
	if full == s.basePath {
		return fmt.Errorf("remove %q: %w", p, store.ErrInvalidPath)
	}

	return mapError("remove", p, os.Remove(full))
}

func (s *FSStore) RemoveAll(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.osPath(p)
	if err != nil {
		return err
	}
	if full == s.basePath {
		return fmt.Errorf("remove %q: %w", p, store.ErrInvalidPath)
	}

	return mapError("remove", p, os.RemoveAll(full))
}

// Close is a no-op for the filesystem store.
func (s *FSStore) Close() error {
	return nil
}

var _ store.Store = (*FSStore)(nil)
