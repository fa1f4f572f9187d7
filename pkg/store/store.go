// Package store defines the storage backend behind the DittoFM file manager.
//
// The HTTP verb handlers never touch the operating system directly. Every
// filesystem primitive they need (stat, list, read, write, mkdir, remove) goes
// through a Store, which lets the same server run on top of the local disk,
// an in-memory tree, an S3 bucket or an embedded BadgerDB.
//
// Paths:
// Stores are addressed with slash-separated paths relative to the server base
// directory (e.g. "content/notes/todo.txt"). The empty path is the base
// directory itself and always exists as a directory. Paths are validated with
// CleanPath before use; stores never see ".." segments.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the requested entry does not exist.
	ErrNotFound = errors.New("entry not found")

	// ErrNotDirectory is returned when a directory operation targets a file,
	// or when a path component that must be a directory is a file.
	ErrNotDirectory = errors.New("not a directory")

	// ErrIsDirectory is returned when a file operation targets a directory.
	ErrIsDirectory = errors.New("is a directory")

	// ErrExists is returned by Mkdir when the path is already taken.
	ErrExists = errors.New("entry already exists")

	// ErrNotEmpty is returned by Remove for a directory that still has children.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrInvalidPath is returned for paths that escape the store root.
	ErrInvalidPath = errors.New("invalid path")
)

// EntryType tags an entry as a file or a directory.
type EntryType int

const (
	EntryTypeFile EntryType = iota
	EntryTypeDirectory
)

func (t EntryType) String() string {
	switch t {
	case EntryTypeDirectory:
		return "directory"
	case EntryTypeFile:
		return "file"
	default:
		return "unknown"
	}
}

// EntryInfo describes a single store entry.
type EntryInfo struct {
	Name    string
	Type    EntryType
	Size    int64
	ModTime time.Time
}

// IsDir reports whether the entry is a directory.
func (e EntryInfo) IsDir() bool {
	return e.Type == EntryTypeDirectory
}

// Store is the storage backend used by the file manager verb handlers.
//
// Thread safety:
// Implementations must be safe for concurrent use. No cross-call
// transactions are offered: concurrent writers to the same path race and the
// last write wins.
type Store interface {
	// Stat returns information about the entry at p, or ErrNotFound.
	Stat(ctx context.Context, p string) (EntryInfo, error)

	// List returns the names of the direct children of directory p, sorted
	// by name. Returns ErrNotFound or ErrNotDirectory.
	List(ctx context.Context, p string) ([]string, error)

	// Open returns a reader over the content of file p. The caller must
	// close it. Returns ErrNotFound or ErrIsDirectory.
	Open(ctx context.Context, p string) (io.ReadCloser, error)

	// Write creates or truncates file p and copies r into it, returning the
	// number of bytes written. The parent directory must already exist.
	Write(ctx context.Context, p string, r io.Reader) (int64, error)

	// Mkdir creates directory p. The parent must exist. Returns ErrExists
	// if p is already taken (by a file or a directory).
	Mkdir(ctx context.Context, p string) error

	// Remove deletes file p or empty directory p.
	Remove(ctx context.Context, p string) error

	// RemoveAll deletes p and everything below it. Missing paths are not
	// an error.
	RemoveAll(ctx context.Context, p string) error

	// Close releases any resources held by the store.
	Close() error
}

// CleanPath validates and normalizes a store path.
//
// Leading and trailing slashes are dropped, "." segments and duplicate
// slashes are collapsed. Any ".." segment is rejected with ErrInvalidPath
// rather than resolved, so callers cannot step outside the store root.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
		if strings.ContainsRune(seg, 0) {
			return "", fmt.Errorf("%w: NUL in %q", ErrInvalidPath, p)
		}
	}

	cleaned := path.Clean("/" + p)
	return strings.TrimPrefix(cleaned, "/"), nil
}

// Parent returns the parent of a cleaned path ("" for top-level entries).
func Parent(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// Base returns the last element of a cleaned path.
func Base(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(p)
}
