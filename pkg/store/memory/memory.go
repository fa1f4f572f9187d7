// Package memory implements an in-memory store for DittoFM.
//
// Content is lost when the process exits. The store is mainly used by tests
// and for ephemeral demo servers.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/dittofm/pkg/store"
)

type node struct {
	dir      bool
	data     []byte
	modTime  time.Time
	children map[string]*node
}

func newDir() *node {
	return &node{dir: true, modTime: time.Now(), children: make(map[string]*node)}
}

// MemoryStore implements store.Store with a tree of nodes guarded by a
// single RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	root    *node
	maxSize int64
	used    int64
}

// Config configures a MemoryStore.
type Config struct {
	// MaxSizeBytes caps the total size of file content. 0 means unlimited.
	MaxSizeBytes int64
}

// NewMemoryStore creates an empty store whose root is a directory.
func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{root: newDir(), maxSize: cfg.MaxSizeBytes}
}

// lookup walks to p. Must be called with mu held.
func (s *MemoryStore) lookup(p string) (*node, error) {
	cur := s.root
	if p == "" {
		return cur, nil
	}
	for _, seg := range strings.Split(p, "/") {
		if !cur.dir {
			return nil, store.ErrNotDirectory
		}
		next, ok := cur.children[seg]
		if !ok {
			return nil, store.ErrNotFound
		}
		cur = next
	}
	return cur, nil
}

// parentOf returns the directory that holds p. Must be called with mu held.
func (s *MemoryStore) parentOf(p string) (*node, error) {
	parent, err := s.lookup(store.Parent(p))
	if err != nil {
		return nil, err
	}
	if !parent.dir {
		return nil, store.ErrNotDirectory
	}
	return parent, nil
}

func clean(op, p string) (string, error) {
	cleaned, err := store.CleanPath(p)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return cleaned, nil
}

func (s *MemoryStore) Stat(ctx context.Context, p string) (store.EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return store.EntryInfo{}, err
	}
	p, err := clean("stat", p)
	if err != nil {
		return store.EntryInfo{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.lookup(p)
	if err != nil {
		return store.EntryInfo{}, fmt.Errorf("stat %q: %w", p, err)
	}

	info := store.EntryInfo{Name: store.Base(p), Type: store.EntryTypeFile, Size: int64(len(n.data)), ModTime: n.modTime}
	if n.dir {
		info.Type = store.EntryTypeDirectory
	}
	return info, nil
}

func (s *MemoryStore) List(ctx context.Context, p string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := clean("list", p)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.lookup(p)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", p, err)
	}
	if !n.dir {
		return nil, fmt.Errorf("list %q: %w", p, store.ErrNotDirectory)
	}

	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := clean("open", p)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.lookup(p)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", p, err)
	}
	if n.dir {
		return nil, fmt.Errorf("open %q: %w", p, store.ErrIsDirectory)
	}

	// Writes replace n.data wholesale, so sharing the slice is safe.
	return io.NopCloser(bytes.NewReader(n.data)), nil
}

func (s *MemoryStore) Write(ctx context.Context, p string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p, err := clean("write", p)
	if err != nil {
		return 0, err
	}
	if p == "" {
		return 0, fmt.Errorf("write %q: %w", p, store.ErrIsDirectory)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("write %q: %w", p, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.parentOf(p)
	if err != nil {
		return 0, fmt.Errorf("write %q: %w", p, err)
	}

	name := store.Base(p)
	var previous int64
	if existing, ok := parent.children[name]; ok {
		if existing.dir {
			return 0, fmt.Errorf("write %q: %w", p, store.ErrIsDirectory)
		}
		previous = int64(len(existing.data))
	}

	if s.maxSize > 0 && s.used-previous+int64(len(data)) > s.maxSize {
		return 0, fmt.Errorf("write %q: memory store full (%d bytes max)", p, s.maxSize)
	}

	parent.children[name] = &node{data: data, modTime: time.Now()}
	s.used += int64(len(data)) - previous
	return int64(len(data)), nil
}

func (s *MemoryStore) Mkdir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := clean("mkdir", p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p == "" {
		return fmt.Errorf("mkdir %q: %w", p, store.ErrExists)
	}

	parent, err := s.parentOf(p)
	if err != nil {
		return fmt.Errorf("mkdir %q: %w", p, err)
	}

	name := store.Base(p)
	if _, ok := parent.children[name]; ok {
		return fmt.Errorf("mkdir %q: %w", p, store.ErrExists)
	}
	parent.children[name] = newDir()
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, p string) error {
	return s.remove(ctx, p, false)
}

func (s *MemoryStore) RemoveAll(ctx context.Context, p string) error {
	return s.remove(ctx, p, true)
}

func (s *MemoryStore) remove(ctx context.Context, p string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := clean("remove", p)
	if err != nil {
		return err
	}
	if p == "" {
		return fmt.Errorf("remove %q: %w", p, store.ErrInvalidPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.parentOf(p)
	if err != nil {
		if recursive {
			return nil
		}
		return fmt.Errorf("remove %q: %w", p, err)
	}

	name := store.Base(p)
	n, ok := parent.children[name]
	if !ok {
		if recursive {
			return nil
		}
		return fmt.Errorf("remove %q: %w", p, store.ErrNotFound)
	}
	if n.dir && len(n.children) > 0 && !recursive {
		return fmt.Errorf("remove %q: %w", p, store.ErrNotEmpty)
	}

	s.used -= sizeOf(n)
	delete(parent.children, name)
	return nil
}

func sizeOf(n *node) int64 {
	if !n.dir {
		return int64(len(n.data))
	}
	var total int64
	for _, child := range n.children {
		total += sizeOf(child)
	}
	return total
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

var _ store.Store = (*MemoryStore)(nil)
