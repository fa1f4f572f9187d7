// Package badger implements a DittoFM store backed by an embedded BadgerDB.
//
// Key layout:
//
//	e:<path>            entry record (type byte, 8-byte mtime, file content)
//	c:<parent>\x00<name> child index, empty value
//
// The root directory ("") is implicit and has no entry record. Child index
// keys sort bytewise, so iterating a parent prefix yields names in order.
package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/dittofm/pkg/store"
)

const (
	prefixEntry = "e:"
	prefixChild = "c:"

	typeFile byte = 'f'
	typeDir  byte = 'd'

	headerSize = 9
)

// BadgerStore implements store.Store on BadgerDB.
//
// Thread Safety:
// All mutations run in BadgerDB transactions. Conflicting concurrent
// transactions fail with badger.ErrConflict and are retried once.
type BadgerStore struct {
	db *badgerdb.DB
}

// Config configures a BadgerStore.
type Config struct {
	// DBPath is the database directory. Ignored when InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the whole database in RAM.
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB and IndexCacheSizeMB size BadgerDB's caches.
	// Zero selects 64MB and 32MB.
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// NewBadgerStore opens (or creates) the database described by cfg.
func NewBadgerStore(ctx context.Context, cfg Config) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, errors.New("badger store requires db_path")
		}
		opts = badgerdb.DefaultOptions(cfg.DBPath)
	}

	blockCacheMB := cfg.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := cfg.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}

	opts = opts.
		WithLoggingLevel(badgerdb.WARNING).
		WithBlockCacheSize(blockCacheMB << 20).
		WithIndexCacheSize(indexCacheMB << 20)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	return &BadgerStore{db: db}, nil
}

func keyEntry(p string) []byte {
	return []byte(prefixEntry + p)
}

func keyChildPrefix(parent string) []byte {
	return []byte(prefixChild + parent + "\x00")
}

func keyChild(parent, name string) []byte {
	return append(keyChildPrefix(parent), name...)
}

func encodeEntry(typ byte, modTime time.Time, data []byte) []byte {
	buf := make([]byte, headerSize+len(data))
	buf[0] = typ
	binary.BigEndian.PutUint64(buf[1:headerSize], uint64(modTime.UnixNano()))
	copy(buf[headerSize:], data)
	return buf
}

// entryHeader reads the type and mtime of p. The root is reported as a
// directory.
func entryHeader(txn *badgerdb.Txn, p string) (byte, time.Time, int64, error) {
	if p == "" {
		return typeDir, time.Time{}, 0, nil
	}

	item, err := txn.Get(keyEntry(p))
	if err == badgerdb.ErrKeyNotFound {
		// Distinguish "a/b" under a file "a" from a plain miss.
		if parent := store.Parent(p); parent != "" {
			if typ, _, _, perr := entryHeader(txn, parent); perr == nil && typ != typeDir {
				return 0, time.Time{}, 0, store.ErrNotDirectory
			}
		}
		return 0, time.Time{}, 0, store.ErrNotFound
	}
	if err != nil {
		return 0, time.Time{}, 0, err
	}

	var (
		typ     byte
		modTime time.Time
	)
	err = item.Value(func(val []byte) error {
		if len(val) < headerSize {
			return fmt.Errorf("corrupt entry %q: %d bytes", p, len(val))
		}
		typ = val[0]
		modTime = time.Unix(0, int64(binary.BigEndian.Uint64(val[1:headerSize])))
		return nil
	})
	if err != nil {
		return 0, time.Time{}, 0, err
	}
	return typ, modTime, item.ValueSize() - headerSize, nil
}

// requireParentDir checks that the parent of p exists and is a directory.
func requireParentDir(txn *badgerdb.Txn, p string) error {
	typ, _, _, err := entryHeader(txn, store.Parent(p))
	if err != nil {
		return err
	}
	if typ != typeDir {
		return store.ErrNotDirectory
	}
	return nil
}

func hasChildren(txn *badgerdb.Txn, p string) bool {
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = keyChildPrefix(p)

	it := txn.NewIterator(opts)
	defer it.Close()

	it.Rewind()
	return it.Valid()
}

// update runs fn in a read-write transaction, retrying once on conflict.
func (s *BadgerStore) update(fn func(txn *badgerdb.Txn) error) error {
	err := s.db.Update(fn)
	if errors.Is(err, badgerdb.ErrConflict) {
		err = s.db.Update(fn)
	}
	return err
}

func clean(op, p string) (string, error) {
	cleaned, err := store.CleanPath(p)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return cleaned, nil
}

func (s *BadgerStore) Stat(ctx context.Context, p string) (store.EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return store.EntryInfo{}, err
	}
	p, err := clean("stat", p)
	if err != nil {
		return store.EntryInfo{}, err
	}

	var info store.EntryInfo
	err = s.db.View(func(txn *badgerdb.Txn) error {
		typ, modTime, size, err := entryHeader(txn, p)
		if err != nil {
			return err
		}
		info = store.EntryInfo{Name: store.Base(p), Type: store.EntryTypeFile, Size: size, ModTime: modTime}
		if typ == typeDir {
			info.Type = store.EntryTypeDirectory
			info.Size = 0
		}
		return nil
	})
	if err != nil {
		return store.EntryInfo{}, fmt.Errorf("stat %q: %w", p, err)
	}
	return info, nil
}

func (s *BadgerStore) List(ctx context.Context, p string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := clean("list", p)
	if err != nil {
		return nil, err
	}

	var names []string
	err = s.db.View(func(txn *badgerdb.Txn) error {
		typ, _, _, err := entryHeader(txn, p)
		if err != nil {
			return err
		}
		if typ != typeDir {
			return store.ErrNotDirectory
		}

		prefix := keyChildPrefix(p)
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		names = []string{}
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			names = append(names, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", p, err)
	}
	return names, nil
}

func (s *BadgerStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := clean("open", p)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.db.View(func(txn *badgerdb.Txn) error {
		typ, _, _, err := entryHeader(txn, p)
		if err != nil {
			return err
		}
		if typ == typeDir {
			return store.ErrIsDirectory
		}

		item, err := txn.Get(keyEntry(p))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		data = val[headerSize:]
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", p, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *BadgerStore) Write(ctx context.Context, p string, r io.Reader) (int64, error) {
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

	err = s.update(func(txn *badgerdb.Txn) error {
		if err := requireParentDir(txn, p); err != nil {
			return err
		}

		typ, _, _, err := entryHeader(txn, p)
		switch {
		case err == nil && typ == typeDir:
			return store.ErrIsDirectory
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return err
		}

		if err := txn.Set(keyEntry(p), encodeEntry(typeFile, time.Now(), data)); err != nil {
			return err
		}
		return txn.Set(keyChild(store.Parent(p), store.Base(p)), nil)
	})
	if err != nil {
		return 0, fmt.Errorf("write %q: %w", p, err)
	}
	return int64(len(data)), nil
}

func (s *BadgerStore) Mkdir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := clean("mkdir", p)
	if err != nil {
		return err
	}
	if p == "" {
		return fmt.Errorf("mkdir %q: %w", p, store.ErrExists)
	}

	err = s.update(func(txn *badgerdb.Txn) error {
		if err := requireParentDir(txn, p); err != nil {
			return err
		}

		_, err := txn.Get(keyEntry(p))
		if err == nil {
			return store.ErrExists
		}
		if err != badgerdb.ErrKeyNotFound {
			return err
		}

		if err := txn.Set(keyEntry(p), encodeEntry(typeDir, time.Now(), nil)); err != nil {
			return err
		}
		return txn.Set(keyChild(store.Parent(p), store.Base(p)), nil)
	})
	if err != nil {
		return fmt.Errorf("mkdir %q: %w", p, err)
	}
	return nil
}

func (s *BadgerStore) Remove(ctx context.Context, p string) error {
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

	err = s.update(func(txn *badgerdb.Txn) error {
		typ, _, _, err := entryHeader(txn, p)
		if err != nil {
			return err
		}
		if typ == typeDir && hasChildren(txn, p) {
			return store.ErrNotEmpty
		}

		if err := txn.Delete(keyEntry(p)); err != nil {
			return err
		}
		return txn.Delete(keyChild(store.Parent(p), store.Base(p)))
	})
	if err != nil {
		return fmt.Errorf("remove %q: %w", p, err)
	}
	return nil
}

// RemoveAll collects the subtree in a read transaction and deletes it with a
// write batch, so large trees do not hit the transaction size limit.
func (s *BadgerStore) RemoveAll(ctx context.Context, p string) error {
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

	var keys [][]byte
	err = s.db.View(func(txn *badgerdb.Txn) error {
		typ, _, _, err := entryHeader(txn, p)
		if err != nil {
			return err
		}

		keys = append(keys, keyChild(store.Parent(p), store.Base(p)), keyEntry(p))
		if typ == typeDir {
			return collectSubtree(ctx, txn, p, &keys)
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNotDirectory) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove %q: %w", p, err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("remove %q: %w", p, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("remove %q: %w", p, err)
	}
	return nil
}

func collectSubtree(ctx context.Context, txn *badgerdb.Txn, dir string, keys *[][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix := keyChildPrefix(dir)
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	var children []string
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().KeyCopy(nil)
		*keys = append(*keys, key)
		children = append(children, string(key[len(prefix):]))
	}
	it.Close()

	for _, name := range children {
		child := dir + "/" + name
		typ, _, _, err := entryHeader(txn, child)
		if err != nil {
			return err
		}
		*keys = append(*keys, keyEntry(child))
		if typ == typeDir {
			if err := collectSubtree(ctx, txn, child, keys); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ store.Store = (*BadgerStore)(nil)
