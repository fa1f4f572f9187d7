// Package metered wraps a store.Store with operation metrics.
package metered

import (
	"context"
	"io"
	"time"

	"github.com/marmos91/dittofm/pkg/metrics"
	"github.com/marmos91/dittofm/pkg/store"
)

// Store records the duration and outcome of every call on the wrapped
// store, plus the bytes read and written.
type Store struct {
	next    store.Store
	metrics metrics.StoreMetrics
}

// New wraps next. A nil m selects the no-op implementation.
func New(next store.Store, m metrics.StoreMetrics) *Store {
	if m == nil {
		m = metrics.NewNoopStoreMetrics()
	}
	return &Store{next: next, metrics: m}
}

// Unwrap returns the wrapped store.
func (s *Store) Unwrap() store.Store {
	return s.next
}

func (s *Store) observe(op string, start time.Time, err error) {
	s.metrics.ObserveOperation(op, time.Since(start), err)
}

func (s *Store) Stat(ctx context.Context, p string) (info store.EntryInfo, err error) {
	defer func(start time.Time) { s.observe("stat", start, err) }(time.Now())
	return s.next.Stat(ctx, p)
}

func (s *Store) List(ctx context.Context, p string) (names []string, err error) {
	defer func(start time.Time) { s.observe("list", start, err) }(time.Now())
	return s.next.List(ctx, p)
}

func (s *Store) Open(ctx context.Context, p string) (rc io.ReadCloser, err error) {
	defer func(start time.Time) { s.observe("open", start, err) }(time.Now())

	rc, err = s.next.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	return &countingReader{ReadCloser: rc, metrics: s.metrics}, nil
}

func (s *Store) Write(ctx context.Context, p string, r io.Reader) (n int64, err error) {
	defer func(start time.Time) { s.observe("write", start, err) }(time.Now())

	n, err = s.next.Write(ctx, p, r)
	s.metrics.RecordBytes("write", n)
	return n, err
}

func (s *Store) Mkdir(ctx context.Context, p string) (err error) {
	defer func(start time.Time) { s.observe("mkdir", start, err) }(time.Now())
	return s.next.Mkdir(ctx, p)
}

func (s *Store) Remove(ctx context.Context, p string) (err error) {
	defer func(start time.Time) { s.observe("remove", start, err) }(time.Now())
	return s.next.Remove(ctx, p)
}

func (s *Store) RemoveAll(ctx context.Context, p string) (err error) {
	defer func(start time.Time) { s.observe("remove_all", start, err) }(time.Now())
	return s.next.RemoveAll(ctx, p)
}

func (s *Store) Close() error {
	return s.next.Close()
}

// countingReader reports the bytes read when closed.
type countingReader struct {
	io.ReadCloser
	metrics metrics.StoreMetrics
	n       int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) Close() error {
	c.metrics.RecordBytes("read", c.n)
	return c.ReadCloser.Close()
}

var _ store.Store = (*Store)(nil)
