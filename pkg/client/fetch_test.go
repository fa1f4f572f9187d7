package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittofm/pkg/fileserver"
	"github.com/marmos91/dittofm/pkg/store"
	"github.com/marmos91/dittofm/pkg/store/memory"
)

// newFileServer starts a file manager over a memory store holding
// content/ and public/.
func newFileServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	ctx := context.Background()

	s := memory.NewMemoryStore(memory.Config{})
	resolver, err := fileserver.NewResolver(t.TempDir(), "content", "public")
	require.NoError(t, err)
	require.NoError(t, fileserver.EnsureRoots(ctx, s, resolver))

	handlers, err := fileserver.NewHandlers(s, resolver, fileserver.Options{})
	require.NoError(t, err)

	srv := httptest.NewServer(fileserver.NewGateway(handlers))
	t.Cleanup(srv.Close)
	return srv, s
}

func writeFile(t *testing.T, s store.Store, p, body string) {
	t.Helper()
	_, err := s.Write(context.Background(), p, strings.NewReader(body))
	require.NoError(t, err)
}

// flakyTransport fails the first n round trips.
type flakyTransport struct {
	failures int32
	calls    atomic.Int32
	next     http.RoundTripper
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.New("connection refused")
	}
	return f.next.RoundTrip(req)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        Content
	}{
		{"directory", "application/json", `{"type":"directory","value":"a\nb"}`, Content{Type: ContentDirectory, Value: "a\nb"}},
		{"file with params", "application/json; charset=utf-8", `{"type":"file","value":"hi"}`, Content{Type: ContentFile, Value: "hi"}},
		{"text", "text/plain", "directory", Content{Type: ContentText, Value: "directory"}},
		{"html", "text/html; charset=utf-8", "<p>x</p>", Content{Type: ContentText, Value: "<p>x</p>"}},
		{"missing", "", "raw", Content{Type: ContentText, Value: "raw"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decode(tt.contentType, []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := decode("application/json", []byte("{"))
	assert.Error(t, err)
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 1500*time.Millisecond, p.delay(1))
	assert.Equal(t, 3*time.Second, p.delay(2))
	assert.Equal(t, 6*time.Second, p.delay(3))
	assert.Equal(t, 12*time.Second, p.delay(4))
	assert.Equal(t, 15*time.Second, p.delay(5))

	u := UnboundedRetryPolicy()
	assert.Equal(t, 1500*time.Millisecond, u.delay(1))
	assert.Equal(t, 1500*time.Millisecond, u.delay(10))
}

func TestFetcher_Do(t *testing.T) {
	srv, s := newFileServer(t)
	writeFile(t, s, "content/a.txt", "alpha")
	require.NoError(t, s.Mkdir(context.Background(), "content/b"))

	f := NewFetcher(srv.Client(), DefaultRetryPolicy())
	ctx := context.Background()

	listing, err := f.Do(ctx, http.MethodGet, srv.URL+"/content", "")
	require.NoError(t, err)
	assert.Equal(t, Content{Type: ContentDirectory, Value: "a.txt\nb"}, listing)

	file, err := f.Do(ctx, http.MethodGet, srv.URL+"/content/a.txt", "")
	require.NoError(t, err)
	assert.Equal(t, Content{Type: ContentFile, Value: "alpha"}, file)

	_, err = f.Do(ctx, http.MethodPut, srv.URL+"/content/a.txt", "changed")
	require.NoError(t, err)

	file, err = f.Do(ctx, http.MethodGet, srv.URL+"/content/a.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "changed", file.Value)
}

func TestFetcher_SendsTextPlain(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.Client(), DefaultRetryPolicy()).Do(context.Background(), http.MethodPut, srv.URL+"/x", "body")
	require.NoError(t, err)
	assert.Equal(t, RequestContentType, got.Load())
}

func TestFetcher_StatusError(t *testing.T) {
	srv, _ := newFileServer(t)
	f := NewFetcher(srv.Client(), DefaultRetryPolicy())

	_, err := f.Do(context.Background(), http.MethodGet, srv.URL+"/content/missing", "")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.MethodGet, se.Method)
	assert.Equal(t, "File not found", se.Body)

	_, err = f.Do(context.Background(), http.MethodGet, srv.URL+"/secret", "")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.False(t, IsNotFound(err))
}

func TestFetcher_Stat(t *testing.T) {
	srv, s := newFileServer(t)
	writeFile(t, s, "content/a.txt", "alpha")

	f := NewFetcher(srv.Client(), DefaultRetryPolicy())
	ctx := context.Background()

	kind, err := f.Stat(ctx, srv.URL+"/content")
	require.NoError(t, err)
	assert.Equal(t, "directory", kind)

	kind, err = f.Stat(ctx, srv.URL+"/content/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "file", kind)

	_, err = f.Stat(ctx, srv.URL+"/content/nope")
	assert.True(t, IsNotFound(err))
}

func TestFetcher_RetriesTransportErrors(t *testing.T) {
	srv, _ := newFileServer(t)
	transport := &flakyTransport{failures: 2, next: srv.Client().Transport}

	f := NewFetcher(&http.Client{Transport: transport}, DefaultRetryPolicy())
	var delays []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	c, err := f.Do(context.Background(), http.MethodGet, srv.URL+"/content", "")
	require.NoError(t, err)
	assert.True(t, c.IsDirectory())
	assert.Equal(t, int32(3), transport.calls.Load())
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 3 * time.Second}, delays)
}

func TestFetcher_GivesUp(t *testing.T) {
	transport := &flakyTransport{failures: 100}
	policy := DefaultRetryPolicy()
	policy.MaxAttempts = 3

	f := NewFetcher(&http.Client{Transport: transport}, policy)
	f.sleep = func(context.Context, time.Duration) error { return nil }

	_, err := f.Do(context.Background(), http.MethodGet, "http://localhost:1/content", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 3 attempt(s)")
	assert.Equal(t, int32(3), transport.calls.Load())
}

func TestFetcher_UnboundedStopsOnCancel(t *testing.T) {
	transport := &flakyTransport{failures: 1 << 30}
	f := NewFetcher(&http.Client{Transport: transport}, UnboundedRetryPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	f.sleep = func(ctx context.Context, _ time.Duration) error {
		if transport.calls.Load() >= 10 {
			cancel()
		}
		return ctx.Err()
	}

	_, err := f.Do(ctx, http.MethodGet, "http://localhost:1/content", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(10), transport.calls.Load())
}

func TestFetcher_StatusErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), DefaultRetryPolicy())
	_, err := f.Do(context.Background(), http.MethodGet, srv.URL, "")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}
