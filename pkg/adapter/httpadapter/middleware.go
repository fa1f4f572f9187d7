package httpadapter

import (
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/marmos91/dittofm/internal/logger"
	"github.com/marmos91/dittofm/pkg/fileserver"
)

// RequestIDHeader carries the request id assigned by the adapter. A client
// supplied id is kept.
const RequestIDHeader = "X-Request-Id"

// methodLabel bounds the metrics label space to the known verbs.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPost, fileserver.MethodMkcol:
		return method
	default:
		return "OTHER"
	}
}

// instrument wraps next with request ids, rate limiting, logging and metrics.
func (a *HTTPAdapter) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		method := methodLabel(r.Method)

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		logger.Debug("[%s] %s %s from %s", id, r.Method, r.URL.RequestURI(), r.RemoteAddr)

		if a.site.Limiter != nil && !a.site.Limiter.Allow() {
			a.metrics.RecordRateLimited()
			logger.Warn("[%s] %s %s rejected: rate limit exceeded", id, r.Method, r.URL.RequestURI())
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, http.StatusText(http.StatusTooManyRequests))
			return
		}

		a.metrics.RecordRequestStart(method)
		defer a.metrics.RecordRequestEnd(method)

		body := &countingBody{ReadCloser: r.Body}
		r.Body = body
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		if body.n > 0 {
			a.metrics.RecordBytesReceived(method, body.n)
		}
		a.metrics.RecordRequest(method, rec.status, elapsed, rec.bytes)

		logger.Info("%s %s -> %d (%s in, %s out, %v)", r.Method, r.URL.RequestURI(), rec.status,
			humanize.Bytes(uint64(body.n)), humanize.Bytes(uint64(rec.bytes)), elapsed)
	})
}

// responseRecorder captures the status code and body size.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (r *responseRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

type countingBody struct {
	io.ReadCloser
	n int64
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n += int64(n)
	return n, err
}
