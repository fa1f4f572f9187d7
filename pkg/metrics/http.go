package metrics

import "time"

// HTTPMetrics provides observability for the HTTP adapter.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewHTTPMetrics()
//	adapter := http.New(config, m)
//
//	// Without metrics (no-op)
//	adapter := http.New(config, nil)
type HTTPMetrics interface {
	// RecordRequest records a completed request.
	//
	// Parameters:
	//   - method: HTTP verb (e.g., "GET", "MKCOL")
	//   - status: response status code
	//   - duration: time from first byte read to last byte written
	//   - bytesWritten: response body size
	RecordRequest(method string, status int, duration time.Duration, bytesWritten int64)

	// RecordRequestStart increments the in-flight request gauge.
	RecordRequestStart(method string)

	// RecordRequestEnd decrements the in-flight request gauge.
	RecordRequestEnd(method string)

	// RecordBytesReceived records request body bytes (PUT uploads).
	RecordBytesReceived(method string, bytes int64)

	// RecordRateLimited counts requests rejected by the rate limiter.
	RecordRateLimited()

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)
}

type noopHTTPMetrics struct{}

// NewNoopHTTPMetrics returns an HTTPMetrics that discards everything.
func NewNoopHTTPMetrics() HTTPMetrics {
	return noopHTTPMetrics{}
}

func (noopHTTPMetrics) RecordRequest(string, int, time.Duration, int64) {}
func (noopHTTPMetrics) RecordRequestStart(string)                      {}
func (noopHTTPMetrics) RecordRequestEnd(string)                        {}
func (noopHTTPMetrics) RecordBytesReceived(string, int64)              {}
func (noopHTTPMetrics) RecordRateLimited()                             {}
func (noopHTTPMetrics) SetActiveConnections(int32)                     {}
