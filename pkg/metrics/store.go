package metrics

import "time"

// StoreMetrics provides observability for store backends.
//
// Operations are the store primitives: "stat", "list", "open", "write",
// "mkdir", "remove" and "remove_all".
type StoreMetrics interface {
	// ObserveOperation records a completed store call. err is nil on success.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes moved through Open ("read") or Write ("write").
	RecordBytes(direction string, bytes int64)
}

type noopStoreMetrics struct{}

// NewNoopStoreMetrics returns a StoreMetrics that discards everything.
func NewNoopStoreMetrics() StoreMetrics {
	return noopStoreMetrics{}
}

func (noopStoreMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopStoreMetrics) RecordBytes(string, int64)                     {}
