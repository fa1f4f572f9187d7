package adapter

import (
	"context"

	"github.com/marmos91/dittofm/pkg/store"
)

// Adapter represents a protocol front end that can be managed by DittoServer.
//
// Each adapter exposes the shared store over one protocol and provides a
// unified interface for lifecycle management.
//
// Lifecycle:
//  1. Creation: Adapter is created with protocol-specific configuration
//  2. Store injection: SetStore() provides shared backend access
//  3. Startup: Serve() starts the protocol server and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetStore() is called
// once before Serve(), but Stop() may be called concurrently with Serve().
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful shutdown:
	// stop accepting new connections, wait for active requests (with timeout)
	// and return nil or context.Canceled.
	//
	// If Serve returns before context cancellation, DittoServer treats it as
	// a fatal error and stops all other adapters.
	Serve(ctx context.Context) error

	// SetStore injects the shared store.
	//
	// Called exactly once by DittoServer before Serve().
	SetStore(s store.Store)

	// Stop initiates graceful shutdown of the protocol server.
	//
	// Implementations must be idempotent, safe to call concurrently with
	// Serve() and must respect the context deadline.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging and metrics.
	Protocol() string

	// Port returns the TCP port the adapter is listening on.
	//
	// For a configured port of 0 the value is only meaningful once Serve()
	// has bound the listener.
	Port() int
}
