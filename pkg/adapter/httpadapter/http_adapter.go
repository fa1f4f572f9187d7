package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/net/netutil"

	"github.com/marmos91/dittofm/internal/logger"
	"github.com/marmos91/dittofm/internal/ratelimiter"
	"github.com/marmos91/dittofm/pkg/fileserver"
	"github.com/marmos91/dittofm/pkg/metrics"
	"github.com/marmos91/dittofm/pkg/store"
)

// HTTPAdapter implements the adapter.Adapter interface for the file manager
// HTTP protocol.
//
// The adapter owns the TCP listener and the net/http server. Requests are
// dispatched by a fileserver.Gateway wrapped in the request middleware
// (request ids, rate limiting, logging and metrics).
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed and idle connections dropped (http.Server.Shutdown)
//  3. Wait for in-flight requests to complete (up to ShutdownTimeout)
//  4. Cancel request contexts and force-close remaining connections after timeout
//
// Thread safety:
// All methods are safe for concurrent use. Shutdown is guarded by sync.Once
// so Stop() may be called multiple times.
type HTTPAdapter struct {
	config  HTTPConfig
	site    Site
	store   store.Store
	metrics metrics.HTTPMetrics

	// mu guards server and listener, which are set once by Serve.
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener

	// ready is closed once the listener is bound.
	ready chan struct{}

	// boundPort is the port the listener actually bound, useful with Port 0.
	boundPort atomic.Int32

	// connCount tracks open client connections via http.Server.ConnState.
	connCount atomic.Int32

	shutdownOnce sync.Once
	shutdown     chan struct{}

	// done is closed when shutdown has completed; shutdownErr is valid after.
	done        chan struct{}
	shutdownErr error

	// shutdownCtx is the base context of every request. It is cancelled
	// when the graceful shutdown window expires.
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc
}

// HTTPConfig holds configuration parameters for the HTTP server.
//
// Default values (applied by New if zero):
//   - Port: 8081
//   - MaxConnections: 0 (unlimited)
//   - ReadTimeout: 5m
//   - WriteTimeout: 5m
//   - IdleTimeout: 2m
//   - ShutdownTimeout: 30s
type HTTPConfig struct {
	// Enabled controls whether the HTTP adapter is active.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the TCP port to listen on. Tests use -1 to request a free
	// port from the kernel.
	Port int `mapstructure:"port" yaml:"port" validate:"min=-1,max=65535"`

	// MaxConnections limits the number of concurrent client connections.
	// Connections beyond the limit wait in the accept queue. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`

	// ReadTimeout bounds reading a complete request, including PUT bodies.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing a response, including streamed files.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`

	// IdleTimeout closes keep-alive connections idle for longer than this.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout is the maximum time to wait for in-flight requests
	// during graceful shutdown before connections are force-closed.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`

	// H2C enables cleartext HTTP/2 alongside HTTP/1.1.
	H2C bool `mapstructure:"h2c" yaml:"h2c"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *HTTPConfig) applyDefaults() {
	// Enabled is defaulted in pkg/config so an explicit false survives.
	if c.Port == 0 {
		c.Port = 8081
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// validate checks that the configuration is usable.
func (c *HTTPConfig) validate() error {
	if c.Port < -1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be >= 0", c.MaxConnections)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid ReadTimeout %v: must be >= 0", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid WriteTimeout %v: must be >= 0", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("invalid IdleTimeout %v: must be >= 0", c.IdleTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}

// listenAddr maps the -1 sentinel onto an ephemeral port.
func (c *HTTPConfig) listenAddr() string {
	if c.Port < 0 {
		return ":0"
	}
	return fmt.Sprintf(":%d", c.Port)
}

// Site describes what the adapter serves: the path resolver, the verb
// handler options and the request rate limiter.
type Site struct {
	// Resolver confines request paths to the content and public roots. Required.
	Resolver *fileserver.Resolver

	// Options configures the verb handlers (embedded assets, hidden names).
	Options fileserver.Options

	// Limiter throttles requests. nil disables rate limiting.
	Limiter *ratelimiter.RateLimiter
}

// New creates a new HTTPAdapter with the specified configuration.
//
// The adapter is created in a stopped state. Call SetStore() to inject the
// backend, then Serve() to start accepting connections.
//
// Panics if config validation fails or site has no resolver.
func New(config HTTPConfig, site Site, httpMetrics metrics.HTTPMetrics) *HTTPAdapter {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}
	if site.Resolver == nil {
		panic("HTTP adapter requires a path resolver")
	}

	if httpMetrics == nil {
		httpMetrics = metrics.NewNoopHTTPMetrics()
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	return &HTTPAdapter{
		config:         config,
		site:           site,
		metrics:        httpMetrics,
		ready:          make(chan struct{}),
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
	}
}

// SetStore injects the shared store.
func (a *HTTPAdapter) SetStore(s store.Store) {
	a.store = s
	logger.Debug("HTTP store configured")
}

// Handler builds the complete request handler: verb gateway, middleware and
// optional h2c upgrade. Serve uses it; it is exported for embedding the
// file manager into another server.
func (a *HTTPAdapter) Handler() (http.Handler, error) {
	if a.store == nil {
		return nil, errors.New("HTTP adapter has no store; call SetStore() before Serve()")
	}

	handlers, err := fileserver.NewHandlers(a.store, a.site.Resolver, a.site.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to create verb handlers: %w", err)
	}

	var handler http.Handler = fileserver.NewGateway(handlers)
	handler = a.instrument(handler)

	if a.config.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{IdleTimeout: a.config.IdleTimeout})
	}
	return handler, nil
}

// Serve starts the HTTP server and blocks until the context is cancelled
// or an unrecoverable error occurs.
//
// Returns nil on graceful shutdown, or an error if the listener fails or
// shutdown had to force-close connections.
func (a *HTTPAdapter) Serve(ctx context.Context) error {
	handler, err := a.Handler()
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", a.config.listenAddr())
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener on port %d: %w", a.config.Port, err)
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		a.boundPort.Store(int32(tcpAddr.Port))
	}
	if a.config.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, a.config.MaxConnections)
		logger.Debug("HTTP connection limit: %d", a.config.MaxConnections)
	} else {
		logger.Debug("HTTP connection limit: unlimited")
	}

	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       a.config.ReadTimeout,
		ReadHeaderTimeout: a.config.ReadTimeout,
		WriteTimeout:      a.config.WriteTimeout,
		IdleTimeout:       a.config.IdleTimeout,
		ConnState:         a.trackConn,
		BaseContext:       func(net.Listener) context.Context { return a.shutdownCtx },
	}

	a.mu.Lock()
	select {
	case <-a.shutdown:
		// Stop() won the race against startup.
		a.mu.Unlock()
		_ = listener.Close()
		return nil
	default:
	}
	a.server = srv
	a.listener = listener
	a.mu.Unlock()
	close(a.ready)

	logger.Info("HTTP server listening on port %d", a.Port())
	logger.Debug("HTTP config: max_connections=%d read_timeout=%v write_timeout=%v idle_timeout=%v h2c=%t",
		a.config.MaxConnections, a.config.ReadTimeout, a.config.WriteTimeout, a.config.IdleTimeout, a.config.H2C)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("HTTP shutdown signal received: %v", ctx.Err())
			a.initiateShutdown()
		case <-a.shutdown:
		}
	}()

	err = srv.Serve(listener)
	if !errors.Is(err, http.ErrServerClosed) {
		a.initiateShutdown()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	<-a.done
	return a.shutdownErr
}

// trackConn keeps the active connection count and gauge up to date.
func (a *HTTPAdapter) trackConn(conn net.Conn, state http.ConnState) {
	var current int32
	switch state {
	case http.StateNew:
		current = a.connCount.Add(1)
		logger.Debug("HTTP connection accepted from %s (active: %d)", conn.RemoteAddr(), current)
	case http.StateClosed, http.StateHijacked:
		current = a.connCount.Add(-1)
		logger.Debug("HTTP connection closed from %s (active: %d)", conn.RemoteAddr(), current)
	default:
		return
	}
	a.metrics.SetActiveConnections(current)
}

// initiateShutdown starts graceful shutdown exactly once.
func (a *HTTPAdapter) initiateShutdown() {
	a.shutdownOnce.Do(func() {
		logger.Debug("HTTP shutdown initiated")
		close(a.shutdown)

		a.mu.Lock()
		srv := a.server
		a.mu.Unlock()

		if srv == nil {
			a.cancelRequests()
			close(a.done)
			return
		}

		go func() {
			a.shutdownErr = a.gracefulShutdown(srv)
			close(a.done)
		}()
	})
}

// gracefulShutdown waits for in-flight requests or ShutdownTimeout,
// whichever comes first, then force-closes what is left.
func (a *HTTPAdapter) gracefulShutdown(srv *http.Server) error {
	logger.Info("HTTP graceful shutdown: waiting for %d active connection(s) (timeout: %v)",
		a.connCount.Load(), a.config.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(ctx)
	a.cancelRequests()
	if err == nil {
		logger.Info("HTTP graceful shutdown complete: all connections closed")
		return nil
	}

	remaining := a.connCount.Load()
	logger.Warn("HTTP shutdown timeout exceeded: %d connection(s) still active after %v - forcing closure",
		remaining, a.config.ShutdownTimeout)
	if closeErr := srv.Close(); closeErr != nil {
		logger.Debug("Error force-closing HTTP server: %v", closeErr)
	}
	return fmt.Errorf("HTTP shutdown timeout: %d connections force-closed", remaining)
}

// Stop initiates graceful shutdown and waits for it to finish or for ctx
// to expire.
func (a *HTTPAdapter) Stop(ctx context.Context) error {
	a.initiateShutdown()

	select {
	case <-a.done:
		return a.shutdownErr
	case <-ctx.Done():
		logger.Warn("HTTP shutdown context cancelled: %d connection(s) still active: %v",
			a.connCount.Load(), ctx.Err())
		return ctx.Err()
	}
}

// Ready returns a channel closed once the listener is bound.
func (a *HTTPAdapter) Ready() <-chan struct{} {
	return a.ready
}

// Addr returns the bound listener address, or nil before Serve.
func (a *HTTPAdapter) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// GetActiveConnections returns the current number of open connections.
func (a *HTTPAdapter) GetActiveConnections() int32 {
	return a.connCount.Load()
}

// Port returns the bound port once listening, the configured port before.
func (a *HTTPAdapter) Port() int {
	if p := a.boundPort.Load(); p != 0 {
		return int(p)
	}
	return a.config.Port
}

// Protocol returns "HTTP" as the protocol identifier.
func (a *HTTPAdapter) Protocol() string {
	return "HTTP"
}
