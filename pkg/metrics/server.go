package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/dittofm/internal/logger"
)

// stopGrace bounds the shutdown Start performs after its context ends.
const stopGrace = 5 * time.Second

// ServerConfig configures the metrics HTTP server.
type ServerConfig struct {
	// Port to listen on. 0 selects 9090; -1 picks an ephemeral port.
	Port int
}

// Server serves the Prometheus registry at /metrics, next to a short
// plain-text index at /.
type Server struct {
	srv  *http.Server
	port int

	addrMu sync.Mutex
	addr   net.Addr
	ready  chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// NewServer builds a stopped metrics server.
func NewServer(config ServerConfig) *Server {
	if config.Port == 0 {
		config.Port = 9090
	}

	s := &Server{port: config.Port, ready: make(chan struct{})}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/", s.index)

	s.srv = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  time.Minute,
	}
	return s
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "DittoFM metrics server\n\nScrape http://<host>:%d/metrics\n", s.port)
}

// Start listens and serves until ctx ends, then shuts down within
// stopGrace. A bind failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	listenAddr := fmt.Sprintf(":%d", s.port)
	if s.port < 0 {
		listenAddr = ":0"
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("metrics server failed to listen on %s: %w", listenAddr, err)
	}

	s.addrMu.Lock()
	s.addr = ln.Addr()
	s.addrMu.Unlock()
	close(s.ready)
	logger.Info("Metrics server listening on %s", ln.Addr())

	served := make(chan error, 1)
	go func() { served <- s.srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), stopGrace)
		defer cancel()
		return s.Stop(stopCtx)
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

// Stop shuts the server down. Only the first call has an effect.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		if err := s.srv.Shutdown(ctx); err != nil {
			s.stopErr = fmt.Errorf("metrics server shutdown: %w", err)
			logger.Error("%v", s.stopErr)
			return
		}
		logger.Info("Metrics server stopped")
	})
	return s.stopErr
}

// Ready is closed once Start is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before Start listens.
func (s *Server) Addr() net.Addr {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	return s.addr
}

// Handler returns the server's mux.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}
