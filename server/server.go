package server

import (
	"context"
	"net/http"
	"time"

	"github.com/hupe1980/streambridge"
	"github.com/hupe1980/streambridge/logging"
)

// Options configure the HTTP server.
type Options struct {
	// Addr is the listen address.
	Addr string
	// JWTSecret enables bearer-token auth on the API routes when non-empty.
	JWTSecret string
	// ReadHeaderTimeout bounds header parsing per connection.
	ReadHeaderTimeout time.Duration
	// ShutdownTimeout bounds connection draining on shutdown.
	ShutdownTimeout time.Duration
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Server serves the bridge's turns over HTTP.
type Server struct {
	bridge  *streambridge.StreamBridge
	logger  logging.Logger
	opts    Options
	httpSrv *http.Server
}

// New creates a server around the given bridge with optional overrides.
func New(bridge *streambridge.StreamBridge, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:              ":8080",
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{bridge: bridge, logger: opts.Logger, opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/turns/", s.handleTurns)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:              opts.Addr,
		Handler:           AuthMiddleware([]byte(opts.JWTSecret), mux),
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}
	return s
}

// Handler returns the root handler including middleware, for tests and
// embedding into an existing mux.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// ListenAndServe runs the server until ctx ends, then drains connections
// within the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", s.opts.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Server shutting down")

	// Live turns would hold their connections open for the whole drain
	// window; cancel them so streaming handlers return promptly.
	for _, id := range s.bridge.ActiveTurns() {
		_ = s.bridge.Cancel(id)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}
