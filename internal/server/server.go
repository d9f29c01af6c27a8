package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/copyurl/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows the paths it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// CallbackServer is a loopback HTTP listener that lives for one interactive authorization.
type CallbackServer struct {
	listener net.Listener
	server   *http.Server
	errs     chan error
	logger   *log.Logger
}

// Listen binds addr and starts serving handler in the background.
//
// The port is bound before Listen returns, so the redirect URI built from [CallbackServer.URL]
// is reachable as soon as the browser is opened. Callers must call [CallbackServer.Shutdown].
func Listen(addr string, handler http.Handler, logger *log.Logger) (*CallbackServer, error) {
	if logger == nil {
		logger = shared.NopLogger()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind callback listener on %s: %w", addr, err)
	}

	s := &CallbackServer{
		listener: ln,
		server:   &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		errs:     make(chan error, 1),
		logger:   logger,
	}

	go func() {
		logger.Debug("callback listener started", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()

	return s, nil
}

// Addr returns the bound host:port.
func (s *CallbackServer) Addr() string {
	return s.listener.Addr().String()
}

// URL returns the absolute loopback URL for path.
func (s *CallbackServer) URL(path string) string {
	return "http://" + s.Addr() + path
}

// Errors reports a listener failure that happened after [Listen] returned.
func (s *CallbackServer) Errors() <-chan error {
	return s.errs
}

// Shutdown stops the listener and waits for in-flight requests up to ctx.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.logger.Debug("callback listener stopped", "addr", s.Addr())
	return err
}

// RequestLogger logs each request at debug level without its query string, which carries
// the authorization code.
func RequestLogger(logger *log.Logger) Middleware {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}
