// package server exposes the sync engines over HTTP: account registration
// and login, the Spotify authorization flow, and REST endpoints for
// playlists, tracks, favorites, ratings and comments.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixtape/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows which path patterns it serves,
// letting route definitions live next to the implementation.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers and middleware and serves the whole tree.
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// Server wraps an http.Server with the application's lifecycle defaults.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

// NewServer builds a Server listening on the configured host and port.
func NewServer(conf shared.ServerConfig, handler http.Handler, logger *log.Logger) *Server {
	addr := fmt.Sprintf("%s:%d", conf.Host, conf.Port)
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
