// Package server runs the HTTP API with graceful shutdown.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 10 * time.Second

// Server handles configuration, startup, and graceful shutdown of an HTTP server.
type Server struct {
	srv    http.Server
	logger *slog.Logger
}

// New accepts the dependencies required to create a [Server], and returns one.
func New(host, port string, h http.Handler, logger *slog.Logger) *Server {
	return &Server{
		srv: http.Server{
			Addr:              net.JoinHostPort(host, port),
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.WithGroup("server"),
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down within ten seconds. It returns the listener's error if the server could not start, or the shutdown error.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("serving", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error while shutting down server", "err", err)
		return err
	}
	return nil
}
