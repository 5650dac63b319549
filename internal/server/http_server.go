// Package server constructs and starts the relay's HTTP listener with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CreateServer creates an HTTP server for addr and handler. Only the header
// read and idle phases are bounded: upgraded connections live for as long as
// the peer stays connected.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartServer serves on listener until the server is shut down. It returns
// nil after a clean shutdown.
func StartServer(server *http.Server, listener net.Listener, logger logrus.FieldLogger) error {
	logger.WithField("server-addr", listener.Addr().String()).Info("Server listening")
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serving http")
	}
	return nil
}

// ShutdownServer stops accepting new connections and waits for in-flight
// plain HTTP requests. Hijacked WebSocket connections are not tracked by
// net/http and must be closed separately.
func ShutdownServer(ctx context.Context, server *http.Server, logger logrus.FieldLogger) error {
	logger.Info("Shutting down HTTP server...")

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown error")
		return errors.Wrap(err, "shutting down http server")
	}

	logger.Info("HTTP server shutdown completed")
	return nil
}
