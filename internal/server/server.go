// Package server implements the process-level plumbing around the relay: the
// listener, upgrade and bypass handling, configuration and logging.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/signal-relay/internal/metrics"
	"github.com/Tyrowin/signal-relay/internal/relay"
)

// Server ties a Relay to an HTTP listener.
type Server struct {
	cfg     *Config
	logger  logrus.FieldLogger
	relay   *relay.Relay
	metrics *metrics.Metrics
	http    *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New builds a Server from cfg. Nothing listens until ListenAndServe or
// Serve is called.
func New(cfg *Config, logger logrus.FieldLogger) *Server {
	m := metrics.New()
	r := relay.New(relay.NewRegistry(),
		relay.WithLogger(logger),
		relay.WithRecorder(m),
	)

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		relay:   r,
		metrics: m,
	}
	s.http = CreateServer(cfg.Addr(), SetupRoutes(cfg, r, m, logger))
	return s
}

// Relay returns the relay serving this server's connections.
func (s *Server) Relay() *relay.Relay {
	return s.relay
}

// Handler returns the root HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe binds cfg.Addr() and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return errors.Wrapf(err, "listening on %s", s.cfg.Addr())
	}
	return s.Serve(listener)
}

// Serve serves on listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"health-path":  s.cfg.HealthPath,
		"metrics-path": s.cfg.MetricsPath,
	}).Info("Starting signaling relay")
	return StartServer(s.http, listener, s.logger)
}

// Addr returns the bound listener address, or "" before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the listener, then closes every relay connection and waits
// for their loops to finish, all within ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := ShutdownServer(ctx, s.http, s.logger)
	relayErr := s.relay.Shutdown(ctx)

	if httpErr != nil {
		return httpErr
	}
	return relayErr
}
