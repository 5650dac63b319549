// Package server exposes HTTP handlers, including the WebSocket upgrade that
// hands connections to the relay and the health check used by liveness probes.
package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/signal-relay/internal/relay"
)

// ConnectFunc takes ownership of an upgraded connection. It is called on the
// request goroutine and blocks for the lifetime of the connection.
type ConnectFunc func(conn relay.Conn)

// WebSocketHandler answers bypassed requests directly and upgrades every
// other GET request, passing the resulting connection to onConnect.
type WebSocketHandler struct {
	cfg       *Config
	bypass    Bypass
	onConnect ConnectFunc
	upgrader  websocket.Upgrader
	logger    logrus.FieldLogger
}

// NewWebSocketHandler creates the listener-side handler. bypass may be nil.
func NewWebSocketHandler(cfg *Config, bypass Bypass, onConnect ConnectFunc, logger logrus.FieldLogger) *WebSocketHandler {
	origins := newOriginPolicy(cfg.AllowedOrigins, logger)
	return &WebSocketHandler{
		cfg:       cfg,
		bypass:    bypass,
		onConnect: onConnect,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		logger: logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.bypass != nil {
		if handler := h.bypass(r); handler != nil {
			handler.ServeHTTP(w, r)
			return
		}
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an HTTP error response.
		h.logger.WithField("remote-addr", r.RemoteAddr).WithError(err).Info("WebSocket upgrade failed")
		return
	}

	h.onConnect(newWSConn(conn, r.RemoteAddr, h.cfg, h.logger))
}

// HealthHandler provides a simple health check endpoint for liveness probes.
// It responds with a plain text "OK".
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}
