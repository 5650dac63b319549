// Package server wires the bypass routes and the WebSocket endpoint into a
// single handler for the relay service.
package server

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/signal-relay/internal/metrics"
	"github.com/Tyrowin/signal-relay/internal/relay"
)

// SetupRoutes returns the handler served on every path: the health and
// metrics routes answer directly, anything else is upgraded and handed to r.
// m may be nil, in which case no metrics route is installed.
func SetupRoutes(cfg *Config, r *relay.Relay, m *metrics.Metrics, logger logrus.FieldLogger) http.Handler {
	var metricsHandler http.Handler
	if m != nil {
		metricsHandler = m.Handler()
	}
	bypass := NewBypass(cfg, metricsHandler)
	return NewWebSocketHandler(cfg, bypass, r.OnConnect, logger)
}
