package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Bypass is consulted for every request before the WebSocket upgrade. A
// non-nil handler answers the request and the relay is never involved.
type Bypass func(r *http.Request) http.Handler

// NewBypass builds the bypass hook from a router holding the plain-HTTP
// routes: the liveness probe on cfg.HealthPath and, when both a path and a
// handler are given, the metrics endpoint.
func NewBypass(cfg *Config, metricsHandler http.Handler) Bypass {
	router := mux.NewRouter()

	if path := normalizePath(cfg.HealthPath); path != "" {
		router.Handle(path, http.HandlerFunc(HealthHandler)).
			Methods(http.MethodGet, http.MethodHead)
	}
	if path := normalizePath(cfg.MetricsPath); path != "" && metricsHandler != nil {
		router.Handle(path, metricsHandler).Methods(http.MethodGet)
	}

	return func(r *http.Request) http.Handler {
		var match mux.RouteMatch
		if router.Match(r, &match) && match.Handler != nil {
			return match.Handler
		}
		return nil
	}
}
