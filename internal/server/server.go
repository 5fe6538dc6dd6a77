// Package server implements the HTTP server, middleware, and request handlers for the application.
package server

import (
	"net/http"

	"github.com/woozymasta/bluescore/internal/config"
	"github.com/woozymasta/bluescore/internal/metrics"
)

// New creates a new Server instance with the provided components and configuration.
func New(deps Deps, cfg *config.Config) *Server {
	return &Server{
		deps:           deps,
		authToken:      cfg.Server.AuthToken,
		maxBody:        cfg.Server.MaxBodySize,
		trustProxy:     cfg.Server.TrustProxy,
		hardLimitCount: cfg.RateLimit.HardLimitCount,
		hardLimitWin:   cfg.RateLimit.HardLimitWin,

		done: make(chan struct{}),
	}
}

// Close stops background routines started by the handler.
func (s *Server) Close() {
	close(s.done)
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/scores", s.RateLimitMiddleware(http.HandlerFunc(s.handleScores)))
	mux.Handle("GET /api/cycles/last", s.RateLimitMiddleware(http.HandlerFunc(s.handleLastCycle)))

	mux.Handle("POST /api/checks/run", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleRunChecks)))
	mux.Handle("POST /api/teams/{id}/points/add", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleAddPoints)))
	mux.Handle("POST /api/teams/{id}/points/subtract", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleSubtractPoints)))
	mux.Handle("POST /api/teams/{id}/reset", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleReset)))

	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /healthz", http.HandlerFunc(s.handleHealth))
	mux.Handle("GET /api/version", http.HandlerFunc(s.handleVersion))

	return s.LoggingMiddleware(mux)
}
