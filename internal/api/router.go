package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check on the health endpoint.
const healthCheckTimeout = 2 * time.Second

// Health statuses.
const (
	healthOK       = "ok"
	healthDegraded = "degraded"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such endpoint")
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/inventory", s.handleInventory)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth runs every registered check and reports each by name.
// Any failing check turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := healthOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			status = healthDegraded
			checks[name] = err.Error()
			continue
		}
		checks[name] = healthOK
	}

	code := http.StatusOK
	if status != healthOK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}

// handleInventory returns the same snapshot as a bus inventory query.
func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	snap, err := s.inventory.QueryInventory(r.Context())
	if err != nil {
		s.logger.Error("inventory query failed", "error", err)
		writeInternalError(w, "inventory unavailable")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
