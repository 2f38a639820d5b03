// Package api provides the HTTP server for Comrade.
// It exposes the gamification engine as a small JSON API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comrade-fit/comrade/internal/app/gamification"
	"github.com/comrade-fit/comrade/internal/domain"
	"github.com/comrade-fit/comrade/internal/health"
	"github.com/comrade-fit/comrade/internal/infra/logging"
	"github.com/comrade-fit/comrade/internal/infra/metrics"
)

// DefaultRequestTimeout bounds a single request.
const DefaultRequestTimeout = 30 * time.Second

// Server is the Comrade HTTP API server.
type Server struct {
	svc            *gamification.Service
	health         *health.Checker // nil until SetHealth
	logger         *slog.Logger
	metricsEnabled bool
	requestTimeout time.Duration
}

// NewServer creates a new API server.
func NewServer(svc *gamification.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, logger: logger, requestTimeout: DefaultRequestTimeout}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth makes /health report the checker's latest results.
func (s *Server) SetHealth(h *health.Checker) { s.health = h }

// SetRequestTimeout overrides DefaultRequestTimeout.
func (s *Server) SetRequestTimeout(d time.Duration) {
	if d > 0 {
		s.requestTimeout = d
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/levels", s.handleLevels)
		r.Get("/levels/{xp}", s.handleLevelProgress)
		r.Get("/achievements", s.handleCatalog)
		r.Get("/challenges/templates", s.handleChallengeTemplates)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/stats", s.handleStats)
			r.Get("/progress", s.handleProgress)
			r.Get("/achievements", s.handleAchievements)
			r.Get("/achievements/almost", s.handleAlmostUnlocked)
			r.Post("/workouts", s.handleRecordWorkout)
			r.Post("/streak/freeze", s.handleStreakFreeze)
			r.Get("/challenges", s.handleChallenges)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

// instrument counts requests by route pattern and status, and logs them at
// debug level tagged with the request id.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()

		logging.WithRequestID(r.Context(), s.logger, middleware.GetReqID(r.Context())).Debug("request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errorType(status),
		},
	})
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	}
	return "server_error"
}

// writeServiceError maps engine errors onto HTTP statuses. Anything
// unrecognized is logged and reported as a 500 without details.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidWorkout), errors.Is(err, domain.ErrInvalidUser):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrFreezeUnavailable), errors.Is(err, domain.ErrNothingToFreeze):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logging.WithRequestID(r.Context(), s.logger, middleware.GetReqID(r.Context())).Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
