package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brk3/habitstreak/internal/ledger"
	"github.com/brk3/habitstreak/internal/logger"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_http_requests_total",
			Help: "Total number of HTTP requests by endpoint, method, and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "habits_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	userRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_user_requests_total",
			Help: "Total number of authenticated requests per user",
		},
		[]string{"user_id", "endpoint", "method"},
	)

	authEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_auth_events_total",
			Help: "Total authentication events by type and result",
		},
		[]string{"event_type", "result", "provider"},
	)

	completionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_completion_events_total",
			Help: "Ledger operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	activeHabitsPerUser = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "habits_active_habits_per_user",
			Help: "Number of active habits per user",
		},
		[]string{"user_id"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routePattern labels by chi route pattern so habit ids do not explode the
// label space. Unmatched requests fall back to "unmatched".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(wrapped.statusCode)
		endpoint := routePattern(r)

		httpRequestsTotal.WithLabelValues(endpoint, r.Method, statusCode).Inc()
		httpRequestDuration.WithLabelValues(endpoint, r.Method, statusCode).Observe(duration)
	})
}

func (s *Server) userAwareMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		// Only collect user metrics for authenticated requests
		if s.cfg.AuthEnabled {
			if user, ok := userFromContext(r.Context()); ok {
				userRequestsTotal.WithLabelValues(user.UserID, routePattern(r), r.Method).Inc()
			}
		}
	})
}

func RecordAuthEvent(eventType, result, provider string) {
	authEventsTotal.WithLabelValues(eventType, result, provider).Inc()
	logger.Debug("Recorded auth event", "type", eventType, "result", result, "provider", provider)
}

func RecordCompletionEvent(operation string, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrAlreadyCompleted):
		result = "conflict"
	case errors.Is(err, ledger.ErrNotCompleted):
		result = "not_found"
	default:
		result = "error"
	}
	completionEventsTotal.WithLabelValues(operation, result).Inc()
}

func UpdateActiveHabitsForUser(userID string, count int) {
	activeHabitsPerUser.WithLabelValues(userID).Set(float64(count))
}
