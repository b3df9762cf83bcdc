package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/brk3/habitboard/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
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
			Help: "Total number of requests per resolved user",
		},
		[]string{"user_id", "method"},
	)

	authEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_auth_events_total",
			Help: "Total authentication events by type and result",
		},
		[]string{"event_type", "result", "provider"},
	)

	completionsLoggedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_completions_logged_total",
			Help: "Completion log requests, split by whether a new ledger entry was written",
		},
		[]string{"result"},
	)

	habitsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "habits_created_total",
			Help: "Total number of habits created",
		},
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

// metricsMiddleware labels requests by chi route pattern rather than raw
// path, so habit ids do not explode label cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(endpoint, r.Method, statusCode).Inc()
		httpRequestDuration.WithLabelValues(endpoint, r.Method, statusCode).Observe(duration)
	})
}

func userAwareMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		if userID, ok := metricsUserID(r); ok {
			userRequestsTotal.WithLabelValues(userID, r.Method).Inc()
		}
	})
}

func RecordAuthEvent(eventType, result, provider string) {
	authEventsTotal.WithLabelValues(eventType, result, provider).Inc()
	logger.Debug("Recorded auth event", "type", eventType, "result", result, "provider", provider)
}

func RecordCompletion(created bool) {
	result := "existing"
	if created {
		result = "created"
	}
	completionsLoggedTotal.WithLabelValues(result).Inc()
}

// metricsUserID returns the caller's id for use as a metric label. Ids the
// client names itself (header, query) or the shared default are never
// labelled, so series only exist for verified users.
func metricsUserID(r *http.Request) (string, bool) {
	user, ok := r.Context().Value(userCtxKey{}).(*User)
	if !ok {
		return "", false
	}
	switch user.Method {
	case methodSession, methodAPIKey, methodOIDC:
		return user.UserID, true
	}
	return "", false
}

func UpdateActiveHabitsForUser(r *http.Request, count int) {
	if userID, ok := metricsUserID(r); ok {
		activeHabitsPerUser.WithLabelValues(userID).Set(float64(count))
	}
}
