package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worldcommits_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	ingestedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worldcommits_ingested_events_total",
			Help: "Total ingested telemetry events by dedup outcome",
		},
		[]string{"deduplicated"},
	)
	rewriteOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worldcommits_rewrite_outcomes_total",
			Help: "Rewrite pipeline outcomes by provider or skip reason",
		},
		[]string{"rewritten", "label"},
	)
)

// PrometheusMiddleware records request duration.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(ww.Status())
		path := r.URL.Path
		if path == "" {
			path = "/"
		}
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// RecordIngest counts one ingested event.
func RecordIngest(deduplicated bool) {
	ingestedEvents.WithLabelValues(strconv.FormatBool(deduplicated)).Inc()
}

// RecordRewrite counts one rewrite outcome. label is the provider when
// rewritten, the skip reason otherwise.
func RecordRewrite(rewritten bool, label string) {
	rewriteOutcomes.WithLabelValues(strconv.FormatBool(rewritten), label).Inc()
}
