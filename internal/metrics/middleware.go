package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTP metrics. Labels use the chi route pattern so document ids never become label values.
var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			// chat and upload requests wait on the embedder, so the tail reaches tens of seconds
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Requests currently being served",
		},
	)

	httpRequestBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_body_bytes",
			Help:      "Declared request body size; dominated by multipart uploads",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
		},
		[]string{"route"},
	)
)

var registerHTTPOnce sync.Once

// RegisterHTTPMetrics registers the request metrics. Safe to call more than once.
func RegisterHTTPMetrics() {
	registerHTTPOnce.Do(func() {
		prometheus.MustRegister(httpRequestDuration, httpRequestsTotal, httpInFlight, httpRequestBytes)
	})
}

// Middleware records latency, status and body size per chi route.
func Middleware() func(next http.Handler) http.Handler {
	RegisterHTTPMetrics()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := routeLabel(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			code := strconv.Itoa(status)

			httpRequestDuration.WithLabelValues(r.Method, route, code).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(r.Method, route, code).Inc()
			if r.ContentLength > 0 {
				httpRequestBytes.WithLabelValues(route).Observe(float64(r.ContentLength))
			}
		})
	}
}

// routeLabel is the matched chi pattern, or "unmatched" for 404s and requests outside a router.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}
