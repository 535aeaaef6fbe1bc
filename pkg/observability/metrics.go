package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Session resolution metrics
	SessionResolutionsTotal   *prometheus.CounterVec
	SessionResolveDuration    prometheus.Histogram
	EnrichmentFailuresTotal   prometheus.Counter
	BreakGlassElevationsTotal prometheus.Counter

	// Authorization metrics
	AuthzChecksTotal     *prometheus.CounterVec
	AuthzFailClosedTotal prometheus.Counter
	AuthzCheckDuration   *prometheus.HistogramVec

	// Ownership cache metrics
	OwnerCacheHitsTotal      prometheus.Counter
	OwnerCacheMissesTotal    prometheus.Counter
	OwnerCacheRefreshesTotal *prometheus.CounterVec
	OwnerCacheSize           prometheus.Gauge

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Rate limit metrics
	RateLimitedRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authgate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authgate_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		SessionResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_session_resolutions_total",
				Help: "Total number of session resolutions",
			},
			[]string{"status"},
		),
		SessionResolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "authgate_session_resolve_duration_seconds",
				Help:    "Session resolution duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		EnrichmentFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authgate_enrichment_failures_total",
				Help: "Total number of membership enrichment failures",
			},
		),
		BreakGlassElevationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authgate_break_glass_elevations_total",
				Help: "Total number of break-glass elevations granted",
			},
		),

		AuthzChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_authz_checks_total",
				Help: "Total number of authorization checks",
			},
			[]string{"kind", "allowed"},
		),
		AuthzFailClosedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authgate_authz_fail_closed_total",
				Help: "Total number of checks denied due to decision service errors",
			},
		),
		AuthzCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authgate_authz_check_duration_seconds",
				Help:    "Authorization check duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"kind"},
		),

		OwnerCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authgate_owner_cache_hits_total",
				Help: "Total number of ownership cache hits",
			},
		),
		OwnerCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authgate_owner_cache_misses_total",
				Help: "Total number of ownership cache misses",
			},
		),
		OwnerCacheRefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_owner_cache_refreshes_total",
				Help: "Total number of ownership cache refreshes",
			},
			[]string{"status"},
		),
		OwnerCacheSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "authgate_owner_cache_size",
				Help: "Number of owners in the ownership cache",
			},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "authgate_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "authgate_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		RateLimitedRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_rate_limited_requests_total",
				Help: "Total number of rate limited requests",
			},
			[]string{"scope"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.SessionResolutionsTotal,
		m.SessionResolveDuration,
		m.EnrichmentFailuresTotal,
		m.BreakGlassElevationsTotal,
		m.AuthzChecksTotal,
		m.AuthzFailClosedTotal,
		m.AuthzCheckDuration,
		m.OwnerCacheHitsTotal,
		m.OwnerCacheMissesTotal,
		m.OwnerCacheRefreshesTotal,
		m.OwnerCacheSize,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.RateLimitedRequestsTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
