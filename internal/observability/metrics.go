package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Path      string `yaml:"path" mapstructure:"path"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	Subsystem string `yaml:"subsystem" mapstructure:"subsystem"`
}

// MetricsManager owns a private registry. Every recorder is a no-op when
// metrics are disabled, so callers never need to check.
type MetricsManager struct {
	config   MetricsConfig
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	queryTotal    *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	queryMatches  *prometheus.HistogramVec

	documentOperations        *prometheus.CounterVec
	documentOperationDuration *prometheus.HistogramVec

	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	snapshotLoads *prometheus.CounterVec
	cacheEntries  *prometheus.GaugeVec

	dbConnections       prometheus.Gauge
	dbConnectionsMax    prometheus.Gauge
	dbOperations        *prometheus.CounterVec
	dbOperationDuration *prometheus.HistogramVec

	uptimeSeconds prometheus.Gauge
	buildInfo     *prometheus.GaugeVec
}

func NewMetricsManager(config MetricsConfig) *MetricsManager {
	if !config.Enabled {
		return &MetricsManager{config: config}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	namespace := config.Namespace
	if namespace == "" {
		namespace = "farmstore"
	}
	subsystem := config.Subsystem
	if subsystem == "" {
		subsystem = "catalog"
	}

	factory := promauto.With(registry)
	mm := &MetricsManager{
		config:   config,
		registry: registry,
	}

	mm.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	mm.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	mm.httpResponseSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(256, 2, 10),
		},
		[]string{"method", "route"},
	)

	mm.queryTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queries_total",
			Help:      "Total number of catalog queries",
		},
		[]string{"collection", "status"},
	)

	mm.queryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "query_duration_seconds",
			Help:      "Catalog query duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"collection"},
	)

	mm.queryMatches = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "query_matches",
			Help:      "Number of records matched per catalog query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"collection"},
	)

	mm.documentOperations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "document_operations_total",
			Help:      "Total number of document operations",
		},
		[]string{"operation", "collection", "status"},
	)

	mm.documentOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "document_operation_duration_seconds",
			Help:      "Document operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "collection"},
	)

	mm.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache"},
	)

	mm.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache"},
	)

	mm.snapshotLoads = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "snapshot_loads_total",
			Help:      "Total number of collection snapshots loaded from the store",
		},
		[]string{"collection"},
	)

	mm.cacheEntries = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of cache entries",
		},
		[]string{"cache"},
	)

	mm.dbConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connections_active",
			Help:      "Number of active database connections",
		},
	)

	mm.dbConnectionsMax = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connections_max",
			Help:      "Maximum number of database connections",
		},
	)

	mm.dbOperations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "operations_total",
			Help:      "Total number of database operations",
		},
		[]string{"operation", "collection", "status"},
	)

	mm.dbOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "operation_duration_seconds",
			Help:      "Database operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "collection"},
	)

	mm.uptimeSeconds = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Service uptime in seconds",
		},
	)

	mm.buildInfo = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)

	return mm
}

func (mm *MetricsManager) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration, responseSize int64) {
	if !mm.config.Enabled {
		return
	}

	mm.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	mm.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	mm.httpResponseSize.WithLabelValues(method, route).Observe(float64(responseSize))
}

func (mm *MetricsManager) RecordQuery(collection, status string, duration time.Duration, matched int) {
	if !mm.config.Enabled {
		return
	}

	mm.queryTotal.WithLabelValues(collection, status).Inc()
	mm.queryDuration.WithLabelValues(collection).Observe(duration.Seconds())
	if status == "success" {
		mm.queryMatches.WithLabelValues(collection).Observe(float64(matched))
	}
}

func (mm *MetricsManager) RecordDocumentOperation(operation, collection, status string, duration time.Duration) {
	if !mm.config.Enabled {
		return
	}

	mm.documentOperations.WithLabelValues(operation, collection, status).Inc()
	mm.documentOperationDuration.WithLabelValues(operation, collection).Observe(duration.Seconds())
}

func (mm *MetricsManager) RecordCacheHit(cacheType string) {
	if !mm.config.Enabled {
		return
	}
	mm.cacheHits.WithLabelValues(cacheType).Inc()
}

func (mm *MetricsManager) RecordCacheMiss(cacheType string) {
	if !mm.config.Enabled {
		return
	}
	mm.cacheMisses.WithLabelValues(cacheType).Inc()
}

func (mm *MetricsManager) RecordSnapshotLoad(collection string) {
	if !mm.config.Enabled {
		return
	}
	mm.snapshotLoads.WithLabelValues(collection).Inc()
}

func (mm *MetricsManager) SetCacheEntries(cacheType string, n int) {
	if !mm.config.Enabled {
		return
	}
	mm.cacheEntries.WithLabelValues(cacheType).Set(float64(n))
}

func (mm *MetricsManager) SetDatabaseConnections(active, max int) {
	if !mm.config.Enabled {
		return
	}
	mm.dbConnections.Set(float64(active))
	mm.dbConnectionsMax.Set(float64(max))
}

func (mm *MetricsManager) RecordDatabaseOperation(operation, collection, status string, duration time.Duration) {
	if !mm.config.Enabled {
		return
	}

	mm.dbOperations.WithLabelValues(operation, collection, status).Inc()
	mm.dbOperationDuration.WithLabelValues(operation, collection).Observe(duration.Seconds())
}

func (mm *MetricsManager) SetUptime(startTime time.Time) {
	if !mm.config.Enabled {
		return
	}
	mm.uptimeSeconds.Set(time.Since(startTime).Seconds())
}

func (mm *MetricsManager) SetBuildInfo(version, commit, buildTime string) {
	if !mm.config.Enabled {
		return
	}
	mm.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

func (mm *MetricsManager) Handler() http.Handler {
	if !mm.config.Enabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry; nil when metrics are disabled.
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// MetricsMiddleware labels requests by their chi route pattern so ids in
// paths do not explode label cardinality.
func (mm *MetricsManager) MetricsMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mm.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			mm.RecordHTTPRequest(r.Method, route, wrapped.statusCode, time.Since(start), wrapped.size)
		})
	}
}

func (mm *MetricsManager) IsEnabled() bool {
	return mm.config.Enabled
}

func (mm *MetricsManager) StartUptimeTracker(ctx context.Context, startTime time.Time) {
	if !mm.config.Enabled {
		return
	}

	mm.SetUptime(startTime)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mm.SetUptime(startTime)
			}
		}
	}()
}
