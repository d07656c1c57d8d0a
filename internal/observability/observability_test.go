package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMetricsManager_RecordQuery(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{Enabled: true})

	mm.RecordQuery("products", "success", 3*time.Millisecond, 7)
	mm.RecordQuery("products", "success", time.Millisecond, 2)
	mm.RecordQuery("products", "invalid", time.Millisecond, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(mm.queryTotal.WithLabelValues("products", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.queryTotal.WithLabelValues("products", "invalid")))
	assert.Equal(t, 1, testutil.CollectAndCount(mm.queryMatches))
}

func TestMetricsManager_Disabled(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{Enabled: false})

	assert.NotPanics(t, func() {
		mm.RecordQuery("products", "success", time.Millisecond, 1)
		mm.RecordCacheHit("snapshot")
		mm.RecordDocumentOperation("create", "products", "success", time.Millisecond)
		mm.SetCacheEntries("results", 3)
	})
	assert.Nil(t, mm.Registry())
	assert.False(t, mm.IsEnabled())
}

func TestMetricsManager_Middleware(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{Enabled: true})

	r := chi.NewRouter()
	r.Use(mm.MetricsMiddleware())
	r.Get("/api/v1/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(
		mm.httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/products/{id}", "404"),
	))

	rec := httptest.NewRecorder()
	mm.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "farmstore_http_requests_total")
}

func TestLogger_Middleware(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerFrom(zerolog.New(&buf))

	handler := logger.LoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?page=0", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "/api/v1/products", line["path"])
	assert.Equal(t, "page=0", line["query"])
	assert.Equal(t, float64(400), line["status_code"])
	assert.Equal(t, float64(3), line["response_size"])
}

func TestLogger_Scopes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerFrom(zerolog.New(&buf))

	l := logger.WithDocument("products", "p-1")
	l.Info().Msg("updated")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "products", line["collection"])
	assert.Equal(t, "p-1", line["document_id"])
}

func TestTracingManager_Noop(t *testing.T) {
	tm := NewNoopTracingManager()
	assert.False(t, tm.IsEnabled())

	ctx, span := tm.StartQueryOperation(context.Background(), "products", "토마토", 1, 20)
	span.End()
	assert.Nil(t, ExtractTraceInfo(ctx))
	assert.NoError(t, tm.Shutdown(context.Background()))
}

func TestTracingManager_AnnotateQuery(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tm := &TracingManager{tracer: provider.Tracer("test"), config: TracingConfig{Enabled: true}}

	_, span := tm.StartQueryOperation(context.Background(), "orders", "", 2, 10)
	tm.AnnotateQuery(span, 0, 1, 7, false)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "catalog.query", ended[0].Name())

	attrs := make(map[string]interface{})
	for _, kv := range ended[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "orders", attrs["catalog.collection"])
	assert.Equal(t, int64(7), attrs["catalog.snapshot_version"])
	assert.Equal(t, false, attrs["catalog.cache_hit"])

	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "catalog.no_results", ended[0].Events()[0].Name)
}
