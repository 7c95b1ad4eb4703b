package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecordsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "terradjunto_records_created_total",
		Help: "Records created per collection",
	}, []string{"collection"})
	StatusChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "terradjunto_status_changes_total",
		Help: "Workflow status changes per collection and target status",
	}, []string{"collection", "status"})
	DatasetIngestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "terradjunto_dataset_ingest_total",
		Help: "Dataset ingestion attempts by format and outcome",
	}, []string{"format", "outcome"})
	StoreFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "terradjunto_store_failures_total",
		Help: "Swallowed slot store failures by operation",
	}, []string{"op"})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "terradjunto_http_requests_total",
		Help: "HTTP requests by method and status code",
	}, []string{"method", "code"})
	HTTPDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "terradjunto_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
)

func init() {
	prometheus.MustRegister(
		RecordsCreatedTotal,
		StatusChangesTotal,
		DatasetIngestTotal,
		StoreFailuresTotal,
		HTTPRequestsTotal,
		HTTPDurationMs,
	)
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests and observes their duration.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.code)).Inc()
		HTTPDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	})
}
