package prometheus

import (
	"strconv"
	"time"
)

// MapperMetrics holds the application metrics.
type MapperMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Basis cache
	CacheLookupsTotal   CounterVec
	CacheEntries        GaugeVec
	BasisEvalDuration   HistogramVec
	BlobStoreOpsTotal   CounterVec
	BlobStoreOpDuration HistogramVec

	// Rendering
	RendersTotal      CounterVec
	RenderDuration    HistogramVec
	InterpolationGaps HistogramVec

	ErrorsTotal CounterVec
}

// Cache lookup outcomes.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheCorrupt = "corrupt"
	CacheShared  = "shared"
)

var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultBasisDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120, 300}
	DefaultStoreDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultGapBuckets           = []float64{0, 1, 10, 100, 1000, 10000}
)

// NewMapperMetrics registers all metrics on collector.
func NewMapperMetrics(collector MetricsCollector) *MapperMetrics {
	m := &MapperMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.CacheLookupsTotal = collector.RegisterCounter("basis_cache_lookups_total", "Basis cache lookups by outcome", "result")
	m.CacheEntries = collector.RegisterGauge("basis_cache_entries", "Basis sets held in memory", "backend")
	m.BasisEvalDuration = collector.RegisterHistogram("basis_evaluation_duration_seconds", "Basis evaluation duration", DefaultBasisDurationBuckets, "dpi", "max_l")
	m.BlobStoreOpsTotal = collector.RegisterCounter("blob_store_operations_total", "Blob store operations", "backend", "operation", "status")
	m.BlobStoreOpDuration = collector.RegisterHistogram("blob_store_operation_duration_seconds", "Blob store operation duration", DefaultStoreDurationBuckets, "backend", "operation")

	m.RendersTotal = collector.RegisterCounter("renders_total", "Map renders", "rotated", "status")
	m.RenderDuration = collector.RegisterHistogram("render_duration_seconds", "Map render duration", DefaultBasisDurationBuckets, "rotated")
	m.InterpolationGaps = collector.RegisterHistogram("interpolation_gap_cells", "Cells left missing after resampling", DefaultGapBuckets)

	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// NewNoopMetrics returns metrics that record nothing.
func NewNoopMetrics() *MapperMetrics {
	return NewMapperMetrics(NoopCollector{})
}

// Helpers

func RecordHTTPRequest(metrics *MapperMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordCacheLookup(metrics *MapperMetrics, result string) {
	metrics.CacheLookupsTotal.WithLabelValues(result).Inc()
}

func RecordBasisEvaluation(metrics *MapperMetrics, dpi, maxL int, duration time.Duration) {
	metrics.BasisEvalDuration.WithLabelValues(strconv.Itoa(dpi), strconv.Itoa(maxL)).Observe(duration.Seconds())
}

func RecordBlobOp(metrics *MapperMetrics, backend, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.BlobStoreOpsTotal.WithLabelValues(backend, operation, status).Inc()
	metrics.BlobStoreOpDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

func RecordRender(metrics *MapperMetrics, rotated bool, duration time.Duration, gaps int, err error) {
	r := strconv.FormatBool(rotated)
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.RendersTotal.WithLabelValues(r, status).Inc()
	if err == nil {
		metrics.RenderDuration.WithLabelValues(r).Observe(duration.Seconds())
		metrics.InterpolationGaps.WithLabelValues().Observe(float64(gaps))
	}
}

func RecordError(metrics *MapperMetrics, component, code string) {
	metrics.ErrorsTotal.WithLabelValues(component, code).Inc()
}
