package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	uploadsTotal     *prometheus.CounterVec
	uploadBytesTotal prometheus.Counter
	uploadDuration   prometheus.Histogram
	uploadSpeed      prometheus.Histogram

	proxyRequestsTotal *prometheus.CounterVec
	publishFailures    prometheus.Counter
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docportal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docportal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "docportal",
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: constLabels,
		},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docportal",
			Subsystem: "upload",
			Name:      "total",
			Help:      "Uploads by outcome.",
		},
		[]string{"service", "outcome"},
	)
	uploadBytesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "docportal",
			Subsystem:   "upload",
			Name:        "bytes_total",
			Help:        "Bytes written to the object store.",
			ConstLabels: constLabels,
		},
	)
	uploadDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "docportal",
			Subsystem:   "upload",
			Name:        "duration_seconds",
			Help:        "Object store write duration in seconds.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			ConstLabels: constLabels,
		},
	)
	uploadSpeed := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "docportal",
			Subsystem:   "upload",
			Name:        "throughput_mb_per_second",
			Help:        "Observed upload throughput in MB/s.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
			ConstLabels: constLabels,
		},
	)
	proxyRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docportal",
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Proxied backend requests by method and outcome.",
		},
		[]string{"service", "method", "outcome"},
	)
	publishFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "docportal",
			Subsystem:   "events",
			Name:        "publish_failures_total",
			Help:        "Upload events that could not be published.",
			ConstLabels: constLabels,
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsTotal,
		uploadBytesTotal,
		uploadDuration,
		uploadSpeed,
		proxyRequestsTotal,
		publishFailures,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		service:            service,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		uploadsTotal:       uploadsTotal,
		uploadBytesTotal:   uploadBytesTotal,
		uploadDuration:     uploadDuration,
		uploadSpeed:        uploadSpeed,
		proxyRequestsTotal: proxyRequestsTotal,
		publishFailures:    publishFailures,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath folds per-document paths into one label value each.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/proxy/"):
		return "/api/proxy/{path}"
	case strings.HasPrefix(path, "/documents/") && strings.HasSuffix(path, "/regenerate-summary"):
		return "/documents/{id}/regenerate-summary"
	case strings.HasPrefix(path, "/documents/"):
		return "/documents/{id}"
	case strings.HasPrefix(path, "/blobs/"):
		return "/blobs/{name}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordUpload(sizeBytes int64, elapsedSeconds, speedMBps float64) {
	m.uploadsTotal.WithLabelValues(m.service, "success").Inc()
	if sizeBytes > 0 {
		m.uploadBytesTotal.Add(float64(sizeBytes))
	}
	m.uploadDuration.Observe(elapsedSeconds)
	if speedMBps > 0 {
		m.uploadSpeed.Observe(speedMBps)
	}
}

func (m *HTTPServerMetrics) RecordUploadFailure(outcome string) {
	if outcome == "" {
		outcome = "error"
	}
	m.uploadsTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordProxy(method, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.proxyRequestsTotal.WithLabelValues(m.service, method, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordPublishFailure() {
	m.publishFailures.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
