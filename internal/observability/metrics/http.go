package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	retrievalRequestsTotal *prometheus.CounterVec
	retrievalHitTotal      *prometheus.CounterVec
	retrievalNoHitTotal    *prometheus.CounterVec
	retrievedChunks        *prometheus.HistogramVec
	retrievalDuration      *prometheus.HistogramVec
	answerConfidence       prometheus.Histogram
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retrievalRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docqa",
			Subsystem:   "retrieval",
			Name:        "requests_total",
			Help:        "Total successful retrieval requests.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"endpoint"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docqa",
			Subsystem:   "retrieval",
			Name:        "hit_total",
			Help:        "Total retrieval requests with at least one matching chunk.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"endpoint"},
	)
	retrievalNoHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docqa",
			Subsystem:   "retrieval",
			Name:        "no_hit_total",
			Help:        "Total retrieval requests without matching chunks.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"endpoint"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "docqa",
			Subsystem:   "retrieval",
			Name:        "retrieved_chunks",
			Help:        "Distribution of retrieved chunks per successful request.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13, 21},
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"endpoint"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "docqa",
			Subsystem:   "retrieval",
			Name:        "duration_seconds",
			Help:        "Retrieval and answering duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"endpoint"},
	)
	answerConfidence := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "docqa",
			Subsystem:   "retrieval",
			Name:        "answer_confidence",
			Help:        "Distribution of answer confidence scores.",
			Buckets:     []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			ConstLabels: prometheus.Labels{"service": service},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retrievalRequestsTotal,
		retrievalHitTotal,
		retrievalNoHitTotal,
		retrievedChunks,
		retrievalDuration,
		answerConfidence,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		retrievalRequestsTotal: retrievalRequestsTotal,
		retrievalHitTotal:      retrievalHitTotal,
		retrievalNoHitTotal:    retrievalNoHitTotal,
		retrievedChunks:        retrievedChunks,
		retrievalDuration:      retrievalDuration,
		answerConfidence:       answerConfidence,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &metricsStatusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// RecordRetrieval counts a successful ask or search and its outcome shape.
func (m *HTTPServerMetrics) RecordRetrieval(endpoint string, chunkCount int, duration time.Duration) {
	m.retrievalRequestsTotal.WithLabelValues(endpoint).Inc()
	m.retrievedChunks.WithLabelValues(endpoint).Observe(float64(chunkCount))
	m.retrievalDuration.WithLabelValues(endpoint).Observe(duration.Seconds())

	if chunkCount > 0 {
		m.retrievalHitTotal.WithLabelValues(endpoint).Inc()
		return
	}
	m.retrievalNoHitTotal.WithLabelValues(endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordAnswerConfidence(confidence float64) {
	m.answerConfidence.Observe(confidence)
}

type metricsStatusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *metricsStatusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
