// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "echopost"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Upload metrics
	UploadsTotal *prometheus.CounterVec
	UploadBytes  prometheus.Counter

	// Transcription metrics
	TranscriptionsTotal   *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram

	// Generation metrics
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
}

// Default is the global metrics instance.
var Default = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"method", "path"}),

		UploadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total number of upload attempts",
		}, []string{"outcome"}),
		UploadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total audio bytes accepted",
		}),

		TranscriptionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Total number of transcription stage runs",
		}, []string{"outcome"}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "Speech-to-text capability latency in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),

		GenerationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of per-platform generation calls",
		}, []string{"platform", "outcome"}),
		GenerationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Text-generation capability latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"platform"}),
	}
}

// RecordUpload records an upload attempt.
func (m *Metrics) RecordUpload(ok bool, bytes int64) {
	m.UploadsTotal.WithLabelValues(outcome(ok)).Inc()
	if ok {
		m.UploadBytes.Add(float64(bytes))
	}
}

// RecordTranscription records a transcription stage run.
func (m *Metrics) RecordTranscription(ok bool, durationSeconds float64) {
	m.TranscriptionsTotal.WithLabelValues(outcome(ok)).Inc()
	if ok {
		m.TranscriptionDuration.Observe(durationSeconds)
	}
}

// RecordGeneration records one per-platform generation call.
func (m *Metrics) RecordGeneration(platform string, ok bool, durationSeconds float64) {
	m.GenerationsTotal.WithLabelValues(platform, outcome(ok)).Inc()
	if ok {
		m.GenerationDuration.WithLabelValues(platform).Observe(durationSeconds)
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
