package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "menulens",
			Subsystem: "scan_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "menulens",
			Subsystem: "scan_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Menu scan counters
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "menulens",
			Subsystem: "scan_api",
			Name:      "scans_total",
			Help:      "Total menu analysis attempts",
		},
		[]string{"status"},
	)

	// Menu scan duration
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "menulens",
			Subsystem: "scan_api",
			Name:      "scan_duration_seconds",
			Help:      "Menu analysis duration in seconds",
			Buckets:   []float64{1, 5, 10, 20, 40, 60, 90},
		},
	)

	// Dishes extracted per scan
	DishesParsedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "menulens",
			Subsystem: "scan_api",
			Name:      "dishes_parsed_total",
			Help:      "Total dishes extracted from analyzed menus",
		},
	)

	// Image generation counters
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "menulens",
			Subsystem: "scan_api",
			Name:      "generations_total",
			Help:      "Total dish image generation attempts",
		},
		[]string{"status", "trigger"},
	)

	// Image generation duration
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "menulens",
			Subsystem: "scan_api",
			Name:      "generation_duration_seconds",
			Help:      "Dish image generation duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120},
		},
	)

	// Visibility trigger activity
	VisibilityEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "menulens",
			Subsystem: "scan_api",
			Name:      "visibility_events_total",
			Help:      "Total became-visible notifications",
		},
		[]string{"result"},
	)
)

// RecordRequest records an HTTP request with its duration.
func RecordRequest(method, endpoint, status string, duration float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordScan records a menu analysis attempt.
func RecordScan(status string, duration float64) {
	ScansTotal.WithLabelValues(status).Inc()
	ScanDuration.Observe(duration)
}

// RecordGeneration records an image generation attempt.
func RecordGeneration(status, trigger string, duration float64) {
	GenerationsTotal.WithLabelValues(status, trigger).Inc()
	GenerationDuration.Observe(duration)
}
