// Package metrics declares the Prometheus instruments for the engine and
// the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label value constants to prevent typos
const (
	// Engine operations
	OpTrend      = "trend"
	OpTDEE       = "tdee"
	OpAdjustment = "adjustment"
	OpSpikes     = "spikes"
	OpPrediction = "prediction"
	OpHistory    = "history"
	OpCheckIn    = "check_in"
	OpCompare    = "compare"

	// Operation results
	ResultSuccess       = "success"
	ResultLowConfidence = "low_confidence"
	ResultInsufficient  = "insufficient_data"
	ResultDiverging     = "diverging"
	ResultInvalid       = "invalid"
	ResultNotFound      = "not_found"
	ResultFailure       = "failure"

	// HTTP endpoints
	EndpointTrend      = "trend"
	EndpointTDEE       = "tdee"
	EndpointAdjustment = "adjustment"
	EndpointSpikes     = "spikes"
	EndpointPrediction = "prediction"
	EndpointSnapshots  = "snapshots"
	EndpointCompare    = "compare"
	EndpointCheckIn    = "check_in"
	EndpointWeights    = "weights"
	EndpointIntakes    = "intakes"
	EndpointHealth     = "health"
)

// Engine metrics
var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metabolic_operations_total",
			Help: "Total number of engine operations by result",
		},
		[]string{"operation", "result"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metabolic_operation_duration_seconds",
			Help:    "Engine operation latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	SpikesDetectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metabolic_spikes_detected_total",
			Help: "Total number of water-weight spikes reported",
		},
	)

	LedgerWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metabolic_ledger_writes_total",
			Help: "Total number of snapshot writes by result",
		},
		[]string{"result"},
	)

	CalorieAdjustment = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "metabolic_calorie_adjustment_kcal",
			Help:    "Recommended weekly calorie change",
			Buckets: []float64{-150, -100, -1, 0, 1, 100, 150},
		},
	)
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"endpoint", "status_code"},
	)
)

// RecordOperation counts one engine operation and observes its latency.
func RecordOperation(op, result string, start time.Time) {
	OperationsTotal.WithLabelValues(op, result).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
