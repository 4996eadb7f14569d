package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	processLatency    *prometheus.HistogramVec
	alertsProcessed   *prometheus.CounterVec
	decodeFailures    prometheus.Counter
	resourceConflicts prometheus.Counter
	resolutions       *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter, *prometheus.CounterVec) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alert_process_latency_seconds",
			Help:    "Latency of alert processing from decode to outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category"},
	)
	proc := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_processed_total",
			Help: "Number of alert messages processed, by outcome",
		},
		[]string{"category", "outcome"},
	)
	dec := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_decode_failures_total",
			Help: "Number of telemetry frames permanently rejected",
		},
	)
	conf := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resource_claim_conflicts_total",
			Help: "Number of assignment attempts lost to a concurrent claim",
		},
	)
	res := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_resolutions_total",
			Help: "Number of resolve calls, by result",
		},
		[]string{"result"},
	)
	return lat, proc, dec, conf, res
}

func init() {
	processLatency, alertsProcessed, decodeFailures, resourceConflicts, resolutions = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers engine metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(processLatency, alertsProcessed, decodeFailures, resourceConflicts, resolutions)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	processLatency, alertsProcessed, decodeFailures, resourceConflicts, resolutions = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
