// Package metrics defines the sink interfaces used to record processed
// alerts for observability backends. Concrete sinks (Prometheus, InfluxDB)
// live under infra/metrics.
package metrics

import (
	"time"

	"github.com/acasal/alertd/core/model"
)

// DispatchRecord is one processed alert as seen by observability sinks.
type DispatchRecord struct {
	AlertID    int64
	SourceID   string
	Category   model.Category
	Outcome    string
	Resource   string
	DistanceM  float64
	ETASeconds int
	Latency    time.Duration
	Time       time.Time
}

// ResolutionRecord captures a resolve call.
type ResolutionRecord struct {
	AlertID  int64
	Released bool
	Time     time.Time
}

// Sink records processed alerts for observability purposes.
type Sink interface {
	RecordDispatch(recs []DispatchRecord) error
}

// ResolutionRecorder is implemented by sinks able to record resolutions.
type ResolutionRecorder interface {
	RecordResolution(rec ResolutionRecord) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordDispatch([]DispatchRecord) error   { return nil }
func (NopSink) RecordResolution(ResolutionRecord) error { return nil }

// Ensure NopSink implements ResolutionRecorder.
var _ ResolutionRecorder = NopSink{}
