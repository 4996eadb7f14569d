package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/acasal/alertd/core/dispatch"
	coremetrics "github.com/acasal/alertd/core/metrics"
	"github.com/acasal/alertd/core/model"
)

func TestPromSinkRecordDispatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	recs := []coremetrics.DispatchRecord{
		{
			AlertID: 1, SourceID: "dev", Category: model.CategoryMedical,
			Outcome: "assigned", Resource: "Centro de Salud",
			DistanceM: 1200, ETASeconds: 192, Time: time.Now(),
		},
		{
			AlertID: 2, SourceID: "dev", Category: model.CategoryFire,
			Outcome: "pending", Time: time.Now(),
		},
	}
	if err := sink.RecordDispatch(recs); err != nil {
		t.Fatalf("record: %v", err)
	}

	ps := sink.(*PromSink)
	if got := testutil.ToFloat64(ps.dispatches.WithLabelValues("medical", "assigned")); got != 1 {
		t.Errorf("medical assigned counter: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(ps.dispatches.WithLabelValues("fire", "pending")); got != 1 {
		t.Errorf("fire pending counter: got %v, want 1", got)
	}
}

func TestPromSinkRecordResolution(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	ps := sink.(*PromSink)
	if err := ps.RecordResolution(coremetrics.ResolutionRecord{AlertID: 1, Released: true}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := ps.RecordResolution(coremetrics.ResolutionRecord{AlertID: 1, Released: false}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := testutil.ToFloat64(ps.resolutions.WithLabelValues("true")); got != 1 {
		t.Errorf("released counter: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(ps.resolutions.WithLabelValues("false")); got != 1 {
		t.Errorf("noop counter: got %v, want 1", got)
	}
}

// The engine registers its own collectors on the default registry at
// package init; the sink must not collide with their metric names.
func TestPromSinkCoexistsWithEngineCollectors(t *testing.T) {
	if _, err := NewPromSink(coremetrics.Config{}); err != nil {
		t.Fatalf("new sink on default registry: %v", err)
	}

	reg := prometheus.NewRegistry()
	dispatch.MustRegisterMetrics(reg)
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("new sink alongside engine collectors: %v", err)
	}
}

func TestPromSinkRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("second: %v", err)
	}
}
