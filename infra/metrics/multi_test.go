package metrics

import (
	"testing"

	coremetrics "github.com/acasal/alertd/core/metrics"
)

type recordSink struct {
	count int
}

func (r *recordSink) RecordDispatch([]coremetrics.DispatchRecord) error {
	r.count++
	return nil
}

func (r *recordSink) RecordResolution(coremetrics.ResolutionRecord) error {
	r.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordDispatch(nil); err != nil {
		t.Fatalf("record dispatch: %v", err)
	}
	if err := m.RecordResolution(coremetrics.ResolutionRecord{}); err != nil {
		t.Fatalf("record resolution: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("records not forwarded")
	}
}

func TestMultiSinkSkipsNonResolutionSinks(t *testing.T) {
	m := NewMultiSink(coremetrics.NopSink{})
	if err := m.RecordResolution(coremetrics.ResolutionRecord{AlertID: 7}); err != nil {
		t.Fatalf("record resolution: %v", err)
	}
}
