package metrics

import coremetrics "github.com/acasal/alertd/core/metrics"

// MultiSink fanouts dispatch records to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDispatch forwards the records to all sinks, returning the first error encountered.
func (m *MultiSink) RecordDispatch(recs []coremetrics.DispatchRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordDispatch(recs); err != nil {
			return err
		}
	}
	return nil
}

// RecordResolution forwards resolutions when supported by the sink.
func (m *MultiSink) RecordResolution(rec coremetrics.ResolutionRecord) error {
	for _, s := range m.Sinks {
		if rr, ok := s.(coremetrics.ResolutionRecorder); ok {
			if err := rr.RecordResolution(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
