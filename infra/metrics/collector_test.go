package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acasal/alertd/core/events"
	coremetrics "github.com/acasal/alertd/core/metrics"
	"github.com/acasal/alertd/internal/eventbus"
)

type recordingSink struct {
	resolutions chan coremetrics.ResolutionRecord
}

func (s *recordingSink) RecordDispatch([]coremetrics.DispatchRecord) error { return nil }

func (s *recordingSink) RecordResolution(rec coremetrics.ResolutionRecord) error {
	s.resolutions <- rec
	return nil
}

// dispatchOnlySink implements Sink but not ResolutionRecorder.
type dispatchOnlySink struct{}

func (dispatchOnlySink) RecordDispatch([]coremetrics.DispatchRecord) error { return nil }

func TestEventCollectorForwardsResolutions(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	sink := &recordingSink{resolutions: make(chan coremetrics.ResolutionRecord, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink)

	bus.Publish(events.AlertResolved{AlertID: 7, Released: true})
	select {
	case rec := <-sink.resolutions:
		assert.Equal(t, int64(7), rec.AlertID)
		assert.True(t, rec.Released)
	case <-time.After(time.Second):
		t.Fatal("no resolution record forwarded")
	}

	bus.Publish(events.AlertResolved{AlertID: 8, Released: false})
	select {
	case rec := <-sink.resolutions:
		assert.Equal(t, int64(8), rec.AlertID)
		assert.False(t, rec.Released)
	case <-time.After(time.Second):
		t.Fatal("no resolution record forwarded")
	}
}

func TestEventCollectorIgnoresNonRecorderSink(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, dispatchOnlySink{})

	require.NotPanics(t, func() {
		bus.Publish(events.AlertResolved{AlertID: 1, Released: true})
	})
}

func TestEventCollectorNilArgs(t *testing.T) {
	require.NotPanics(t, func() {
		StartEventCollector(context.Background(), nil, nil)
	})
}
