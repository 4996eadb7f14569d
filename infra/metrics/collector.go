package metrics

import (
	"context"
	"time"

	"github.com/acasal/alertd/core/events"
	coremetrics "github.com/acasal/alertd/core/metrics"
	"github.com/acasal/alertd/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// lifecycle events the engine does not record inline. It stops when the
// context is canceled or the bus closes.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.Sink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.AlertResolved:
					if r, ok := sink.(coremetrics.ResolutionRecorder); ok {
						_ = r.RecordResolution(coremetrics.ResolutionRecord{
							AlertID:  e.AlertID,
							Released: e.Released,
							Time:     time.Now(),
						})
					}
				}
			}
		}
	}()
}
