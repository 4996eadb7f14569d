// Package dispatch implements the alert lifecycle: decode, persist, match,
// assign, resolve. The Engine is the single entry point the ingestion
// transport calls; no other component mutates alert or availability state.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acasal/alertd/core/codec"
	"github.com/acasal/alertd/core/events"
	"github.com/acasal/alertd/core/logger"
	"github.com/acasal/alertd/core/match"
	"github.com/acasal/alertd/core/metrics"
	"github.com/acasal/alertd/core/model"
	"github.com/acasal/alertd/core/store"
	"github.com/acasal/alertd/internal/eventbus"
)

// assignAttempts bounds the claim loop: one attempt plus one retry against
// a freshly re-queried candidate set, then the outcome degrades to
// pending.
const assignAttempts = 2

// Engine sequences the alert lifecycle and owns every state transition.
// It is safe for concurrent use: contention on a resource is resolved by
// the datastore's conditional update, never by in-process locking, so
// several engine instances may share one datastore.
type Engine struct {
	store   store.Store
	matcher *match.Matcher
	log     logger.Logger
	sink    metrics.Sink
	bus     eventbus.EventBus
	timeout time.Duration
}

// New creates an Engine. Store and matcher are required; a nil logger,
// sink or bus disables the corresponding side channel. A non-positive
// timeout falls back to five seconds per datastore call.
func New(st store.Store, m *match.Matcher, log logger.Logger, sink metrics.Sink, bus eventbus.EventBus, timeout time.Duration) (*Engine, error) {
	if st == nil || m == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to New")
	}
	if log == nil {
		log = logger.Nop{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Engine{store: st, matcher: m, log: log, sink: sink, bus: bus, timeout: timeout}, nil
}

// ProcessAlert decodes a raw telemetry frame and runs the full lifecycle.
// It never returns an error: every failure mode is folded into the
// outcome so the transport has a single surface to act on.
func (e *Engine) ProcessAlert(ctx context.Context, sourceID string, raw []byte) Outcome {
	e.publish(events.AlertReceived{SourceID: sourceID, Bytes: len(raw), Time: time.Now()})
	obs, err := codec.Decode(raw)
	if err != nil {
		return e.reject(sourceID, err)
	}
	return e.dispatch(ctx, sourceID, obs)
}

// ProcessArmored is ProcessAlert for transports that deliver the frame
// base64-armored, as the uplink envelope does.
func (e *Engine) ProcessArmored(ctx context.Context, sourceID, data string) Outcome {
	e.publish(events.AlertReceived{SourceID: sourceID, Bytes: len(data), Time: time.Now()})
	obs, err := codec.DecodeBase64(data)
	if err != nil {
		return e.reject(sourceID, err)
	}
	return e.dispatch(ctx, sourceID, obs)
}

// Process persists and matches one already-decoded observation. Exposed
// for callers that decode out of band; the returned error is non-nil only
// for persistence failures, where the transport may redeliver.
func (e *Engine) Process(ctx context.Context, sourceID string, obs model.AlertObservation) (Outcome, error) {
	start := time.Now()
	alert := model.Alert{
		SourceID: sourceID,
		Category: obs.Category,
		Location: obs.Location,
		State:    model.StateReported,
	}
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	err := e.store.CreateAlert(cctx, &alert)
	cancel()
	if err != nil {
		e.log.Errorf("persist alert from %s failed: %v", sourceID, err)
		return Outcome{}, fmt.Errorf("persist alert from %s: %w", sourceID, err)
	}
	e.log.Infof("alert %d registered (%s from %s)", alert.ID, alert.Category, sourceID)

	out := e.assign(ctx, alert)
	out.SourceID = sourceID

	elapsed := time.Since(start)
	processLatency.WithLabelValues(string(alert.Category)).Observe(elapsed.Seconds())
	alertsProcessed.WithLabelValues(string(alert.Category), out.Kind.String()).Inc()
	e.record(out, elapsed)
	return out, nil
}

// dispatch folds Process persistence errors into a rejected outcome.
func (e *Engine) dispatch(ctx context.Context, sourceID string, obs model.AlertObservation) Outcome {
	out, err := e.Process(ctx, sourceID, obs)
	if err != nil {
		alertsProcessed.WithLabelValues(string(obs.Category), OutcomeRejected.String()).Inc()
		return Outcome{Kind: OutcomeRejected, SourceID: sourceID, Category: obs.Category, Reason: err.Error()}
	}
	return out
}

// assign runs the match-and-claim step. A claim lost to a concurrent
// assignment is retried once against a fresh candidate set; after that the
// alert stays reported and the outcome is pending, which is a normal
// operational state rather than an error.
func (e *Engine) assign(ctx context.Context, alert model.Alert) Outcome {
	pending := Outcome{Kind: OutcomePending, AlertID: alert.ID, Category: alert.Category}
	for attempt := 0; attempt < assignAttempts; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, e.timeout)
		cand, err := e.matcher.FindNearest(cctx, alert.Category, alert.Location)
		cancel()
		if errors.Is(err, match.ErrNoResource) {
			e.log.Warnf("no %s resource available for alert %d", alert.Category, alert.ID)
			e.publish(events.AlertPending{AlertID: alert.ID, Category: alert.Category})
			return pending
		}
		if err != nil {
			e.log.Errorf("resource query for alert %d failed: %v", alert.ID, err)
			e.publish(events.AlertPending{AlertID: alert.ID, Category: alert.Category})
			return pending
		}

		cctx, cancel = context.WithTimeout(ctx, e.timeout)
		asg, err := e.store.Assign(cctx, model.Assignment{
			AlertID:    alert.ID,
			ResourceID: cand.Resource.ID,
			DistanceM:  cand.DistanceM,
			ETASeconds: cand.ETASeconds,
		})
		cancel()
		if err == nil {
			e.log.Infof("alert %d assigned to %s (%.0f m, eta %d min)",
				alert.ID, cand.Resource.Name, cand.DistanceM, cand.ETAMinutes())
			e.publish(events.AlertAssigned{
				AlertID:    alert.ID,
				Category:   alert.Category,
				Resource:   cand.Resource.Name,
				ResourceID: cand.Resource.ID,
				DistanceM:  asg.DistanceM,
				ETASeconds: asg.ETASeconds,
			})
			return Outcome{
				Kind:       OutcomeAssigned,
				AlertID:    alert.ID,
				Category:   alert.Category,
				Assignment: &cand,
			}
		}
		if errors.Is(err, store.ErrResourceConflict) {
			resourceConflicts.Inc()
			e.log.Warnf("resource %d claimed concurrently for alert %d, re-querying", cand.Resource.ID, alert.ID)
			continue
		}
		e.log.Errorf("assignment for alert %d failed: %v", alert.ID, err)
		break
	}
	e.publish(events.AlertPending{AlertID: alert.ID, Category: alert.Category})
	return pending
}

// Resolve transitions the alert to resolved and releases a held resource
// in one atomic step. It is idempotent: resolving an already-resolved or
// unknown alert returns false without error.
func (e *Engine) Resolve(ctx context.Context, alertID int64) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	done, released, err := e.store.ResolveAlert(cctx, alertID)
	if err != nil {
		e.log.Errorf("resolve alert %d failed: %v", alertID, err)
		return false, fmt.Errorf("resolve alert %d: %w", alertID, err)
	}
	if !done {
		resolutions.WithLabelValues("noop").Inc()
		e.log.Warnf("alert %d not found or already resolved", alertID)
		return false, nil
	}
	resolutions.WithLabelValues("resolved").Inc()
	if released {
		e.log.Infof("alert %d resolved, resource released", alertID)
	} else {
		e.log.Infof("alert %d resolved, no resource held", alertID)
	}
	e.publish(events.AlertResolved{AlertID: alertID, Released: released})
	return true, nil
}

func (e *Engine) reject(sourceID string, err error) Outcome {
	decodeFailures.Inc()
	e.log.Errorf("decode failed for %s: %v", sourceID, err)
	e.publish(events.DecodeFailed{SourceID: sourceID, Reason: err.Error()})
	return Outcome{Kind: OutcomeRejected, SourceID: sourceID, Reason: err.Error()}
}

func (e *Engine) publish(ev eventbus.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

// record forwards the outcome to the configured sink.
func (e *Engine) record(out Outcome, elapsed time.Duration) {
	rec := metrics.DispatchRecord{
		AlertID:  out.AlertID,
		SourceID: out.SourceID,
		Category: out.Category,
		Outcome:  out.Kind.String(),
		Latency:  elapsed,
		Time:     time.Now(),
	}
	if out.Assignment != nil {
		rec.Resource = out.Assignment.Resource.Name
		rec.DistanceM = out.Assignment.DistanceM
		rec.ETASeconds = out.Assignment.ETASeconds
	}
	if err := e.sink.RecordDispatch([]metrics.DispatchRecord{rec}); err != nil {
		e.log.Errorf("metrics error: %v", err)
	}
}
