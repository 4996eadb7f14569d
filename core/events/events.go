// Package events defines the alert lifecycle events emitted on the event
// bus.
//
// Available event types:
//   - AlertReceived: raw uplink accepted from the transport
//   - DecodeFailed: telemetry frame permanently rejected
//   - AlertAssigned: resource dispatched for an alert
//   - AlertPending: alert persisted with no capacity available
//   - AlertResolved: alert closed, resource released
package events

import (
	"time"

	"github.com/acasal/alertd/core/model"
)

// AlertReceived is published when the transport hands a payload to the
// engine, before decoding.
type AlertReceived struct {
	SourceID string
	Bytes    int
	Time     time.Time
}

// DecodeFailed is published when a frame is rejected. These messages are
// never redelivered.
type DecodeFailed struct {
	SourceID string
	Reason   string
}

// AlertAssigned is published after the assignment transaction commits.
type AlertAssigned struct {
	AlertID    int64
	Category   model.Category
	Resource   string
	ResourceID int64
	DistanceM  float64
	ETASeconds int
}

// AlertPending is published when an alert is persisted but no resource of
// its category is available.
type AlertPending struct {
	AlertID  int64
	Category model.Category
}

// AlertResolved is published after a successful resolution. Released
// indicates whether a held resource was returned to the pool.
type AlertResolved struct {
	AlertID  int64
	Released bool
}
