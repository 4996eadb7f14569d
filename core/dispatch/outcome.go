package dispatch

import (
	"fmt"

	"github.com/acasal/alertd/core/match"
	"github.com/acasal/alertd/core/model"
)

// OutcomeKind discriminates the result of processing one alert message.
type OutcomeKind int

const (
	// OutcomeAssigned: alert persisted and a resource dispatched.
	OutcomeAssigned OutcomeKind = iota
	// OutcomePending: alert persisted in state reported, no capacity yet.
	OutcomePending
	// OutcomeRejected: decode or persistence failure, nothing dispatched.
	OutcomeRejected
)

// String returns the label used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAssigned:
		return "assigned"
	case OutcomePending:
		return "pending"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Outcome is the uniform result handed back to the ingestion transport.
// Assignment is set only when Kind is OutcomeAssigned; Reason only when
// Kind is OutcomeRejected.
type Outcome struct {
	Kind       OutcomeKind
	SourceID   string
	AlertID    int64
	Category   model.Category
	Assignment *match.Candidate
	Reason     string
}

// Summary renders a one-line human-readable description for logs.
func (o Outcome) Summary() string {
	switch o.Kind {
	case OutcomeAssigned:
		a := o.Assignment
		return fmt.Sprintf("alert %d assigned to %s (%.0f m, %d min)",
			o.AlertID, a.Resource.Name, a.DistanceM, a.ETAMinutes())
	case OutcomePending:
		return fmt.Sprintf("alert %d pending, no %s resource available", o.AlertID, o.Category)
	default:
		return fmt.Sprintf("alert from %s rejected: %s", o.SourceID, o.Reason)
	}
}
