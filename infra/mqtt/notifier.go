package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/acasal/alertd/core/dispatch"
)

// outcomeMessage is the JSON document published for downstream consumers
// such as municipality dashboards.
type outcomeMessage struct {
	EventID    string  `json:"event_id"`
	AlertID    int64   `json:"alert_id"`
	SourceID   string  `json:"source_id"`
	Category   string  `json:"category"`
	Outcome    string  `json:"outcome"`
	Resource   string  `json:"resource,omitempty"`
	DistanceM  float64 `json:"distance_m,omitempty"`
	ETAMinutes int     `json:"eta_minutes,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Timestamp  int64   `json:"timestamp"`
}

// Notifier publishes processing outcomes under <topic>/<alertID>.
type Notifier struct {
	cli   pahoClient
	topic string
	qos   byte
}

// NewNotifier wraps an already connected listener's client. Both sides share
// the broker connection.
func NewNotifier(l *Listener) *Notifier {
	return &Notifier{cli: l.cli, topic: l.cfg.OutcomeTopic, qos: l.cfg.QoS}
}

// Publish serializes the outcome and publishes it. Rejected outcomes carry no
// alert identifier and are published under the source device instead.
func (n *Notifier) Publish(out dispatch.Outcome) error {
	msg := outcomeMessage{
		EventID:   uuid.NewString(),
		AlertID:   out.AlertID,
		SourceID:  out.SourceID,
		Category:  string(out.Category),
		Outcome:   out.Kind.String(),
		Reason:    out.Reason,
		Timestamp: time.Now().UnixMilli(),
	}
	if a := out.Assignment; a != nil {
		msg.Resource = a.Resource.Name
		msg.DistanceM = a.DistanceM
		msg.ETAMinutes = a.ETAMinutes()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	topic := fmt.Sprintf("%s/%d", n.topic, out.AlertID)
	if out.Kind == dispatch.OutcomeRejected {
		topic = fmt.Sprintf("%s/%s", n.topic, out.SourceID)
	}
	token := n.cli.Publish(topic, n.qos, false, payload)
	token.Wait()
	return token.Error()
}
