package mqtt

import (
	"context"
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/acasal/alertd/core/dispatch"
	"github.com/acasal/alertd/infra/logger"
	"github.com/acasal/alertd/internal/worker"
)

// AlertProcessor consumes base64-armored uplink payloads. The dispatch
// engine is the production implementation.
type AlertProcessor interface {
	ProcessArmored(ctx context.Context, sourceID, data string) dispatch.Outcome
}

// uplinkEnvelope is the subset of the ChirpStack uplink event we consume.
type uplinkEnvelope struct {
	DevEUI     string `json:"devEUI"`
	DeviceName string `json:"deviceName"`
	Data       string `json:"data"`
}

// Listener subscribes to device uplink events and feeds each payload to the
// alert processor through a bounded worker pool. Outcomes are forwarded to
// the optional Notifier.
type Listener struct {
	cli      pahoClient
	cfg      Config
	proc     AlertProcessor
	notifier *Notifier
	pool     *worker.Pool[uplinkEnvelope]
	cancel   context.CancelFunc
	log      logger.Logger
}

// NewListener connects to the MQTT broker and subscribes to the uplink topic.
// The notifier may be nil when no outcome feedback is wanted.
func NewListener(cfg Config, proc AlertProcessor, notifier *Notifier, log logger.Logger) (*Listener, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.New("mqtt-listener", "info")
	}

	l := &Listener{cfg: cfg, proc: proc, notifier: notifier, log: log}
	l.pool = worker.NewPool(cfg.Workers, cfg.QueueSize, l.process)
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.pool.Start(ctx)

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected, subscribing to %s", cfg.UplinkTopic)
		if token := c.Subscribe(cfg.UplinkTopic, cfg.QoS, l.onUplink); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		cancel()
		l.pool.Stop()
		return nil, token.Error()
	}
	l.cli = c
	return l, nil
}

// SetNotifier attaches an outcome notifier after construction. The notifier
// shares the listener's broker connection, so it cannot exist beforehand.
func (l *Listener) SetNotifier(n *Notifier) { l.notifier = n }

func (l *Listener) onUplink(_ paho.Client, msg paho.Message) {
	var env uplinkEnvelope
	if err := json.Unmarshal(msg.Payload(), &env); err != nil {
		l.log.Errorf("failed to decode uplink envelope on %s: %v", msg.Topic(), err)
		return
	}
	if env.Data == "" {
		l.log.Warnf("uplink from %s carries no data", env.DevEUI)
		return
	}
	if !l.pool.Submit(env) {
		l.log.Errorf("uplink queue full, dropping message from %s", env.DevEUI)
	}
}

func (l *Listener) process(ctx context.Context, env uplinkEnvelope) {
	out := l.proc.ProcessArmored(ctx, env.DevEUI, env.Data)
	l.log.Infof("%s", out.Summary())
	if out.Kind == dispatch.OutcomeRejected {
		l.log.Debugw("rejected uplink", map[string]any{
			"dev_eui":     env.DevEUI,
			"device_name": env.DeviceName,
		})
	}
	if l.notifier != nil {
		if err := l.notifier.Publish(out); err != nil {
			l.log.Errorf("outcome publish failed: %v", err)
		}
	}
}

// Disconnect closes the MQTT connection and drains the worker pool.
func (l *Listener) Disconnect() {
	if l.cli != nil && l.cli.IsConnected() {
		l.cli.Disconnect(250)
	}
	l.pool.Stop()
	l.cancel()
}
