package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/acasal/alertd/core/codec"
	"github.com/acasal/alertd/core/dispatch"
	"github.com/acasal/alertd/core/match"
	"github.com/acasal/alertd/core/model"
	"github.com/acasal/alertd/infra/mqtt"
	"github.com/acasal/alertd/infra/store"
)

func waitForMQTTReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		lastErr = token.Error()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
`
	dir := t.TempDir()
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())
	if err := waitForMQTTReady(broker, 5*time.Second); err != nil {
		t.Logf("mosquitto not ready at %s: %v", broker, err)
		t.Skip("Mosquitto not ready after retries")
	}
	return cont, broker
}

// TestUplinkDispatchWithMQTTContainer runs the full pipeline against a real
// broker: a simulated device uplink goes in, an assignment outcome comes out
// and the store reflects the claimed resource.
func TestUplinkDispatchWithMQTTContainer(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()

	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "e2e.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer st.Close()
	seed := []model.Resource{{
		ID: 1, Name: "Centro de Salud Caminomorisco", Municipality: "Caminomorisco",
		Category: model.CategoryMedical, Location: model.Location{Lat: 40.3645, Lon: -6.2910},
		Available: true, AvgSpeedKMH: 60, PrepDelayS: 120,
	}}
	if err := st.SeedResources(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	eng, err := dispatch.New(st, match.New(st), nil, nil, nil, 0)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	listener, err := mqtt.NewListener(mqtt.Config{Broker: broker, ClientID: "alertd-e2e"}, eng, nil, nil)
	if err != nil {
		t.Fatalf("listener: %v", err)
	}
	defer listener.Disconnect()
	listener.SetNotifier(mqtt.NewNotifier(listener))

	// Observe outcomes the way a dashboard would.
	outcomes := make(chan []byte, 1)
	obsOpts := paho.NewClientOptions().AddBroker(broker).SetClientID("e2e-observer")
	obs := paho.NewClient(obsOpts)
	if token := obs.Connect(); token.Wait() && token.Error() != nil {
		t.Fatalf("observer connect: %v", token.Error())
	}
	defer obs.Disconnect(100)
	if token := obs.Subscribe("alerts/outcome/+", 0, func(_ paho.Client, m paho.Message) {
		select {
		case outcomes <- m.Payload():
		default:
		}
	}); token.Wait() && token.Error() != nil {
		t.Fatalf("observer subscribe: %v", token.Error())
	}

	// Simulated ChirpStack uplink.
	devOpts := paho.NewClientOptions().AddBroker(broker).SetClientID("e2e-device")
	dev := paho.NewClient(devOpts)
	if token := dev.Connect(); token.Wait() && token.Error() != nil {
		t.Fatalf("device connect: %v", token.Error())
	}
	defer dev.Disconnect(100)

	frame := codec.EncodeBase64(model.AlertObservation{
		Category: model.CategoryMedical,
		Location: model.Location{Lat: 40.3700, Lon: -6.2850},
		Battery:  85,
	})
	payload, _ := json.Marshal(map[string]string{
		"devEUI":     "0004a30b001b7ad1",
		"deviceName": "panic-button-1",
		"data":       frame,
	})
	if token := dev.Publish("application/1/device/0004a30b001b7ad1/event/up", 0, false, payload); token.Wait() && token.Error() != nil {
		t.Fatalf("publish uplink: %v", token.Error())
	}

	var raw []byte
	select {
	case raw = <-outcomes:
	case <-time.After(10 * time.Second):
		t.Fatal("no outcome published")
	}
	var msg struct {
		AlertID  int64  `json:"alert_id"`
		SourceID string `json:"source_id"`
		Outcome  string `json:"outcome"`
		Resource string `json:"resource"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if msg.Outcome != "assigned" || msg.Resource != "Centro de Salud Caminomorisco" {
		t.Fatalf("unexpected outcome %+v", msg)
	}
	if msg.SourceID != "0004a30b001b7ad1" {
		t.Errorf("source id: got %s", msg.SourceID)
	}

	a, err := st.GetAlert(ctx, msg.AlertID)
	if err != nil {
		t.Fatalf("get alert: %v", err)
	}
	if a.State != model.StateAssigned {
		t.Errorf("alert state: got %s, want assigned", a.State)
	}
	if rs, _ := st.AvailableResources(ctx, model.CategoryMedical); len(rs) != 0 {
		t.Errorf("resource still available after dispatch")
	}
}
