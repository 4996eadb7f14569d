package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"

	"github.com/acasal/alertd/config"
	"github.com/acasal/alertd/core/codec"
	"github.com/acasal/alertd/core/model"
	"github.com/acasal/alertd/infra/logger"
	"github.com/acasal/alertd/infra/mqtt"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Publish test uplinks for each alert category",
	RunE:  simulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

// simFixtures mirrors a handful of villages in the service area, one per
// category.
var simFixtures = []struct {
	devEUI string
	name   string
	obs    model.AlertObservation
}{
	{"0004a30b001b7ad1", "panic-button-caminomorisco", model.AlertObservation{
		Category: model.CategoryMedical, Location: model.Location{Lat: 40.3645, Lon: -6.2900}, Battery: 85}},
	{"0004a30b001b7ad2", "panic-button-nunomoral", model.AlertObservation{
		Category: model.CategoryPolice, Location: model.Location{Lat: 40.4056, Lon: -6.2534}, Battery: 72}},
	{"0004a30b001b7ad3", "panic-button-pinofranqueado", model.AlertObservation{
		Category: model.CategoryFire, Location: model.Location{Lat: 40.3333, Lon: -6.3205}, Battery: 64}},
	{"0004a30b001b7ad4", "panic-button-casarespalomero", model.AlertObservation{
		Category: model.CategoryRescue, Location: model.Location{Lat: 40.3789, Lon: -6.1834}, Battery: 91}},
}

func simulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New("simulate", cfg.Logging.Level)

	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = mqttCfg.ClientID + "-sim"
	opts, err := mqtt.NewClientOptions(mqttCfg)
	if err != nil {
		return err
	}
	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	for _, f := range simFixtures {
		env := map[string]string{
			"devEUI":     f.devEUI,
			"deviceName": f.name,
			"data":       codec.EncodeBase64(f.obs),
		}
		payload, err := json.Marshal(env)
		if err != nil {
			return err
		}
		topic := fmt.Sprintf("application/1/device/%s/event/up", f.devEUI)
		if token := client.Publish(topic, cfg.MQTT.QoS, false, payload); token.Wait() && token.Error() != nil {
			return fmt.Errorf("publish %s: %w", topic, token.Error())
		}
		logg.Infof("published %s uplink from %s", f.obs.Category, f.devEUI)
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}
