// Package scenarios runs YAML-described alert workloads against the full
// dispatch pipeline for release checks.
package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/acasal/alertd/core/codec"
	"github.com/acasal/alertd/core/model"
)

type ResourceDef struct {
	ID          int64   `yaml:"id"`
	Name        string  `yaml:"name"`
	Category    string  `yaml:"category"`
	Lat         float64 `yaml:"lat"`
	Lon         float64 `yaml:"lon"`
	Available   bool    `yaml:"available"`
	AvgSpeedKMH float64 `yaml:"avg_speed_kmh"`
	PrepDelayS  int     `yaml:"prep_delay_s"`
}

func (r ResourceDef) ToModel() model.Resource {
	return model.Resource{
		ID:          r.ID,
		Name:        r.Name,
		Category:    model.Category(r.Category),
		Location:    model.Location{Lat: r.Lat, Lon: r.Lon},
		Available:   r.Available,
		AvgSpeedKMH: r.AvgSpeedKMH,
		PrepDelayS:  r.PrepDelayS,
	}
}

// UplinkDef describes a single device message. When Raw is set it is sent
// verbatim (for malformed payload cases); otherwise the fields below are
// encoded into a well-formed frame.
type UplinkDef struct {
	DevEUI   string  `yaml:"dev_eui"`
	Category string  `yaml:"category"`
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
	Battery  uint8   `yaml:"battery"`
	Raw      string  `yaml:"raw,omitempty"`
}

func (u UplinkDef) Payload() string {
	if u.Raw != "" {
		return u.Raw
	}
	return codec.EncodeBase64(model.AlertObservation{
		Category: model.Category(u.Category),
		Location: model.Location{Lat: u.Lat, Lon: u.Lon},
		Battery:  u.Battery,
	})
}

type Expected struct {
	Assigned int `yaml:"assigned"`
	Pending  int `yaml:"pending"`
	Rejected int `yaml:"rejected"`
}

type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Resources   []ResourceDef `yaml:"resources"`
	Uplinks     []UplinkDef   `yaml:"uplinks"`
	Expected    Expected      `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
