package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/acasal/alertd/core/model"
)

// LoadResources reads resource reference data from a YAML file of the form:
//
//	resources:
//	  - name: "Centro de Salud Caminomorisco"
//	    municipality: "Caminomorisco"
//	    category: "medical"
//	    location: {lat: 40.3645, lon: -6.2910}
//	    available: true
//	    avg_speed_kmh: 60
//	    prep_delay_s: 120
func LoadResources(path string) ([]model.Resource, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, err
	}
	var doc struct {
		Resources []model.Resource `json:"resources"`
	}
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	for i, r := range doc.Resources {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("resource %d (%s): %w", i, r.Name, err)
		}
	}
	return doc.Resources, nil
}
