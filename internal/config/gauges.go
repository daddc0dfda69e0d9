package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GaugeDescriptor identifies one monitored station. Only ID is required;
// the name fields feed display labels on the published metrics.
type GaugeDescriptor struct {
	// ID is the USGS station number, e.g. "09380000".
	ID string `yaml:"id"`

	// FriendlyName is a short operator-chosen label.
	FriendlyName string `yaml:"friendly_name"`

	// Name is the station's location name.
	Name string `yaml:"name"`
}

// LoadGauges reads the YAML gauge list at path. The file must hold a list
// of mappings, each with a non-empty id; any malformed entry rejects the
// whole list. Callers treat a rejected list as an empty gauge set for the
// cycle rather than scraping a partially trusted one.
func LoadGauges(path string) ([]GaugeDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gauges: read file: %w", err)
	}
	gauges, err := parseGauges(data)
	if err != nil {
		return nil, fmt.Errorf("gauges: %s: %w", path, err)
	}
	return gauges, nil
}

func parseGauges(data []byte) ([]GaugeDescriptor, error) {
	var gauges []GaugeDescriptor
	if err := yaml.Unmarshal(data, &gauges); err != nil {
		return nil, fmt.Errorf("parse yaml: must be a list of gauge entries: %w", err)
	}
	for i, g := range gauges {
		if g.ID == "" {
			return nil, fmt.Errorf("entry %d: id is required", i)
		}
	}
	return gauges, nil
}
