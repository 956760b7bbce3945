package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// document is the on-disk YAML shape of a model.
type document struct {
	Name       string       `yaml:"name"`
	Volume     float64      `yaml:"volume"`
	Timespan   TimeSpan     `yaml:"timespan"`
	Species    []*Species   `yaml:"species"`
	Parameters []*Parameter `yaml:"parameters"`
	Reactions  []*Reaction  `yaml:"reactions"`
	RateRules  []*RateRule  `yaml:"rate_rules"`
}

// Load reads and validates a model document from a YAML file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return Parse(data)
}

// Parse builds a validated model from YAML bytes. Declaration order in the
// document becomes the model's entity order.
func Parse(data []byte) (*Model, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("model missing name")
	}

	m := New(doc.Name)
	if doc.Volume > 0 {
		m.Volume = doc.Volume
	}
	m.Tspan = doc.Timespan

	if err := m.AddSpecies(doc.Species...); err != nil {
		return nil, err
	}
	if err := m.AddParameter(doc.Parameters...); err != nil {
		return nil, err
	}
	if err := m.AddReaction(doc.Reactions...); err != nil {
		return nil, err
	}
	if err := m.AddRateRule(doc.RateRules...); err != nil {
		return nil, err
	}
	return m, nil
}
