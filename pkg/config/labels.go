package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LabelSeeds is a declarative label-to-node-ID mapping, loaded from a
// YAML file so an operator can pre-declare topology (e.g. "gpu-nodes:
// [node-3, node-4]") before those nodes have self-registered any labels
// of their own. Several pack repos (wilke-GoWe, viant-fluxor) use
// gopkg.in/yaml.v3 for exactly this kind of declarative static config,
// which is the idiom this follows rather than inventing a bespoke format.
type LabelSeeds struct {
	Labels map[string][]string `yaml:"labels"`
}

// LoadLabelSeeds reads path if present; a missing file yields an empty,
// harmless seed set rather than an error, matching the best-effort
// loading style the rest of the ambient stack uses.
func LoadLabelSeeds(path string) (*LabelSeeds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LabelSeeds{Labels: map[string][]string{}}, nil
		}
		return nil, err
	}

	var seeds LabelSeeds
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, err
	}
	if seeds.Labels == nil {
		seeds.Labels = map[string][]string{}
	}
	return &seeds, nil
}
