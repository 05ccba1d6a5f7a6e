package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseNetwork decodes a network description from YAML and validates it.
// An omitted input_channels defaults to 3.
func ParseNetwork(data []byte) (*Network, error) {
	n := &Network{}

	if err := yaml.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("failed to parse network description: %w", err)
	}

	if n.Topology.InputChannels == 0 {
		n.Topology.InputChannels = 3
	}

	if n.Tiles.WeightShift == nil {
		n.Tiles.WeightShift = WeightShiftTable{}
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// LoadNetworkFile reads and parses a YAML network description.
func LoadNetworkFile(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read network file: %w", err)
	}

	return ParseNetwork(data)
}
