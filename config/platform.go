package config

import (
	"fmt"
	"sort"
)

// WeightShiftTable maps a layer index to the log2 of the number of input
// sections that share one weight-buffer load. Layers absent from the
// table use a shift of 0. The values follow the hardware tiling
// granularity and are not derived from the topology.
type WeightShiftTable map[int]int

// Lookup returns the weight shift of the layer.
func (w WeightShiftTable) Lookup(layer int) int {
	return w[layer]
}

// Layers returns the layers that have an explicit entry, in order.
func (w WeightShiftTable) Layers() []int {
	layers := make([]int, 0, len(w))
	for l := range w {
		layers = append(layers, l)
	}

	sort.Ints(layers)

	return layers
}

// TileConfig describes how the accelerator splits channels into tiles.
type TileConfig struct {
	// InputTile is the number of input channels read per input section.
	InputTile int `yaml:"input_tile"`

	// OutputTile is the number of output channels produced per section.
	OutputTile int `yaml:"output_tile"`

	WeightShift WeightShiftTable `yaml:"weight_shift"`
}

// A Network bundles a topology with the tiling of the accelerator that
// runs it.
type Network struct {
	Name     string     `yaml:"name"`
	Topology Topology   `yaml:"topology"`
	Tiles    TileConfig `yaml:"tiles"`
}

// Validate checks the topology and the tile widths.
func (n *Network) Validate() error {
	if err := n.Topology.Validate(); err != nil {
		return fmt.Errorf("network %q: %w", n.Name, err)
	}

	if n.Tiles.InputTile <= 0 || n.Tiles.OutputTile <= 0 {
		return fmt.Errorf("network %q: tile widths must be positive (%d, %d)",
			n.Name, n.Tiles.InputTile, n.Tiles.OutputTile)
	}

	for _, l := range n.Tiles.WeightShift.Layers() {
		if l < 0 || l >= n.Topology.NumConvLayers() {
			return fmt.Errorf("network %q: weight shift given for layer %d, "+
				"but the network has %d convolution layers",
				n.Name, l, n.Topology.NumConvLayers())
		}
	}

	return nil
}
