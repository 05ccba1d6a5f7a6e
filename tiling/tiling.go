// Package tiling derives the per-layer tile parameters that the
// convolution kernel is invoked with.
package tiling

import (
	"fmt"

	"github.com/sarchlab/convpipe/config"
)

// Params are the tiling arguments of one kernel invocation.
type Params struct {
	// ChannelReadWidth is the number of input channels read per section.
	ChannelReadWidth int

	// InputSections is the number of input-channel tiles.
	InputSections int

	// OutputSections is the number of output-channel tiles.
	OutputSections int

	// WeightShift is the log2 of the input sections covered by one
	// weight-buffer load.
	WeightShift int

	// PoolDivisor is the number of activations each pooled output sums.
	PoolDivisor int
}

// A ConfigurationError reports a topology that the tile configuration
// cannot split evenly.
type ConfigurationError struct {
	Layer  int
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("layer %d: invalid tiling configuration: %s",
		e.Layer, e.Reason)
}

// A Deriver computes tiling parameters from a tile configuration.
type Deriver struct {
	Tiles config.TileConfig
}

// Derive returns the tiling parameters of a layer. It has no side effects.
func (d Deriver) Derive(layer int, topo *config.Topology) (Params, error) {
	if layer < 0 || layer >= topo.NumConvLayers() {
		return Params{}, &ConfigurationError{
			Layer:  layer,
			Reason: fmt.Sprintf("network has %d layers", topo.NumConvLayers()),
		}
	}

	p := Params{
		ChannelReadWidth: d.Tiles.InputTile,
		PoolDivisor:      1,
		WeightShift:      d.Tiles.WeightShift.Lookup(layer),
	}

	if topo.Pool[layer] {
		p.PoolDivisor = 4
	}

	if layer == 0 {
		p.ChannelReadWidth = topo.InputChannels
		p.InputSections = 1
	} else {
		isec, err := sections(layer, "input", topo.Channels[layer-1],
			d.Tiles.InputTile)
		if err != nil {
			return Params{}, err
		}

		p.InputSections = isec
	}

	osec, err := sections(layer, "output", topo.Channels[layer],
		d.Tiles.OutputTile)
	if err != nil {
		return Params{}, err
	}

	p.OutputSections = osec

	return p, nil
}

func sections(layer int, kind string, channels, tile int) (int, error) {
	if tile <= 0 {
		return 0, &ConfigurationError{
			Layer:  layer,
			Reason: fmt.Sprintf("%s tile width must be positive, got %d", kind, tile),
		}
	}

	if channels%tile != 0 {
		return 0, &ConfigurationError{
			Layer: layer,
			Reason: fmt.Sprintf("%d %s channels are not divisible by tile width %d",
				channels, kind, tile),
		}
	}

	return channels / tile, nil
}
