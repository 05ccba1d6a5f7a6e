// Package config describes the static topology of a convolutional network
// and the tiling configuration of the accelerator that runs it.
package config

import (
	"fmt"
)

// Topology holds the per-layer tables of the convolution stage. The four
// per-layer slices are aligned by layer index.
type Topology struct {
	// InputChannels is the channel count of the input image. It plays the
	// role of the channel count of the layer before layer 0.
	InputChannels int `yaml:"input_channels"`

	// Shape is the spatial side length of each layer's input feature map.
	Shape []int `yaml:"shape"`

	// Channels is the number of output channels of each layer.
	Channels []int `yaml:"channels"`

	// Kernel is the side length of each layer's convolution kernel.
	Kernel []int `yaml:"kernel"`

	// Pool marks layers that are followed by a 2x2 pooling reduction.
	Pool []bool `yaml:"pool"`

	// FCLayers lists the neuron counts of the fully-connected stage.
	FCLayers []int `yaml:"fc_layers"`

	// Classes is the length of the classification output.
	Classes int `yaml:"classes"`
}

// Validate checks that the per-layer tables are aligned and hold positive
// values. Tile divisibility is not checked here.
func (t *Topology) Validate() error {
	n := len(t.Shape)
	if n == 0 {
		return fmt.Errorf("topology has no convolution layers")
	}

	if len(t.Channels) != n || len(t.Kernel) != n || len(t.Pool) != n {
		return fmt.Errorf(
			"topology tables are not aligned: shape=%d channels=%d kernel=%d pool=%d",
			n, len(t.Channels), len(t.Kernel), len(t.Pool))
	}

	if t.InputChannels <= 0 {
		return fmt.Errorf("input channel count must be positive, got %d",
			t.InputChannels)
	}

	for i := 0; i < n; i++ {
		if t.Shape[i] <= 0 || t.Channels[i] <= 0 || t.Kernel[i] <= 0 {
			return fmt.Errorf(
				"layer %d: shape, channels and kernel must be positive (%d, %d, %d)",
				i, t.Shape[i], t.Channels[i], t.Kernel[i])
		}
	}

	return nil
}

// NumConvLayers returns the number of convolution layers.
func (t *Topology) NumConvLayers() int {
	return len(t.Shape)
}

// FanIn returns the number of input channels feeding the given layer.
func (t *Topology) FanIn(layer int) int {
	if layer == 0 {
		return t.InputChannels
	}

	return t.Channels[layer-1]
}

// OutputShape returns the spatial side length of the layer's output.
func (t *Topology) OutputShape(layer int) int {
	if t.Pool[layer] {
		return t.Shape[layer] / 2
	}

	return t.Shape[layer]
}

// OutputElements returns the number of activations the layer produces.
func (t *Topology) OutputElements(layer int) int {
	s := t.OutputShape(layer)
	return s * s * t.Channels[layer]
}

// InputElements returns the number of elements in the input image.
func (t *Topology) InputElements() int {
	return t.Shape[0] * t.Shape[0] * t.InputChannels
}

// MaxBufferElements returns the size of a scratch buffer that can hold
// any single layer's footprint, including the input image.
func (t *Topology) MaxBufferElements() int {
	max := t.InputElements()

	for i := range t.Shape {
		size := t.Shape[i] * t.Shape[i] * t.Channels[i]
		if size > max {
			max = size
		}
	}

	return max
}
