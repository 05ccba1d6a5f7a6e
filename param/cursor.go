// Package param tracks the read position in the flat parameter stream that
// holds every layer's weights and biases back to back.
package param

import (
	"fmt"

	"github.com/sarchlab/convpipe/config"
)

// Footprint returns the number of parameters a layer consumes: one
// kernel per (output, input) channel pair plus one bias per output
// channel.
func Footprint(layer int, topo *config.Topology) int {
	k := topo.Kernel[layer]
	c := topo.Channels[layer]

	return c*topo.FanIn(layer)*k*k + c
}

// TotalFootprint returns the length of a parameter stream that exactly
// covers the convolution stage.
func TotalFootprint(topo *config.Topology) int {
	total := 0
	for l := 0; l < topo.NumConvLayers(); l++ {
		total += Footprint(l, topo)
	}

	return total
}

// An OverrunError reports that a layer's parameters extend past the end
// of the parameter stream.
type OverrunError struct {
	Layer  int
	Offset int
	Need   int
	Length int
}

func (e *OverrunError) Error() string {
	return fmt.Sprintf(
		"layer %d: parameters [%d, %d) overrun the stream of length %d",
		e.Layer, e.Offset, e.Offset+e.Need, e.Length)
}

// A Cursor is a forward-only position in the parameter stream.
type Cursor struct {
	Offset int
	Length int
}

// NewCursor returns a cursor at the start of a stream of the given length.
func NewCursor(length int) Cursor {
	return Cursor{Length: length}
}

func (c Cursor) check(layer, need int) error {
	if c.Offset+need > c.Length {
		return &OverrunError{
			Layer:  layer,
			Offset: c.Offset,
			Need:   need,
			Length: c.Length,
		}
	}

	return nil
}

// Slice returns the layer's region of the stream, starting at the cursor.
func (c Cursor) Slice(
	params []float32,
	layer int,
	topo *config.Topology,
) ([]float32, error) {
	need := Footprint(layer, topo)
	if err := c.check(layer, need); err != nil {
		return nil, err
	}

	if c.Offset+need > len(params) {
		panic(fmt.Sprintf("cursor length %d exceeds the stream of %d elements",
			c.Length, len(params)))
	}

	return params[c.Offset : c.Offset+need : c.Offset+need], nil
}

// Advance returns the cursor moved past the layer's region.
func (c Cursor) Advance(layer int, topo *config.Topology) (Cursor, error) {
	need := Footprint(layer, topo)
	if err := c.check(layer, need); err != nil {
		return c, err
	}

	c.Offset += need

	return c, nil
}

// Remaining returns the number of parameters not yet consumed.
func (c Cursor) Remaining() int {
	return c.Length - c.Offset
}
