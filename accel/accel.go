// Package accel defines the boundary between the layer driver and the
// convolution kernels that run on the accelerator.
package accel

import "fmt"

// ConvCall carries the arguments of one convolution kernel invocation.
// The kernel may read In and Params and write Out only for the duration of
// the call.
type ConvCall struct {
	In     []float32
	Params []float32
	Out    []float32

	Layer int
	Rows  int
	Cols  int

	ChannelReadWidth int
	KernelSize       int
	FanIn            int
	InputSections    int
	OutputChannels   int
	OutputSections   int
	WeightShift      int
	PoolDivisor      int
	Pool             bool
}

// OutputRows returns the number of rows the call produces.
func (c *ConvCall) OutputRows() int {
	if c.Pool {
		return c.Rows / 2
	}

	return c.Rows
}

// OutputCols returns the number of columns the call produces.
func (c *ConvCall) OutputCols() int {
	if c.Pool {
		return c.Cols / 2
	}

	return c.Cols
}

// WeightCount returns the number of weights the call reads.
func (c *ConvCall) WeightCount() int {
	return c.OutputChannels * c.FanIn * c.KernelSize * c.KernelSize
}

// Validate checks that the call is self-consistent and that its buffers are
// large enough.
func (c *ConvCall) Validate() error {
	if c.ChannelReadWidth*c.InputSections != c.FanIn {
		return fmt.Errorf("layer %d: %d sections of %d channels do not cover "+
			"a fan-in of %d", c.Layer, c.InputSections, c.ChannelReadWidth, c.FanIn)
	}

	if c.OutputSections <= 0 || c.OutputChannels%c.OutputSections != 0 {
		return fmt.Errorf("layer %d: %d output channels cannot be split into "+
			"%d sections", c.Layer, c.OutputChannels, c.OutputSections)
	}

	if len(c.In) < c.FanIn*c.Rows*c.Cols {
		return fmt.Errorf("layer %d: input holds %d elements, need %d",
			c.Layer, len(c.In), c.FanIn*c.Rows*c.Cols)
	}

	if len(c.Params) < c.WeightCount()+c.OutputChannels {
		return fmt.Errorf("layer %d: parameter slice holds %d elements, need %d",
			c.Layer, len(c.Params), c.WeightCount()+c.OutputChannels)
	}

	outSize := c.OutputChannels * c.OutputRows() * c.OutputCols()
	if len(c.Out) < outSize {
		return fmt.Errorf("layer %d: output holds %d elements, need %d",
			c.Layer, len(c.Out), outSize)
	}

	return nil
}

// A Kernel runs convolution layers. Convolve returns once the output
// buffer holds the layer's result.
type Kernel interface {
	Convolve(call *ConvCall) error
}
