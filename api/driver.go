// Package api defines the driver that runs the convolution stage of a
// network on an accelerator.
package api

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/convpipe/accel"
	"github.com/sarchlab/convpipe/buffer"
	"github.com/sarchlab/convpipe/config"
	"github.com/sarchlab/convpipe/param"
	"github.com/sarchlab/convpipe/perf"
	"github.com/sarchlab/convpipe/tiling"
	"github.com/sarchlab/convpipe/verify"
)

// Driver runs inference passes.
type Driver interface {
	// Infer runs the convolution stage layer by layer on the image, reading
	// each layer's weights and biases from params in order, then hands the
	// final feature map to the fully-connected stage, which writes out.
	Infer(image, params, out []float32) (*Result, error)
}

// State is the bookkeeping carried from one layer to the next.
type State struct {
	Layer  int
	Bit    buffer.Bit
	Cursor param.Cursor
}

// LayerRecord describes one completed layer.
type LayerRecord struct {
	Layer   int
	In, Out buffer.Slot
	Tiling  tiling.Params

	// ParamOffset and Footprint locate the layer's parameters.
	ParamOffset int
	Footprint   int

	Cycles  uint64
	Seconds float64
}

// Result summarizes an inference pass.
type Result struct {
	Layers   []LayerRecord
	Cursor   param.Cursor
	Warnings []*verify.ValidationWarning

	// FeatureMap is a copy of the convolution stage's output.
	FeatureMap []float32
}

type layerHook struct {
	layer   int
	checker verify.Checker
}

type driverImpl struct {
	topology    *config.Topology
	deriver     tiling.Deriver
	kernel      accel.Kernel
	allocator   buffer.Allocator
	newCounter  func() perf.Counter
	counterFreq sim.Freq
	hooks       []layerHook
	fc          FCStage
}

// Infer runs one inference pass.
func (d *driverImpl) Infer(image, params, out []float32) (*Result, error) {
	slog.Info("Start convolution stage",
		"Layers", d.topology.NumConvLayers(),
		"Params", len(params))

	if len(image) < d.topology.InputElements() {
		return nil, fmt.Errorf("image holds %d elements, need %d",
			len(image), d.topology.InputElements())
	}

	arena, err := buffer.Acquire(d.allocator, d.topology.MaxBufferElements())
	if err != nil {
		return nil, err
	}
	defer arena.Release()

	res := &Result{}
	s := State{Cursor: param.NewCursor(len(params))}

	for s.Layer < d.topology.NumConvLayers() {
		var rec LayerRecord
		var warnings []*verify.ValidationWarning

		s, rec, warnings, err = d.runLayer(s, arena, image, params)
		if err != nil {
			return nil, err
		}

		res.Layers = append(res.Layers, rec)
		res.Warnings = append(res.Warnings, warnings...)
	}

	last := d.topology.NumConvLayers() - 1
	live := arena.Get(s.Bit.Live())
	res.FeatureMap = append([]float32(nil),
		live[:d.topology.OutputElements(last)]...)
	res.Cursor = s.Cursor

	if err := d.fc.Run(res.FeatureMap, out); err != nil {
		return nil, fmt.Errorf("fully-connected stage: %w", err)
	}

	return res, nil
}

// runLayer runs the layer named by the state and returns the state that
// follows it.
func (d *driverImpl) runLayer(
	s State,
	arena *buffer.Arena,
	image, params []float32,
) (State, LayerRecord, []*verify.ValidationWarning, error) {
	layer := s.Layer
	topo := d.topology

	slog.Info("Convolution layer", "Layer", layer)

	inSlot, outSlot := buffer.Route(layer, s.Bit)
	in, out := arena.Buffers(layer, s.Bit, image)

	tp, err := d.deriver.Derive(layer, topo)
	if err != nil {
		return s, LayerRecord{}, nil, err
	}

	weights, err := s.Cursor.Slice(params, layer, topo)
	if err != nil {
		return s, LayerRecord{}, nil, err
	}

	call := &accel.ConvCall{
		In:               in,
		Params:           weights,
		Out:              out,
		Layer:            layer,
		Rows:             topo.Shape[layer],
		Cols:             topo.Shape[layer],
		ChannelReadWidth: tp.ChannelReadWidth,
		KernelSize:       topo.Kernel[layer],
		FanIn:            topo.FanIn(layer),
		InputSections:    tp.InputSections,
		OutputChannels:   topo.Channels[layer],
		OutputSections:   tp.OutputSections,
		WeightShift:      tp.WeightShift,
		PoolDivisor:      tp.PoolDivisor,
		Pool:             topo.Pool[layer],
	}

	counter := d.newCounter()
	counter.Start()
	err = d.kernel.Convolve(call)
	counter.Stop()

	if err != nil {
		return s, LayerRecord{}, nil, fmt.Errorf("layer %d: kernel failed: %w",
			layer, err)
	}

	cycles := counter.AvgCycles()
	seconds := perf.Seconds(cycles, d.counterFreq)
	slog.Info("Finish convolution layer",
		"Layer", layer,
		"Cycles", cycles,
		"Seconds", seconds)

	next := State{Layer: layer + 1, Bit: s.Bit.Next(layer)}

	next.Cursor, err = s.Cursor.Advance(layer, topo)
	if err != nil {
		return s, LayerRecord{}, nil, err
	}

	rec := LayerRecord{
		Layer:       layer,
		In:          inSlot,
		Out:         outSlot,
		Tiling:      tp,
		ParamOffset: s.Cursor.Offset,
		Footprint:   next.Cursor.Offset - s.Cursor.Offset,
		Cycles:      cycles,
		Seconds:     seconds,
	}

	warnings := d.checkLayer(layer, arena.Get(next.Bit.Live()))

	return next, rec, warnings, nil
}

func (d *driverImpl) checkLayer(
	layer int,
	live []float32,
) []*verify.ValidationWarning {
	var warnings []*verify.ValidationWarning

	for _, h := range d.hooks {
		if h.layer != layer {
			continue
		}

		slog.Info("Check on-chip data", "Layer", layer)

		err := h.checker.Check(live, layer, d.topology.Pool[layer])
		if err == nil {
			continue
		}

		w := &verify.ValidationWarning{Layer: layer, Err: err}
		slog.Warn("Buffer check failed", "Layer", layer, "Error", err)
		warnings = append(warnings, w)
	}

	return warnings
}
