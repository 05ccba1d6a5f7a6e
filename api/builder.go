package api

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/convpipe/accel"
	"github.com/sarchlab/convpipe/buffer"
	"github.com/sarchlab/convpipe/config"
	"github.com/sarchlab/convpipe/perf"
	"github.com/sarchlab/convpipe/tiling"
	"github.com/sarchlab/convpipe/verify"
)

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	network     *config.Network
	kernel      accel.Kernel
	allocator   buffer.Allocator
	newCounter  func() perf.Counter
	counterFreq sim.Freq
	hooks       []layerHook
	noHooks     bool
	fc          FCStage
}

// WithNetwork sets the network to run.
func (b DriverBuilder) WithNetwork(network *config.Network) DriverBuilder {
	b.network = network
	return b
}

// WithKernel sets the convolution kernel that runs each layer.
func (b DriverBuilder) WithKernel(kernel accel.Kernel) DriverBuilder {
	b.kernel = kernel
	return b
}

// WithAllocator sets the allocator of the scratch buffers.
func (b DriverBuilder) WithAllocator(allocator buffer.Allocator) DriverBuilder {
	b.allocator = allocator
	return b
}

// WithCounter sets how a fresh performance counter is created for every
// layer, and the frequency its cycles are counted at.
func (b DriverBuilder) WithCounter(
	newCounter func() perf.Counter,
	freq sim.Freq,
) DriverBuilder {
	b.newCounter = newCounter
	b.counterFreq = freq
	return b
}

// WithValidationHook runs the checker on the live buffer after the given
// layer. Setting any hook replaces the default check after layer 1.
func (b DriverBuilder) WithValidationHook(
	layer int,
	checker verify.Checker,
) DriverBuilder {
	hooks := make([]layerHook, len(b.hooks), len(b.hooks)+1)
	copy(hooks, b.hooks)
	b.hooks = append(hooks, layerHook{layer: layer, checker: checker})
	return b
}

// WithoutValidation disables all buffer checks.
func (b DriverBuilder) WithoutValidation() DriverBuilder {
	b.hooks = nil
	b.noHooks = true
	return b
}

// WithFCStage sets the stage that runs after the convolution layers.
func (b DriverBuilder) WithFCStage(fc FCStage) DriverBuilder {
	b.fc = fc
	return b
}

// Build create a driver.
func (b DriverBuilder) Build() Driver {
	if b.network == nil {
		panic("driver needs a network")
	}

	if b.kernel == nil {
		panic("driver needs a kernel")
	}

	if err := b.network.Validate(); err != nil {
		panic(fmt.Sprintf("driver needs a valid network: %v", err))
	}

	topo := &b.network.Topology

	for _, h := range b.hooks {
		if h.layer < 0 || h.layer >= topo.NumConvLayers() {
			panic(fmt.Sprintf("validation hook for layer %d, but network %q "+
				"has %d convolution layers",
				h.layer, b.network.Name, topo.NumConvLayers()))
		}
	}

	d := &driverImpl{
		topology:    topo,
		deriver:     tiling.Deriver{Tiles: b.network.Tiles},
		kernel:      b.kernel,
		allocator:   b.allocator,
		newCounter:  b.newCounter,
		counterFreq: b.counterFreq,
		hooks:       b.hooks,
		fc:          b.fc,
	}

	if d.allocator == nil {
		d.allocator = buffer.HeapAllocator{}
	}

	if d.newCounter == nil {
		d.counterFreq = 1.5 * sim.GHz
		d.newCounter = func() perf.Counter {
			return perf.NewWallClock(d.counterFreq)
		}
	}

	if len(d.hooks) == 0 && !b.noHooks && topo.NumConvLayers() > 1 {
		d.hooks = []layerHook{{
			layer:   1,
			checker: verify.BufferChecker{Topology: topo},
		}}
	}

	if d.fc == nil {
		d.fc = stubFCStage{layers: topo.FCLayers}
	}

	return d
}
