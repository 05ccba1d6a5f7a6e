package core

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/convpipe/accel"
)

// Builder can create new cores.
type Builder struct {
	engine            sim.Engine
	freq              sim.Freq
	weightLoadLatency int
	datapath          accel.Kernel
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the core.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithWeightLoadLatency sets the number of cycles a weight-buffer refill
// stalls the PE array.
func (b Builder) WithWeightLoadLatency(cycles int) Builder {
	if cycles < 0 {
		panic("weight load latency cannot be negative")
	}
	b.weightLoadLatency = cycles
	return b
}

// WithDatapath replaces the functional model that produces results.
func (b Builder) WithDatapath(datapath accel.Kernel) Builder {
	b.datapath = datapath
	return b
}

func NewBuilder() Builder {
	return Builder{
		freq:              1 * sim.GHz,
		weightLoadLatency: 4,
		datapath:          Datapath{},
	}
}

// Build creates a core.
func (b Builder) Build(name string) *Core {
	if b.engine == nil {
		panic("core needs an engine")
	}

	c := &Core{
		datapath:          b.datapath,
		weightLoadLatency: b.weightLoadLatency,
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	return c
}
