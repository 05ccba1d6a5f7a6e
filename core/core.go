// Package core models the convolution engine of the accelerator.
package core

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/convpipe/accel"
)

type job struct {
	call  *accel.ConvCall
	beats int
	done  int
}

// Core is a cycle-level model of the convolution engine. Each beat streams
// one row of one input section through the PE array for one output
// section. Refilling the weight buffer stalls the array for a fixed
// number of beats. Results are produced by the functional datapath when
// the last beat retires.
type Core struct {
	*sim.TickingComponent

	datapath          accel.Kernel
	weightLoadLatency int

	job     *job
	retired uint64
}

// Beats returns the number of cycles the engine spends on a call.
func Beats(call *accel.ConvCall, weightLoadLatency int) int {
	group := 1 << call.WeightShift
	loads := (call.InputSections + group - 1) / group

	return call.OutputSections *
		(call.InputSections*call.Rows + loads*weightLoadLatency)
}

// Convolve runs the call on the engine and blocks until it retires.
func (c *Core) Convolve(call *accel.ConvCall) error {
	if err := call.Validate(); err != nil {
		return err
	}

	if c.job != nil {
		panic("convolution engine is busy")
	}

	c.job = &job{
		call:  call,
		beats: Beats(call, c.weightLoadLatency),
	}

	Trace("Kernel",
		"Behavior", "Start",
		"Layer", call.Layer,
		"Beats", c.job.beats,
		"Time", float64(c.Engine.CurrentTime()*1e9),
	)

	// The last tick of the previous job already ran at the current time,
	// so the first beat of this one goes on the next cycle.
	c.TickLater()
	err := c.Engine.Run()

	j := c.job
	c.job = nil

	if err != nil {
		return fmt.Errorf("layer %d: engine failed: %w", call.Layer, err)
	}

	if j.done < j.beats {
		return fmt.Errorf("layer %d: engine stopped after %d of %d beats",
			call.Layer, j.done, j.beats)
	}

	Trace("Kernel",
		"Behavior", "Retire",
		"Layer", call.Layer,
		"Time", float64(c.Engine.CurrentTime()*1e9),
	)

	return c.datapath.Convolve(call)
}

// Tick retires one beat of the current job.
func (c *Core) Tick() (madeProgress bool) {
	if c.job == nil || c.job.done >= c.job.beats {
		return false
	}

	c.job.done++
	c.retired++

	return true
}

// RetiredBeats returns the number of beats retired since the core was
// built.
func (c *Core) RetiredBeats() uint64 {
	return c.retired
}
