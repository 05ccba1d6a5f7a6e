// Package perf measures how long kernel invocations take, in cycles.
package perf

import (
	"math"
	"time"

	"github.com/sarchlab/akita/v4/sim"
)

// A Counter measures one or more Start/Stop intervals and reports their
// average length in cycles.
type Counter interface {
	Start()
	Stop()
	AvgCycles() uint64
}

// Seconds converts a cycle count at the given frequency to seconds.
func Seconds(cycles uint64, freq sim.Freq) float64 {
	return float64(cycles) / float64(freq)
}

// WallClock counts host cycles from elapsed wall-clock time at a nominal
// frequency.
type WallClock struct {
	freq    sim.Freq
	now     func() time.Time
	start   time.Time
	total   time.Duration
	runs    int
	running bool
}

// NewWallClock creates a wall-clock counter that reports cycles at freq.
func NewWallClock(freq sim.Freq) *WallClock {
	return &WallClock{freq: freq, now: time.Now}
}

// Start begins an interval.
func (c *WallClock) Start() {
	if c.running {
		panic("counter started twice")
	}

	c.start = c.now()
	c.running = true
}

// Stop ends the current interval.
func (c *WallClock) Stop() {
	if !c.running {
		panic("counter stopped before it was started")
	}

	c.total += c.now().Sub(c.start)
	c.runs++
	c.running = false
}

// AvgCycles returns the average interval length in cycles.
func (c *WallClock) AvgCycles() uint64 {
	if c.runs == 0 {
		return 0
	}

	avg := c.total.Seconds() / float64(c.runs)

	return uint64(math.Round(avg * float64(c.freq)))
}

// SimCounter counts cycles of simulated time on an akita engine.
type SimCounter struct {
	engine  sim.Engine
	freq    sim.Freq
	start   sim.VTimeInSec
	total   sim.VTimeInSec
	runs    int
	running bool
}

// NewSimCounter creates a counter that reads the engine's virtual time and
// reports cycles at freq.
func NewSimCounter(engine sim.Engine, freq sim.Freq) *SimCounter {
	return &SimCounter{engine: engine, freq: freq}
}

// Start begins an interval.
func (c *SimCounter) Start() {
	if c.running {
		panic("counter started twice")
	}

	c.start = c.engine.CurrentTime()
	c.running = true
}

// Stop ends the current interval.
func (c *SimCounter) Stop() {
	if !c.running {
		panic("counter stopped before it was started")
	}

	c.total += c.engine.CurrentTime() - c.start
	c.runs++
	c.running = false
}

// AvgCycles returns the average interval length in cycles.
func (c *SimCounter) AvgCycles() uint64 {
	if c.runs == 0 {
		return 0
	}

	avg := float64(c.total) / float64(c.runs)

	return uint64(math.Round(avg * float64(c.freq)))
}
