package verify

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/sarchlab/convpipe/config"
)

// A Checker inspects the buffer that holds a layer's output.
type Checker interface {
	Check(buf []float32, layer int, pool bool) error
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(buf []float32, layer int, pool bool) error

// Check calls f.
func (f CheckerFunc) Check(buf []float32, layer int, pool bool) error {
	return f(buf, layer, pool)
}

// A ValidationWarning reports a failed buffer check. It never stops a pass.
type ValidationWarning struct {
	Layer int
	Err   error
}

func (w *ValidationWarning) Error() string {
	return fmt.Sprintf("layer %d: buffer check failed: %v", w.Layer, w.Err)
}

func (w *ValidationWarning) Unwrap() error {
	return w.Err
}

// BufferChecker checks that a layer's output region holds finite,
// non-negative activations. When Golden holds reference data for the
// layer, the region must also match it within Tolerance.
type BufferChecker struct {
	Topology  *config.Topology
	Golden    map[int][]float32
	Tolerance float64
}

// Check inspects the output region of the layer.
func (c BufferChecker) Check(buf []float32, layer int, pool bool) error {
	if layer < 0 || layer >= c.Topology.NumConvLayers() {
		return fmt.Errorf("no layer %d in the topology", layer)
	}

	if pool != c.Topology.Pool[layer] {
		return fmt.Errorf("pooling flag %v disagrees with the topology", pool)
	}

	n := c.Topology.OutputElements(layer)
	if len(buf) < n {
		return fmt.Errorf("buffer holds %d elements, layer output needs %d",
			len(buf), n)
	}

	if n == 0 {
		return nil
	}

	region := make([]float64, n)
	for i, v := range buf[:n] {
		region[i] = float64(v)
	}

	if floats.HasNaN(region) {
		return fmt.Errorf("output contains NaN")
	}

	if hi := floats.Max(region); math.IsInf(hi, 1) {
		return fmt.Errorf("output contains +Inf")
	}

	if lo := floats.Min(region); lo < 0 {
		return fmt.Errorf("output contains negative activation %g", lo)
	}

	golden, ok := c.Golden[layer]
	if !ok {
		return nil
	}

	if len(golden) != n {
		return fmt.Errorf("golden data holds %d elements, layer output has %d",
			len(golden), n)
	}

	ref := make([]float64, n)
	for i, v := range golden {
		ref[i] = float64(v)
	}

	if !floats.EqualApprox(region, ref, c.Tolerance) {
		diff := make([]float64, n)
		floats.SubTo(diff, region, ref)
		return fmt.Errorf("output differs from golden data by up to %g",
			floats.Norm(diff, math.Inf(1)))
	}

	return nil
}
