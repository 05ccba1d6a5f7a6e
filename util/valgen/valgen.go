// Some helpers using closures to generate values
package valgen

import "math/rand"

func MakeConstGen(constant float32) func() float32 {
	return func() float32 {
		return constant
	}
}

func MakeIncreasingGen(start, step float32) func() float32 {
	current := start - step
	return func() float32 {
		current += step
		return current
	}
}

// MakeUniformGen returns a seeded generator of values in [lo, hi).
func MakeUniformGen(seed int64, lo, hi float32) func() float32 {
	r := rand.New(rand.NewSource(seed))
	return func() float32 {
		return lo + r.Float32()*(hi-lo)
	}
}

// Fill writes generated values to every element of buf.
func Fill(buf []float32, gen func() float32) {
	for i := range buf {
		buf[i] = gen()
	}
}
