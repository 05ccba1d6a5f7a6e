package buffer

import "fmt"

// An Allocator hands out the memory behind the scratch slots.
type Allocator interface {
	Alloc(elements int) ([]float32, error)
	Free(buf []float32)
}

// HeapAllocator allocates from the Go heap without a limit.
type HeapAllocator struct{}

// Alloc returns a zeroed buffer.
func (HeapAllocator) Alloc(elements int) ([]float32, error) {
	if elements <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", elements)
	}

	return make([]float32, elements), nil
}

// Free does nothing; the garbage collector reclaims the buffer.
func (HeapAllocator) Free([]float32) {}

// ContiguousAllocator models a fixed-size region of device-visible memory.
// Allocations fail once the region is exhausted.
type ContiguousAllocator struct {
	capacity int
	used     int
}

// NewContiguousAllocator creates an allocator backed by a region of the
// given number of elements.
func NewContiguousAllocator(capacity int) *ContiguousAllocator {
	return &ContiguousAllocator{capacity: capacity}
}

// Alloc reserves a zeroed buffer from the region.
func (a *ContiguousAllocator) Alloc(elements int) ([]float32, error) {
	if elements <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", elements)
	}

	if a.used+elements > a.capacity {
		return nil, fmt.Errorf("region exhausted: %d of %d elements in use",
			a.used, a.capacity)
	}

	a.used += elements

	return make([]float32, elements), nil
}

// Free returns the buffer to the region.
func (a *ContiguousAllocator) Free(buf []float32) {
	a.used -= len(buf)
	if a.used < 0 {
		panic("contiguous allocator freed more than it allocated")
	}
}

// Available returns the number of elements that can still be allocated.
func (a *ContiguousAllocator) Available() int {
	return a.capacity - a.used
}
