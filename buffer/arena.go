package buffer

import "log/slog"

// An Arena owns the two scratch slots for one inference pass.
type Arena struct {
	alloc    Allocator
	slots    [2][]float32
	released bool
}

// Acquire reserves two slots of the given size. If the second slot cannot
// be reserved, the first one is returned to the allocator before the
// error is reported.
func Acquire(alloc Allocator, elements int) (*Arena, error) {
	a := &Arena{alloc: alloc}

	for i, slot := range []Slot{A, B} {
		buf, err := alloc.Alloc(elements)
		if err != nil {
			for j := 0; j < i; j++ {
				alloc.Free(a.slots[j])
			}

			return nil, newAllocationError(alloc, slot, elements)
		}

		a.slots[i] = buf
	}

	slog.Debug("ScratchAcquire", "Elements", elements)

	return a, nil
}

func newAllocationError(
	alloc Allocator,
	slot Slot,
	elements int,
) *AllocationError {
	available := -1
	if c, ok := alloc.(*ContiguousAllocator); ok {
		available = c.Available()
	}

	return &AllocationError{
		Slot:      slot,
		Elements:  elements,
		Available: available,
	}
}

// Release returns both slots to the allocator. It must be called exactly
// once.
func (a *Arena) Release() {
	if a.released {
		panic("scratch buffers released twice")
	}

	a.alloc.Free(a.slots[0])
	a.alloc.Free(a.slots[1])
	a.slots = [2][]float32{}
	a.released = true

	slog.Debug("ScratchRelease")
}

// Size returns the number of elements in each slot.
func (a *Arena) Size() int {
	return len(a.slots[0])
}

// Get returns the buffer of a scratch slot.
func (a *Arena) Get(s Slot) []float32 {
	if a.released {
		panic("scratch buffers used after release")
	}

	switch s {
	case A:
		return a.slots[0]
	case B:
		return a.slots[1]
	default:
		panic("not a scratch slot")
	}
}

// Buffers resolves the input and output buffers of a layer.
func (a *Arena) Buffers(
	layer int,
	bit Bit,
	image []float32,
) (in, out []float32) {
	inSlot, outSlot := Route(layer, bit)

	if inSlot == Image {
		in = image
	} else {
		in = a.Get(inSlot)
	}

	return in, a.Get(outSlot)
}
