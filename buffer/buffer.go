// Package buffer manages the two scratch buffers that layers of the
// convolution stage alternate between.
package buffer

import (
	"fmt"
)

// Slot identifies a buffer that a layer reads from or writes to.
type Slot int

// Image is the caller's input image. A and B are the scratch slots.
const (
	Image Slot = iota
	A
	B
)

// Name returns the name of the slot.
func (s Slot) Name() string {
	switch s {
	case Image:
		return "Image"
	case A:
		return "A"
	case B:
		return "B"
	default:
		panic("invalid slot")
	}
}

func (s Slot) String() string {
	return s.Name()
}

// Bit is the ping-pong selector.
//
//	0: A (or the image at layer 0) is the input, B is the output
//	1: B is the input, A is the output
type Bit uint8

// Toggle flips the bit.
func (b Bit) Toggle() Bit {
	return b ^ 1
}

// Next returns the bit after the given layer completes. Layer 0 always
// writes B, so the bit after layer 0 is 1 regardless of its prior value.
func (b Bit) Next(layer int) Bit {
	if layer == 0 {
		return 1
	}

	return b.Toggle()
}

// Live returns the slot that holds the output of the last completed
// layer when the bit has been advanced past it.
func (b Bit) Live() Slot {
	if b == 0 {
		return A
	}

	return B
}

// Route returns the input and output slots of a layer.
func Route(layer int, bit Bit) (in, out Slot) {
	if layer == 0 {
		return Image, B
	}

	if bit == 0 {
		return A, B
	}

	return B, A
}

// An AllocationError reports that the scratch buffers could not be
// reserved.
type AllocationError struct {
	Slot      Slot
	Elements  int
	Available int
}

func (e *AllocationError) Error() string {
	if e.Available < 0 {
		return fmt.Sprintf("cannot allocate scratch buffer %s of %d elements",
			e.Slot, e.Elements)
	}

	return fmt.Sprintf(
		"cannot allocate scratch buffer %s of %d elements, %d available",
		e.Slot, e.Elements, e.Available)
}
