package frame

import (
	"fmt"
	"time"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

// Waiter blocks until the GPU work fenced by a slot has retired. The vulkan
// backend implements it over a fence; tests implement it in memory.
type Waiter interface {
	Wait(timeout time.Duration) error
	Reset() error
}

// Slot is one frame in flight: its fence and the index handed to per-frame
// resources (command buffer, semaphores).
type Slot struct {
	Index  int
	Waiter Waiter

	inFlight bool
}

// Ring cycles through frames in flight. Begin blocks on the slot's fence
// before handing it out so resources from the same slot N frames ago are no
// longer referenced by the GPU.
type Ring struct {
	slots   []Slot
	current int
	timeout time.Duration
}

const DEFAULT_FENCE_TIMEOUT = 5 * time.Second

func NewRing(waiters []Waiter, timeout time.Duration) (*Ring, error) {
	if len(waiters) == 0 {
		return nil, fmt.Errorf("frame ring needs at least one slot: %w", core.ErrInvalidUsage)
	}
	if timeout <= 0 {
		timeout = DEFAULT_FENCE_TIMEOUT
	}
	r := &Ring{slots: make([]Slot, len(waiters)), timeout: timeout}
	for i, w := range waiters {
		r.slots[i] = Slot{Index: i, Waiter: w}
	}
	return r, nil
}

// Size reports the number of frames in flight.
func (r *Ring) Size() int {
	return len(r.slots)
}

// Begin waits for the current slot's previous submission to retire, resets
// its fence and returns the slot. A fence that never signals within the
// timeout means the device stopped making progress.
func (r *Ring) Begin() (*Slot, error) {
	slot := &r.slots[r.current]
	if slot.inFlight {
		if err := slot.Waiter.Wait(r.timeout); err != nil {
			return nil, fmt.Errorf("frame %d fence wait failed: %w", slot.Index, err)
		}
		if err := slot.Waiter.Reset(); err != nil {
			return nil, fmt.Errorf("frame %d fence reset failed: %w", slot.Index, err)
		}
		slot.inFlight = false
	}
	return slot, nil
}

// End marks the slot as submitted and advances the ring.
func (r *Ring) End(slot *Slot) {
	slot.inFlight = true
	r.current = (r.current + 1) % len(r.slots)
}

// WaitIdle drains every in-flight slot, for shutdown and swapchain
// recreation.
func (r *Ring) WaitIdle() error {
	for i := range r.slots {
		slot := &r.slots[i]
		if !slot.inFlight {
			continue
		}
		if err := slot.Waiter.Wait(r.timeout); err != nil {
			return fmt.Errorf("frame %d fence wait failed during drain: %w", slot.Index, err)
		}
		if err := slot.Waiter.Reset(); err != nil {
			return fmt.Errorf("frame %d fence reset failed during drain: %w", slot.Index, err)
		}
		slot.inFlight = false
	}
	return nil
}
