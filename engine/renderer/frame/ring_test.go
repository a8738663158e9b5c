package frame

import (
	"errors"
	"testing"
	"time"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

type fakeFence struct {
	waits  int
	resets int
	fail   error
}

func (f *fakeFence) Wait(timeout time.Duration) error {
	f.waits++
	return f.fail
}

func (f *fakeFence) Reset() error {
	f.resets++
	return nil
}

func newTestRing(t *testing.T, n int) (*Ring, []*fakeFence) {
	t.Helper()
	fences := make([]*fakeFence, n)
	waiters := make([]Waiter, n)
	for i := range fences {
		fences[i] = &fakeFence{}
		waiters[i] = fences[i]
	}
	ring, err := NewRing(waiters, time.Second)
	if err != nil {
		t.Fatalf("NewRing failed: %v", err)
	}
	return ring, fences
}

func TestRingCycles(t *testing.T) {
	ring, fences := newTestRing(t, 2)

	// First pass through the ring: no prior submission, no waits.
	for want := 0; want < 2; want++ {
		slot, err := ring.Begin()
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		if slot.Index != want {
			t.Fatalf("slot index = %d, want %d", slot.Index, want)
		}
		ring.End(slot)
	}
	if fences[0].waits != 0 || fences[1].waits != 0 {
		t.Fatal("first pass should not wait on any fence")
	}

	// Second pass reuses slot 0 and must wait for it.
	slot, err := ring.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if slot.Index != 0 {
		t.Fatalf("slot index = %d, want 0", slot.Index)
	}
	if fences[0].waits != 1 || fences[0].resets != 1 {
		t.Fatalf("slot 0 fence waits=%d resets=%d, want 1/1", fences[0].waits, fences[0].resets)
	}
}

func TestRingWaitFailure(t *testing.T) {
	ring, fences := newTestRing(t, 1)
	slot, err := ring.Begin()
	if err != nil {
		t.Fatal(err)
	}
	ring.End(slot)

	fences[0].fail = core.ErrDeviceLost
	if _, err := ring.Begin(); !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("expected ErrDeviceLost to surface, got %v", err)
	}
}

func TestRingWaitIdle(t *testing.T) {
	ring, fences := newTestRing(t, 3)
	for i := 0; i < 2; i++ {
		slot, err := ring.Begin()
		if err != nil {
			t.Fatal(err)
		}
		ring.End(slot)
	}

	if err := ring.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}
	if fences[0].waits != 1 || fences[1].waits != 1 || fences[2].waits != 0 {
		t.Fatalf("WaitIdle waits = %d/%d/%d, want 1/1/0",
			fences[0].waits, fences[1].waits, fences[2].waits)
	}

	// Drained slots do not wait again on reuse.
	slot, err := ring.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if slot.Index != 2 {
		t.Fatalf("ring position moved during drain: slot %d", slot.Index)
	}
}

func TestRingEmpty(t *testing.T) {
	if _, err := NewRing(nil, 0); !errors.Is(err, core.ErrInvalidUsage) {
		t.Fatalf("expected ErrInvalidUsage, got %v", err)
	}
}
