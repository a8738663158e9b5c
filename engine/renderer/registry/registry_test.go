package registry

import (
	"errors"
	"testing"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

func TestTeardownReverseOrder(t *testing.T) {
	r := New()
	var destroyed []string
	track := func(kind, name string) {
		if _, err := r.Track(kind, name, func() {
			destroyed = append(destroyed, name)
		}); err != nil {
			t.Fatalf("Track(%s) failed: %v", name, err)
		}
	}

	track("instance", "instance")
	track("device", "device")
	track("buffer", "vertex buffer")
	track("acceleration_structure", "blas")
	track("acceleration_structure", "tlas")

	if r.Len() != 5 {
		t.Fatalf("Len = %d, want 5", r.Len())
	}

	r.TeardownAll()

	want := []string{"tlas", "blas", "vertex buffer", "device", "instance"}
	if len(destroyed) != len(want) {
		t.Fatalf("destroyed %d objects, want %d", len(destroyed), len(want))
	}
	for i := range want {
		if destroyed[i] != want[i] {
			t.Fatalf("teardown order %v, want %v", destroyed, want)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("registry not empty after teardown: %d", r.Len())
	}
}

func TestTeardownExactlyOnce(t *testing.T) {
	r := New()
	count := 0
	if _, err := r.Track("fence", "frame fence", func() { count++ }); err != nil {
		t.Fatal(err)
	}
	r.TeardownAll()
	r.TeardownAll()
	if count != 1 {
		t.Fatalf("destructor ran %d times, want 1", count)
	}
}

func TestTrackAfterTeardown(t *testing.T) {
	r := New()
	r.TeardownAll()
	if _, err := r.Track("buffer", "late", func() {}); !errors.Is(err, core.ErrTornDown) {
		t.Fatalf("expected ErrTornDown, got %v", err)
	}
}

func TestReleaseOutOfOrder(t *testing.T) {
	r := New()
	var destroyed []string
	id, err := r.Track("acceleration_structure", "old tlas", func() {
		destroyed = append(destroyed, "old tlas")
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Track("acceleration_structure", "new tlas", func() {
		destroyed = append(destroyed, "new tlas")
	}); err != nil {
		t.Fatal(err)
	}

	if err := r.Release(id); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if len(destroyed) != 1 || destroyed[0] != "old tlas" {
		t.Fatalf("release destroyed %v", destroyed)
	}
	if err := r.Release(id); !errors.Is(err, core.ErrInvalidUsage) {
		t.Fatalf("double release should fail, got %v", err)
	}

	r.TeardownAll()
	if len(destroyed) != 2 || destroyed[1] != "new tlas" {
		t.Fatalf("teardown after release destroyed %v", destroyed)
	}
}

func TestKinds(t *testing.T) {
	r := New()
	r.Track("buffer", "a", func() {})
	r.Track("image", "b", func() {})
	kinds := r.Kinds()
	if len(kinds) != 2 || kinds[0] != "buffer" || kinds[1] != "image" {
		t.Fatalf("Kinds = %v", kinds)
	}
}
