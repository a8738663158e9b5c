package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

/**
 * Ordered teardown registry. Every GPU object registers its destructor at
 * creation time; shutdown walks the registry in reverse so nothing is
 * destroyed before the objects depending on it. Descriptor pools, layouts
 * and acceleration structures go through here like everything else, so a
 * forgotten Release shows up in the leak report instead of a validation
 * layer message at exit.
 */

type entry struct {
	id      uuid.UUID
	kind    string
	name    string
	destroy func()
}

type Registry struct {
	mutex  sync.Mutex
	stack  []entry
	closed bool
}

func New() *Registry {
	return &Registry{}
}

// Track registers a destructor and returns its handle. Destructors run in
// reverse registration order during TeardownAll. Tracking after teardown is
// a usage error.
func (r *Registry) Track(kind, name string, destroy func()) (uuid.UUID, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return uuid.Nil, fmt.Errorf("registry already torn down, cannot track %s %q: %w",
			kind, name, core.ErrTornDown)
	}
	e := entry{id: uuid.New(), kind: kind, name: name, destroy: destroy}
	r.stack = append(r.stack, e)
	return e.id, nil
}

// Release runs and removes a single entry out of order, for objects with a
// shorter lifetime than the device (a superseded acceleration structure, a
// swapchain being recreated). Releasing an unknown or already released id is
// a usage error.
func (r *Registry) Release(id uuid.UUID) error {
	r.mutex.Lock()
	for i := len(r.stack) - 1; i >= 0; i-- {
		if r.stack[i].id != id {
			continue
		}
		e := r.stack[i]
		r.stack = append(r.stack[:i], r.stack[i+1:]...)
		r.mutex.Unlock()
		e.destroy()
		return nil
	}
	r.mutex.Unlock()
	return fmt.Errorf("unknown registry entry %s: %w", id, core.ErrInvalidUsage)
}

// TeardownAll destroys every tracked object in reverse registration order,
// exactly once, and closes the registry. Subsequent calls are no-ops.
func (r *Registry) TeardownAll() {
	r.mutex.Lock()
	if r.closed {
		r.mutex.Unlock()
		return
	}
	r.closed = true
	stack := r.stack
	r.stack = nil
	r.mutex.Unlock()

	for i := len(stack) - 1; i >= 0; i-- {
		e := stack[i]
		core.LogDebug("destroying %s %q", e.kind, e.name)
		e.destroy()
	}
}

// Len reports how many objects are currently tracked.
func (r *Registry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.stack)
}

// Kinds returns the tracked kinds in registration order, for leak reports
// and tests.
func (r *Registry) Kinds() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	kinds := make([]string, len(r.stack))
	for i, e := range r.stack {
		kinds[i] = e.kind
	}
	return kinds
}
