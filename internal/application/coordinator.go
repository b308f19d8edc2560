package application

import (
	"sync"

	"github.com/bnema/lonewatch/internal/domain"
)

// Coordinator owns the in-memory state and serializes every access to it.
// Callbacks run with the lock held and must not block or perform I/O.
type Coordinator struct {
	mu    sync.Mutex
	state *domain.State
	// dirty is set by every mutating Update and cleared only after a
	// successful flush of the generation it was set in.
	dirty      bool
	generation uint64
}

func NewCoordinator(state *domain.State) *Coordinator {
	if state == nil {
		state = domain.NewState()
	}

	return &Coordinator{state: state}
}

// Update runs fn under the lock; fn reports whether it changed the state.
func (c *Coordinator) Update(fn func(state *domain.State) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fn(c.state) {
		c.dirty = true
		c.generation++
	}
}

func (c *Coordinator) View(fn func(state *domain.State)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fn(c.state)
}

func (c *Coordinator) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.dirty
}

// Replace swaps in a freshly restored state, which counts as persisted.
func (c *Coordinator) Replace(state *domain.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = state
	c.dirty = false
	c.generation++
}

func (c *Coordinator) pendingSnapshot() (domain.Snapshot, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return domain.Snapshot{}, c.generation, false
	}

	return c.state.Snapshot(), c.generation, true
}

// markClean clears the dirty flag unless something changed after generation
// was snapshotted.
func (c *Coordinator) markClean(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != generation {
		return false
	}

	c.dirty = false
	return true
}
