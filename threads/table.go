// ABOUTME: Append-only table of registered execution contexts, indexed 1..N
// ABOUTME: StopTheWorld returns the guard token that freezes the table for an episode

package threads

import (
	"sync"

	"github.com/Gorgija/JOE/fatal"
)

// Table holds every registered context. Slots are never reused.
type Table struct {
	mu       sync.RWMutex
	contexts []*Context // contexts[0] is unused
	stopped  *World
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{contexts: make([]*Context, 1)}
}

// Register appends ctx and returns its slot.
// Registering while the world is stopped changes the table's shape under a
// running root enumeration and is fatal.
func (t *Table) Register(ctx *Context) int {
	t.mu.Lock()
	if t.stopped != nil {
		t.mu.Unlock()
		fatal.Throw("context registered while the world is stopped", "name", ctx.Name)
	}
	ctx.slot = len(t.contexts)
	t.contexts = append(t.contexts, ctx)
	t.mu.Unlock()
	return ctx.slot
}

// Get returns the context in slot i, or nil if i is out of range
func (t *Table) Get(i int) *Context {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i <= 0 || i >= len(t.contexts) {
		return nil
	}
	return t.contexts[i]
}

// Len returns the number of registered contexts
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.contexts) - 1
}

// ForEach calls fn for every registered context in slot order
func (t *Table) ForEach(fn func(*Context)) {
	t.mu.RLock()
	contexts := t.contexts[1:]
	t.mu.RUnlock()
	for _, ctx := range contexts {
		fn(ctx)
	}
}

// StopTheWorld freezes the table and returns the guard for one episode.
// Stopping an already stopped world is fatal.
func (t *Table) StopTheWorld() *World {
	t.mu.Lock()
	if t.stopped != nil {
		t.mu.Unlock()
		fatal.Throw("world already stopped")
	}
	w := &World{table: t, n: len(t.contexts) - 1}
	t.stopped = w
	t.mu.Unlock()
	return w
}

// World is proof that the table is frozen. Phase operations require it.
type World struct {
	table *Table
	n     int
}

// Len returns the number of contexts when the world was stopped
func (w *World) Len() int { return w.n }

// Table returns the frozen table
func (w *World) Table() *Table { return w.table }

// Resume lifts the guard. Resuming twice is harmless.
func (w *World) Resume() {
	t := w.table
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped == w {
		t.stopped = nil
	}
}
