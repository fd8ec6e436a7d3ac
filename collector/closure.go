// ABOUTME: Trace sink shared by all collector workers during one collection
// ABOUTME: Marks each discovered object once and queues it for field scanning

package collector

import (
	"sync"

	"github.com/Gorgija/JOE/graph"
)

// Closure is the transitive-closure sink. Emit is safe for concurrent use.
type Closure struct {
	mu     sync.Mutex
	marked map[graph.ObjID]bool
	queue  []graph.ObjID
	roots  map[graph.ObjID]bool
	counts map[graph.Source]int
}

// NewClosure creates an empty closure
func NewClosure() *Closure {
	return &Closure{
		marked: make(map[graph.ObjID]bool),
		roots:  make(map[graph.ObjID]bool),
		counts: make(map[graph.Source]int),
	}
}

// Emit marks ref.ID and queues it if it was not already marked.
// Every emission is counted by provenance, duplicates included.
func (c *Closure) Emit(ref graph.Ref) {
	if ref.ID == graph.Nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[ref.Source]++
	if ref.Source != graph.SourceField {
		c.roots[ref.ID] = true
	}
	if !c.marked[ref.ID] {
		c.marked[ref.ID] = true
		c.queue = append(c.queue, ref.ID)
	}
}

// Drain pops queued objects and hands each to scan until the queue is empty.
// scan usually emits back into the closure.
func (c *Closure) Drain(scan func(id graph.ObjID)) {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		id := c.queue[len(c.queue)-1]
		c.queue = c.queue[:len(c.queue)-1]
		c.mu.Unlock()

		scan(id)
	}
}

// Marked reports whether id has been reached
func (c *Closure) Marked(id graph.ObjID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.marked[id]
}
