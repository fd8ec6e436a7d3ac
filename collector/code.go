// ABOUTME: Minimal compiled-code manager tracking obsolete compiled methods
// ABOUTME: Obsolete methods are only reclaimed after a complete thread scan

package collector

import (
	"sync"

	"github.com/Gorgija/JOE/graph"
)

// CodeCache records compiled methods replaced by recompilation
type CodeCache struct {
	mu       sync.Mutex
	obsolete map[graph.ObjID]bool
	snipped  []graph.ObjID
	snips    int
}

// NewCodeCache creates an empty cache
func NewCodeCache() *CodeCache {
	return &CodeCache{obsolete: make(map[graph.ObjID]bool)}
}

// Obsolete marks a compiled method as replaced. Frames may still run it,
// so it stays until the next complete stack scan.
func (c *CodeCache) Obsolete(code graph.ObjID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.obsolete[code] = true
}

// SnipObsoleteCompiledMethods releases every obsolete compiled method
func (c *CodeCache) SnipObsoleteCompiledMethods() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snips++
	for code := range c.obsolete {
		c.snipped = append(c.snipped, code)
	}
	clear(c.obsolete)
}

// Snipped returns the compiled methods released so far
func (c *CodeCache) Snipped() []graph.ObjID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]graph.ObjID(nil), c.snipped...)
}

// Snips returns how many times reclamation was requested
func (c *CodeCache) Snips() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snips
}
