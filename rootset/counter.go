// ABOUTME: Shared counter that hands out units of root scanning work
// ABOUTME: Every Increment between two Resets returns a distinct value from 1 upwards

package rootset

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// WorkCounter partitions indivisible work items among parallel workers.
// Each caller claims the next index with Increment until the index passes
// the number of items. The cell sits on its own cache line since every
// worker hammers it during a phase.
type WorkCounter struct {
	_ cpu.CacheLinePad
	n atomic.Int64
	_ cpu.CacheLinePad
}

// Reset sets the counter back to zero. The caller must publish the reset
// to all workers (a phase barrier does) before any of them increments.
func (c *WorkCounter) Reset() {
	c.n.Store(0)
}

// Increment atomically adds one and returns the new value
func (c *WorkCounter) Increment() int {
	return int(c.n.Add(1))
}
