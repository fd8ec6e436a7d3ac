// ABOUTME: Execution contexts: one schedulable thread with its role and stack
// ABOUTME: Root enumeration only reads slot, role, liveness and the stack snapshot

package threads

import (
	"sync/atomic"

	"github.com/Gorgija/JOE/graph"
)

// Role distinguishes mutator threads from collector workers
type Role uint8

const (
	Mutator Role = iota
	Collector
)

func (r Role) String() string {
	if r == Collector {
		return "collector"
	}
	return "mutator"
}

// Frame is one activation record on a modelled stack
type Frame struct {
	Method string        // Name of the executing method
	Code   graph.ObjID   // Compiled code object, Nil for native frames
	Slots  []graph.ObjID // Live reference slots from the frame's GC map
}

// Context represents one registered thread
type Context struct {
	Name string
	Role Role

	slot int
	dead atomic.Bool

	// Stack is ordered from the bottom (oldest) frame to the top.
	Stack     []Frame
	Registers []graph.ObjID

	// lowWater is the lowest stack depth reached since the last full scan.
	// Frames below it are unchanged and were already reported.
	lowWater int
}

// NewContext creates a live, unregistered context
func NewContext(name string, role Role) *Context {
	return &Context{Name: name, Role: role}
}

// Slot returns the context's table index, or 0 if it was never registered
func (c *Context) Slot() int { return c.slot }

// IsCollector reports whether the context is a collector worker
func (c *Context) IsCollector() bool { return c.Role == Collector }

// Alive reports whether the thread has not exited
func (c *Context) Alive() bool { return !c.dead.Load() }

// Exit marks the thread dead. Its slot stays occupied.
func (c *Context) Exit() { c.dead.Store(true) }

// Push adds a frame on top of the stack
func (c *Context) Push(f Frame) {
	c.Stack = append(c.Stack, f)
}

// Pop removes the top frame. Popping below the low-water mark lowers it,
// so the frame that replaces it is treated as new by an incremental scan.
func (c *Context) Pop() {
	if len(c.Stack) == 0 {
		return
	}
	c.Stack = c.Stack[:len(c.Stack)-1]
	if c.lowWater > len(c.Stack) {
		c.lowWater = len(c.Stack)
	}
}
