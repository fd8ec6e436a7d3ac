// ABOUTME: Collaborators the coordinator consumes but does not implement
// ABOUTME: Static sources, the thread scanner, remembered-set flusher and code manager

package rootset

import (
	"github.com/Gorgija/JOE/graph"
	"github.com/Gorgija/JOE/threads"
)

// RootSource reports references held outside the heap. ScanRoots is called
// once by each of count workers and must report every root exactly once
// across them.
type RootSource interface {
	ScanRoots(ordinal, count int, sink graph.Sink)
}

// ThreadScanner reports the roots on one context's stack and registers
type ThreadScanner interface {
	ScanThread(ctx *threads.Context, sink graph.Sink, processCodeLocations, newRootsSufficient bool)
}

// Flusher drains a context's write-barrier log into collector-visible state
type Flusher interface {
	FlushRememberedSets(ctx *threads.Context)
}

// CodeManager owns compiled code metadata
type CodeManager interface {
	// SnipObsoleteCompiledMethods lets stale compiled methods be reclaimed
	// once no stack can refer to them.
	SnipObsoleteCompiledMethods()
}

// Worker identifies the collector thread calling a phase operation
type Worker struct {
	Ordinal int              // 0..Count-1
	Count   int              // Number of workers in this collection
	Context *threads.Context // The worker's own execution context
}
