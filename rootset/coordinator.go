// ABOUTME: Root set coordinator: one operation per root enumeration phase
// ABOUTME: Thread roots are partitioned among parallel workers with a shared WorkCounter

// Package rootset sequences root discovery for a tracing collector. Every
// collector worker calls the same phase operations; the owning collection
// cycle decides which phases run and places barriers between them.
package rootset

import (
	"io"
	"log/slog"

	"github.com/Gorgija/JOE/fatal"
	"github.com/Gorgija/JOE/graph"
)

// Config holds build and architecture properties of the running VM
type Config struct {
	// ProcessCodeLocations is set when compiled code can move, so stack
	// scans must report the code objects frames execute in.
	ProcessCodeLocations bool

	// ReturnBarrier is set when the architecture can install return
	// barriers, which collectors use to bound incremental stack rescans.
	ReturnBarrier bool

	// Logger receives debug records; nil discards them.
	Logger *slog.Logger
}

// Collaborators are the subsystems the coordinator calls into.
// Globals may be nil: some configurations have no global roots.
type Collaborators struct {
	Statics   RootSource
	Globals   RootSource
	BootImage RootSource
	Scanner   ThreadScanner
	Flusher   Flusher
	Code      CodeManager
}

// Coordinator runs root enumeration phases for one collector
type Coordinator struct {
	threadCounter WorkCounter

	cfg    Config
	collab Collaborators
	log    *slog.Logger
}

// New creates a coordinator. Missing required collaborators are fatal.
func New(cfg Config, collab Collaborators) *Coordinator {
	switch {
	case collab.Statics == nil:
		fatal.Throw("coordinator needs a statics source")
	case collab.BootImage == nil:
		fatal.Throw("coordinator needs a boot image source")
	case collab.Scanner == nil:
		fatal.Throw("coordinator needs a thread scanner")
	case collab.Flusher == nil:
		fatal.Throw("coordinator needs a remembered-set flusher")
	case collab.Code == nil:
		fatal.Throw("coordinator needs a code manager")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{cfg: cfg, collab: collab, log: log}
}

// SupportsReturnBarrier reports whether return barriers are available
func (c *Coordinator) SupportsReturnBarrier() bool {
	return c.cfg.ReturnBarrier
}

// ResetThreadCounter must be called once per episode, before the first
// worker enters ComputeThreadRoots or ComputeNewThreadRoots, and published
// to the workers by a barrier.
func (c *Coordinator) ResetThreadCounter() {
	c.threadCounter.Reset()
}

// ComputeStaticRoots reports the worker's share of class static slots.
// It only discovers references; nothing is copied or forwarded.
func (c *Coordinator) ComputeStaticRoots(ep *Episode, w Worker, sink graph.Sink) {
	ep.enter(ScanningStatics)
	c.collab.Statics.ScanRoots(w.Ordinal, w.Count, sink)
}

// ComputeGlobalRoots reports the worker's share of VM-internal global
// tables. Without a global source it does nothing.
func (c *Coordinator) ComputeGlobalRoots(ep *Episode, w Worker, sink graph.Sink) {
	ep.enter(ScanningGlobals)
	if c.collab.Globals == nil {
		return
	}
	c.collab.Globals.ScanRoots(w.Ordinal, w.Count, sink)
}

// ComputeBootImageRoots reports the worker's share of boot image slots
func (c *Coordinator) ComputeBootImageRoots(ep *Episode, w Worker, sink graph.Sink) {
	ep.enter(ScanningBootImage)
	c.collab.BootImage.ScanRoots(w.Ordinal, w.Count, sink)
}

// ComputeThreadRoots completely scans the stacks of the mutator threads
// this worker claims
func (c *Coordinator) ComputeThreadRoots(ep *Episode, w Worker, sink graph.Sink) {
	c.computeThreadRoots(ep, w, sink, false)
}

// ComputeNewThreadRoots is ComputeThreadRoots for a rescan within the same
// collection: roots already reported by an earlier scan may be skipped
func (c *Coordinator) ComputeNewThreadRoots(ep *Episode, w Worker, sink graph.Sink) {
	c.computeThreadRoots(ep, w, sink, true)
}

func (c *Coordinator) computeThreadRoots(ep *Episode, w Worker, sink graph.Sink, newRootsSufficient bool) {
	ep.enter(ScanningThreads)
	world := ep.World()
	table := world.Table()
	n := world.Len()

	for {
		i := c.threadCounter.Increment()
		if i > n {
			break
		}

		ctx := table.Get(i)
		if ctx == nil || !ctx.Alive() || ctx.IsCollector() {
			continue
		}
		c.log.Debug("scanning thread", "slot", ctx.Slot(), "index", i, "worker", w.Ordinal)

		c.collab.Scanner.ScanThread(ctx, sink, c.cfg.ProcessCodeLocations, newRootsSufficient)
	}

	if got := table.Len(); got != n {
		fatal.Throw("context table changed during root enumeration", "frozen", n, "now", got)
	}

	// Flush remset entries generated by this worker's scanning.
	c.collab.Flusher.FlushRememberedSets(w.Context)
}

// NotifyInitialThreadScanComplete is called by exactly one worker once
// every worker has finished the first complete thread scan of a collection.
// After a full (non-partial) scan no stack can refer to obsolete compiled
// methods, so the code manager may reclaim them.
func (c *Coordinator) NotifyInitialThreadScanComplete(w Worker, partialScan bool) {
	if !partialScan {
		c.collab.Code.SnipObsoleteCompiledMethods()
	}
	// Flush remset entries generated during the above.
	c.collab.Flusher.FlushRememberedSets(w.Context)
}
