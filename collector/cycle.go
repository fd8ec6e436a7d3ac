// ABOUTME: Stop-the-world collection cycle driving root enumeration from parallel workers
// ABOUTME: Places barriers between phases, then traces the closure through field scanning

// Package collector is the owning collection cycle for root enumeration.
// It stops the world, runs each rootset phase on every worker goroutine,
// joins them before the next phase, and traces everything reachable.
package collector

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Gorgija/JOE/fatal"
	"github.com/Gorgija/JOE/graph"
	"github.com/Gorgija/JOE/remset"
	"github.com/Gorgija/JOE/rootset"
	"github.com/Gorgija/JOE/scan"
	"github.com/Gorgija/JOE/segment"
	"github.com/Gorgija/JOE/threads"
)

// Env is everything a cycle collects over
type Env struct {
	Heap      graph.Graph
	Table     *threads.Table
	Statics   *segment.Segment
	Globals   *segment.Segment // nil when the VM has no global tables
	BootImage *segment.Segment
	Remsets   *remset.Set         // nil creates an empty set
	Code      rootset.CodeManager // nil creates a CodeCache
	Roots     rootset.Config
	Scan      scan.Options
}

// Cycle runs collections with a fixed set of worker goroutines
type Cycle struct {
	env      Env
	coord    *rootset.Coordinator
	dispatch *scan.Dispatcher
	scanner  *threads.StackScanner
	workers  []rootset.Worker
	log      *slog.Logger
}

// NewCycle registers n collector contexts in env.Table and wires the
// coordinator. n must be at least one.
func NewCycle(env Env, n int) *Cycle {
	if n < 1 {
		fatal.Throw("collection needs at least one worker", "workers", n)
	}
	if env.Remsets == nil {
		env.Remsets = remset.NewSet()
	}
	if env.Code == nil {
		env.Code = NewCodeCache()
	}
	log := env.Roots.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Cycle{
		env:      env,
		dispatch: scan.NewDispatcher(env.Heap, env.Scan),
		scanner:  &threads.StackScanner{},
		log:      log,
	}

	collab := rootset.Collaborators{
		Scanner: c.scanner,
		Flusher: env.Remsets,
		Code:    env.Code,
	}
	// Assign segments only when present so a missing one stays a nil interface.
	if env.Statics != nil {
		collab.Statics = env.Statics
	}
	if env.Globals != nil {
		collab.Globals = env.Globals
	}
	if env.BootImage != nil {
		collab.BootImage = env.BootImage
	}
	c.coord = rootset.New(env.Roots, collab)

	for i := 0; i < n; i++ {
		ctx := threads.NewContext(fmt.Sprintf("gc-%d", i), threads.Collector)
		env.Table.Register(ctx)
		c.workers = append(c.workers, rootset.Worker{Ordinal: i, Count: n, Context: ctx})
	}
	return c
}

// Coordinator returns the cycle's root set coordinator
func (c *Cycle) Coordinator() *rootset.Coordinator { return c.coord }

// Dispatcher returns the field scan dispatcher, for registering specialized routines
func (c *Cycle) Dispatcher() *scan.Dispatcher { return c.dispatch }

// Workers returns the collector workers
func (c *Cycle) Workers() []rootset.Worker { return c.workers }

// Result summarizes one collection
type Result struct {
	Roots map[graph.Source]int // Emissions by provenance, duplicates included
	Live  map[graph.ObjID]bool // Objects reached from the roots
	Phase rootset.Phase        // Episode phase at the end of the collection

	heap    graph.Graph
	rootIDs map[graph.ObjID]bool
}

// Explain returns up to max reference chains from id back to a root
func (r *Result) Explain(id graph.ObjID, max int) []graph.Path {
	if !r.Live[id] {
		return nil
	}
	return graph.PathsToRoots(r.heap, r.rootIDs, id, max)
}

// Run performs one stop-the-world collection. partial reports that the
// initial thread scan does not cover every stack, so obsolete compiled
// methods must be kept.
func (c *Cycle) Run(partial bool) *Result {
	world := c.env.Table.StopTheWorld()
	defer world.Resume()

	c.scanner.ResetWatermarks(c.env.Table)

	// Mutators are stopped: make their barrier logs visible first.
	c.env.Table.ForEach(func(ctx *threads.Context) {
		if !ctx.IsCollector() {
			c.env.Remsets.FlushRememberedSets(ctx)
		}
	})

	ep := rootset.NewEpisode(world)
	closure := NewClosure()

	c.coord.ResetThreadCounter()
	c.parallel(func(w rootset.Worker) { c.coord.ComputeStaticRoots(ep, w, closure) })
	c.parallel(func(w rootset.Worker) { c.coord.ComputeGlobalRoots(ep, w, closure) })
	c.parallel(func(w rootset.Worker) { c.coord.ComputeThreadRoots(ep, w, closure) })
	c.coord.NotifyInitialThreadScanComplete(c.workers[0], partial)
	c.parallel(func(w rootset.Worker) { c.coord.ComputeBootImageRoots(ep, w, closure) })
	ep.Finish()

	c.env.Remsets.Drain(closure)
	closure.Drain(func(id graph.ObjID) {
		obj := c.env.Heap.GetObject(id)
		if obj == nil {
			fatal.Throw("reference to an object outside the heap", "object", id)
		}
		c.dispatch.Scan(obj, closure)
	})

	res := &Result{
		Roots:   closure.counts,
		Live:    closure.marked,
		Phase:   ep.Phase(),
		heap:    c.env.Heap,
		rootIDs: closure.roots,
	}
	c.log.Info("collection complete",
		"workers", len(c.workers),
		"live", len(res.Live),
		"stack_roots", res.Roots[graph.SourceStack],
		"partial", partial)
	return res
}

// Rescan reports the thread roots that are new since the previous scan of
// each stack, as an incremental collector does between increments. The
// returned map counts emissions per object.
func (c *Cycle) Rescan() map[graph.ObjID]int {
	world := c.env.Table.StopTheWorld()
	defer world.Resume()

	ep := rootset.NewEpisode(world)
	var mu sync.Mutex
	found := make(map[graph.ObjID]int)
	sink := graph.SinkFunc(func(ref graph.Ref) {
		mu.Lock()
		defer mu.Unlock()
		found[ref.ID]++
	})

	c.coord.ResetThreadCounter()
	c.parallel(func(w rootset.Worker) { c.coord.ComputeNewThreadRoots(ep, w, sink) })
	ep.Finish()
	return found
}

// parallel runs fn on every worker and waits for all of them
func (c *Cycle) parallel(fn func(w rootset.Worker)) {
	var wg sync.WaitGroup
	for _, w := range c.workers {
		wg.Add(1)
		go func(w rootset.Worker) {
			defer wg.Done()
			fn(w)
		}(w)
	}
	wg.Wait()
}
