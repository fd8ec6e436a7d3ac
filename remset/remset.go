// ABOUTME: Remembered sets fed by per-context write-barrier logs
// ABOUTME: Flushing drains a context's log into the collector-visible edge set

// Package remset holds the write-barrier side of generational and region
// collection. Mutators append cross-region edges to their own Log without
// synchronization; FlushRememberedSets moves a context's entries into the
// shared Set, where the collector consumes them with Drain.
package remset

import (
	"sync"

	"github.com/Gorgija/JOE/graph"
	"github.com/Gorgija/JOE/threads"
)

// Edge is a recorded store of a reference to Dst into an object or slot Src
type Edge struct {
	Src graph.ObjID
	Dst graph.ObjID
}

// Log is one context's write-barrier buffer. Only its owning thread
// records into it, and a flush only happens while that thread is stopped
// or is the caller.
type Log struct {
	buf []Edge
}

// Record appends a barrier entry
func (l *Log) Record(src, dst graph.ObjID) {
	if dst == graph.Nil {
		return
	}
	l.buf = append(l.buf, Edge{Src: src, Dst: dst})
}

// Empty reports whether the log holds no entries
func (l *Log) Empty() bool { return len(l.buf) == 0 }

// Len returns the number of pending entries
func (l *Log) Len() int { return len(l.buf) }

// reset empties the log but keeps its capacity
func (l *Log) reset() { l.buf = l.buf[:0] }

// Set is the collector-visible remembered set plus the logs feeding it
type Set struct {
	mu      sync.Mutex
	logs    map[*threads.Context]*Log
	visible map[Edge]struct{}
	flushes int
}

// NewSet creates an empty remembered set
func NewSet() *Set {
	return &Set{
		logs:    make(map[*threads.Context]*Log),
		visible: make(map[Edge]struct{}),
	}
}

// Log returns the write-barrier log owned by ctx, creating it on first use
func (s *Set) Log(ctx *threads.Context) *Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[ctx]
	if !ok {
		l = &Log{}
		s.logs[ctx] = l
	}
	return l
}

// FlushRememberedSets makes ctx's pending barrier entries visible to the
// collector. Flushing an empty log changes nothing, and an edge that is
// already visible is not added twice.
func (s *Set) FlushRememberedSets(ctx *threads.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	l, ok := s.logs[ctx]
	if !ok || l.Empty() {
		return
	}
	for _, e := range l.buf {
		s.visible[e] = struct{}{}
	}
	l.reset()
}

// Len returns the number of visible edges
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visible)
}

// Flushes returns how many flushes have been requested
func (s *Set) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// Drain emits the target of each visible edge and clears the set.
// A target stored by several edges is emitted once per distinct edge.
func (s *Set) Drain(sink graph.Sink) {
	s.mu.Lock()
	edges := make([]Edge, 0, len(s.visible))
	for e := range s.visible {
		edges = append(edges, e)
	}
	clear(s.visible)
	s.mu.Unlock()

	for _, e := range edges {
		sink.Emit(graph.Ref{ID: e.Dst, Source: graph.SourceRemset})
	}
}
