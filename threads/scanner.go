// ABOUTME: Reference thread root scanner over modelled stacks and registers
// ABOUTME: Supports complete scans and new-roots-only rescans within one collection

package threads

import "github.com/Gorgija/JOE/graph"

// StackScanner walks a context's registers and frames and emits every
// non-nil reference slot. It keeps a per-context low-water mark so that an
// incremental rescan can skip frames that have not run since the last scan.
type StackScanner struct{}

// ScanThread reports the roots held by ctx.
//
// With processCodeLocations set, each frame's compiled code object is also
// reported, since a moving collector has to relocate it. With
// newRootsSufficient set, frames that have stayed below the low-water mark
// since the previous scan are skipped; the frame that was on top at that
// scan may have been executing, so it is always rescanned.
func (s *StackScanner) ScanThread(ctx *Context, sink graph.Sink, processCodeLocations, newRootsSufficient bool) {
	for _, ref := range ctx.Registers {
		if ref != graph.Nil {
			sink.Emit(graph.Ref{ID: ref, Source: graph.SourceStack})
		}
	}

	from := 0
	if newRootsSufficient && ctx.lowWater > 0 {
		from = ctx.lowWater - 1
	}
	for i := from; i < len(ctx.Stack); i++ {
		f := &ctx.Stack[i]
		for _, ref := range f.Slots {
			if ref != graph.Nil {
				sink.Emit(graph.Ref{ID: ref, Source: graph.SourceStack})
			}
		}
		if processCodeLocations && f.Code != graph.Nil {
			sink.Emit(graph.Ref{ID: f.Code, Source: graph.SourceCode})
		}
	}

	ctx.lowWater = len(ctx.Stack)
}

// ResetWatermarks forgets earlier scans of every context in t, so the next
// incremental scan is complete. The owning cycle calls it once per collection.
func (s *StackScanner) ResetWatermarks(t *Table) {
	t.ForEach(func(ctx *Context) {
		ctx.lowWater = 0
	})
}
