// ABOUTME: Specialized scan routines built around a reference filter
// ABOUTME: Used by tracers that only care about a subset of edges

package scan

import "github.com/Gorgija/JOE/graph"

// Filtered returns a specialized routine that walks the layout like the
// generic scan but emits only references accepted by keep, for example
// references into the nursery during a write-barrier-filtered scan.
func Filtered(keep func(graph.ObjID) bool) Routine {
	return func(obj *graph.Object, t *graph.Type, sink graph.Sink) {
		t.Layout.ForEachRef(obj.Words, func(_ int, ref graph.ObjID) {
			if keep(ref) {
				sink.Emit(graph.Ref{ID: ref, Source: graph.SourceField})
			}
		})
	}
}
