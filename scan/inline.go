// ABOUTME: Hand-inlined scan routines for hot, fixed-shape type codes
// ABOUTME: Each routine knows its shape statically and never reads the layout

package scan

import "github.com/Gorgija/JOE/graph"

// Reserved type codes for shapes that have an inline routine.
// A heap must describe these codes with the layout returned by Layouts.
const (
	CodeNoRefs    graph.TypeCode = 1 // no reference words (strings, int arrays)
	CodeRefArray  graph.TypeCode = 2 // every word is a reference
	CodeRefScalar graph.TypeCode = 3 // {ref, scalar} pairs, e.g. list nodes
	CodeScalarRef graph.TypeCode = 4 // {scalar, ref} pairs, e.g. map entries keyed by hash
)

// Layouts returns the layout each reserved code stands for
func Layouts() map[graph.TypeCode]graph.Layout {
	return map[graph.TypeCode]graph.Layout{
		CodeNoRefs:    graph.NewLayout(1),
		CodeRefArray:  graph.NewLayout(1, 0),
		CodeRefScalar: graph.NewLayout(2, 0),
		CodeScalarRef: graph.NewLayout(2, 1),
	}
}

// DefaultInline returns the built-in inline routine table
func DefaultInline() map[graph.TypeCode]Routine {
	return map[graph.TypeCode]Routine{
		CodeNoRefs:    scanNoRefs,
		CodeRefArray:  scanRefArray,
		CodeRefScalar: scanRefScalar,
		CodeScalarRef: scanScalarRef,
	}
}

func emit(sink graph.Sink, w uint64) {
	if ref := graph.ObjID(w); ref != graph.Nil {
		sink.Emit(graph.Ref{ID: ref, Source: graph.SourceField})
	}
}

func scanNoRefs(*graph.Object, *graph.Type, graph.Sink) {}

func scanRefArray(obj *graph.Object, _ *graph.Type, sink graph.Sink) {
	for _, w := range obj.Words {
		emit(sink, w)
	}
}

func scanRefScalar(obj *graph.Object, _ *graph.Type, sink graph.Sink) {
	for i := 0; i < len(obj.Words); i += 2 {
		emit(sink, obj.Words[i])
	}
}

func scanScalarRef(obj *graph.Object, _ *graph.Type, sink graph.Sink) {
	for i := 1; i < len(obj.Words); i += 2 {
		emit(sink, obj.Words[i])
	}
}
