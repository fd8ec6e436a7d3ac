// ABOUTME: Per-object field scanning with a hand-inlined fast path and generic fallback
// ABOUTME: Dispatches on the header type code or an explicit specialization id

// Package scan emits the outgoing references of objects already known to be
// live. Which routine runs is a performance decision only: the hand-inlined,
// specialized and generic paths emit the same references for an object.
package scan

import (
	"errors"

	"github.com/Gorgija/JOE/fatal"
	"github.com/Gorgija/JOE/graph"
)

// MaxSpecializations bounds specialization ids
const MaxSpecializations = 16

// ErrBadSpecialization is returned when registering an id outside [0, MaxSpecializations)
var ErrBadSpecialization = errors.New("specialization id out of range")

// Routine scans one object whose descriptor is t
type Routine func(obj *graph.Object, t *graph.Type, sink graph.Sink)

// Options selects which fast paths the running configuration enables
type Options struct {
	// HandInlined enables the per-type-code inline routine table
	HandInlined bool
	// Specialized enables routines selected by specialization id
	Specialized bool
}

// Dispatcher scans objects of one heap
type Dispatcher struct {
	heap        graph.Graph
	opts        Options
	inline      map[graph.TypeCode]Routine
	specialized [MaxSpecializations]Routine

	// reserved holds the layout behind each built-in inline routine;
	// checked holds the descriptors already found to match it.
	reserved map[graph.TypeCode]graph.Layout
	checked  map[graph.TypeCode]*graph.Type
}

// NewDispatcher creates a dispatcher over heap with the built-in inline
// routines installed for the reserved type codes. A heap that describes a
// reserved code with a different layout is fatal: the inline routine would
// miss references the fallback reports.
func NewDispatcher(heap graph.Graph, opts Options) *Dispatcher {
	d := &Dispatcher{
		heap:     heap,
		opts:     opts,
		inline:   DefaultInline(),
		reserved: Layouts(),
		checked:  make(map[graph.TypeCode]*graph.Type),
	}
	for code := range d.reserved {
		if t, ok := heap.TypeOf(code); ok {
			d.checkReserved(t)
			d.checked[code] = t
		}
	}
	return d
}

// Options returns the dispatcher's configuration
func (d *Dispatcher) Options() Options { return d.opts }

// SetInline installs or replaces the inline routine for code.
// Not safe to call while scans are running.
func (d *Dispatcher) SetInline(code graph.TypeCode, r Routine) {
	if r == nil {
		delete(d.inline, code)
		return
	}
	d.inline[code] = r
}

// Register installs the specialized routine for id.
// Not safe to call while scans are running.
func (d *Dispatcher) Register(id int, r Routine) error {
	if id < 0 || id >= MaxSpecializations {
		return ErrBadSpecialization
	}
	d.specialized[id] = r
	return nil
}

// Scan emits every reference held by obj
func (d *Dispatcher) Scan(obj *graph.Object, sink graph.Sink) {
	t := d.typeOf(obj)
	if r := d.inlineFor(t); r != nil {
		r(obj, t, sink)
		return
	}
	Fallback(obj, t, sink)
}

// ScanSpecialized scans obj with the routine the tracer asked for by id.
// A hand-inlined routine for the type code wins; otherwise the routine
// registered for id runs if specialization is enabled. Anything else,
// including an unknown id, falls back to the generic scan.
func (d *Dispatcher) ScanSpecialized(id int, obj *graph.Object, sink graph.Sink) {
	t := d.typeOf(obj)
	if r := d.inlineFor(t); r != nil {
		r(obj, t, sink)
		return
	}
	if d.opts.Specialized && id >= 0 && id < MaxSpecializations {
		if r := d.specialized[id]; r != nil {
			r(obj, t, sink)
			return
		}
	}
	Fallback(obj, t, sink)
}

func (d *Dispatcher) typeOf(obj *graph.Object) *graph.Type {
	t, ok := d.heap.TypeOf(obj.Code)
	if !ok {
		fatal.Throw("object has unrecognized type code", "object", obj.ID, "code", obj.Code)
	}
	return t
}

// inlineFor returns the inline routine for t, or nil when hand-inlined
// scanning is off or t's code has none. A reserved code redefined after the
// dispatcher was created is checked again before its routine runs.
func (d *Dispatcher) inlineFor(t *graph.Type) Routine {
	if !d.opts.HandInlined {
		return nil
	}
	r := d.inline[t.Code]
	if r != nil && d.checked[t.Code] != t {
		d.checkReserved(t)
	}
	return r
}

func (d *Dispatcher) checkReserved(t *graph.Type) {
	want, ok := d.reserved[t.Code]
	if ok && !t.Layout.SameShape(want) {
		fatal.Throw("reserved type code declares a different layout",
			"code", t.Code, "type", t.Name, "words", t.Layout.Len)
	}
}

// Fallback walks t's layout and emits every non-nil reference word of obj
func Fallback(obj *graph.Object, t *graph.Type, sink graph.Sink) {
	t.Layout.ForEachRef(obj.Words, func(_ int, ref graph.ObjID) {
		sink.Emit(graph.Ref{ID: ref, Source: graph.SourceField})
	})
}
