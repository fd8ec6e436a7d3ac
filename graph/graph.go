// ABOUTME: Heap interface and in-memory implementation
// ABOUTME: Stores objects and the type table consulted by field scanning

package graph

import "sync"

// Graph represents a heap of objects and their type descriptors
type Graph interface {
	// AddObject adds an object to the heap
	AddObject(obj *Object)

	// GetObject retrieves an object by handle
	GetObject(id ObjID) *Object

	// NumObjects returns the total number of objects
	NumObjects() int

	// ForEachObject iterates over all objects
	ForEachObject(fn func(*Object))

	// DefineType installs the descriptor for a type code
	DefineType(t *Type)

	// TypeOf returns the descriptor for a type code
	TypeOf(code TypeCode) (*Type, bool)
}

// MemGraph is an in-memory implementation of Graph
type MemGraph struct {
	mu      sync.RWMutex
	objects map[ObjID]*Object
	types   map[TypeCode]*Type
}

// NewMemGraph creates a new in-memory heap
func NewMemGraph() *MemGraph {
	return &MemGraph{
		objects: make(map[ObjID]*Object),
		types:   make(map[TypeCode]*Type),
	}
}

// AddObject adds an object to the heap
func (g *MemGraph) AddObject(obj *Object) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.objects[obj.ID] = obj
}

// GetObject retrieves an object by handle
func (g *MemGraph) GetObject(id ObjID) *Object {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.objects[id]
}

// NumObjects returns the total number of objects
func (g *MemGraph) NumObjects() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.objects)
}

// ForEachObject iterates over all objects
func (g *MemGraph) ForEachObject(fn func(*Object)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, obj := range g.objects {
		fn(obj)
	}
}

// DefineType installs the descriptor for a type code, replacing any earlier one
func (g *MemGraph) DefineType(t *Type) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.types[t.Code] = t
}

// TypeOf returns the descriptor for a type code
func (g *MemGraph) TypeOf(code TypeCode) (*Type, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.types[code]
	return t, ok
}

// Refs returns the non-nil references held by obj under its type's layout,
// in word order. It returns nil if the type code is unknown.
func Refs(g Graph, obj *Object) []ObjID {
	t, ok := g.TypeOf(obj.Code)
	if !ok {
		return nil
	}
	var refs []ObjID
	t.Layout.ForEachRef(obj.Words, func(_ int, ref ObjID) {
		refs = append(refs, ref)
	})
	return refs
}
