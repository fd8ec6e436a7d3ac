// ABOUTME: Core data types for the managed heap seen by root enumeration
// ABOUTME: Defines object handles, type codes, layouts, objects and discovered references

package graph

// ObjID is a handle to a heap object. Zero is the nil reference.
type ObjID uint64

// Nil is the null object handle
const Nil ObjID = 0

// TypeCode identifies an object's layout for scanning purposes.
// It is carried in every object header.
type TypeCode uint16

// Type describes the shape of every object carrying its code
type Type struct {
	Code   TypeCode // Header code
	Name   string   // Type name (e.g. "java.lang.String", "Object[]")
	Layout Layout   // Which words hold references
}

// Object represents a single heap object
type Object struct {
	ID    ObjID    // Unique identifier
	Code  TypeCode // Type descriptor code from the header
	Words []uint64 // Payload words; reference words hold an ObjID
}

// Source records where a reference was discovered
type Source uint8

const (
	SourceField     Source = iota // Outgoing field of a live object
	SourceStatic                  // Class static slot
	SourceGlobal                  // VM-internal global table
	SourceStack                   // Thread stack slot or register
	SourceCode                    // Compiled code referenced from a frame
	SourceBootImage               // Pre-initialized boot image slot
	SourceRemset                  // Remembered-set edge
)

var sourceNames = [...]string{
	SourceField:     "field",
	SourceStatic:    "static",
	SourceGlobal:    "global",
	SourceStack:     "stack",
	SourceCode:      "code",
	SourceBootImage: "bootimage",
	SourceRemset:    "remset",
}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return "unknown"
}

// Ref is a discovered reference plus its provenance.
// Refs are handed straight to a Sink and never retained.
type Ref struct {
	ID     ObjID
	Source Source
}

// Sink receives references as they are discovered.
// Implementations may be called from many workers at once and are
// responsible for their own synchronization.
type Sink interface {
	Emit(ref Ref)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ref Ref)

// Emit calls f(ref)
func (f SinkFunc) Emit(ref Ref) { f(ref) }
