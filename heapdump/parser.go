// ABOUTME: Parser interface for runtime image formats
// ABOUTME: Defines the contract for pluggable image loaders

package heapdump

import (
	"io"

	"github.com/Gorgija/JOE/graph"
	"github.com/Gorgija/JOE/remset"
	"github.com/Gorgija/JOE/segment"
	"github.com/Gorgija/JOE/threads"
)

// Image is a stopped runtime: its heap, root tables, threads and pending
// write-barrier logs
type Image struct {
	Heap      *graph.MemGraph
	Statics   *segment.Segment
	Globals   *segment.Segment // nil when the image has no global tables
	BootImage *segment.Segment
	Threads   *threads.Table
	Remsets   *remset.Set
}

// Parser is the interface for image parsers
type Parser interface {
	// CanParse checks if this parser can handle the given format
	// The reader should be treated as a preview - implementations should
	// read a small amount to detect format and not consume the entire stream
	CanParse(r io.Reader) bool

	// Parse reads the image
	// The reader will be a fresh reader positioned at the start
	Parse(r io.Reader) (*Image, error)
}
