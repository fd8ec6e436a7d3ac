// ABOUTME: Static, global and boot-image reference slot tables
// ABOUTME: Each worker scans a strided share of chunks, like sharded data/BSS root jobs

package segment

import (
	"github.com/Gorgija/JOE/fatal"
	"github.com/Gorgija/JOE/graph"
)

// DefaultChunkSize is the number of slots in one unit of static scanning work
const DefaultChunkSize = 128

// Segment is a contiguous run of word slots with a bitmap marking the
// reference slots. Scanning never writes to it.
type Segment struct {
	Name      string
	Source    graph.Source
	Words     []uint64
	Mask      graph.Layout
	ChunkSize int
}

// NewStatics creates the class statics table
func NewStatics(words []uint64, mask graph.Layout) *Segment {
	return &Segment{Name: "statics", Source: graph.SourceStatic, Words: words, Mask: mask}
}

// NewGlobals creates a table of VM-internal singleton references.
// Every slot holds a reference.
func NewGlobals(refs []graph.ObjID) *Segment {
	words := make([]uint64, len(refs))
	for i, r := range refs {
		words[i] = uint64(r)
	}
	return &Segment{Name: "globals", Source: graph.SourceGlobal, Words: words, Mask: graph.NewLayout(1, 0)}
}

// NewBootImage creates the reference map of the pre-initialized boot image
func NewBootImage(words []uint64, mask graph.Layout) *Segment {
	return &Segment{Name: "bootimage", Source: graph.SourceBootImage, Words: words, Mask: mask}
}

func (s *Segment) chunkSize() int {
	if s.ChunkSize > 0 {
		return s.ChunkSize
	}
	return DefaultChunkSize
}

// NumChunks returns how many units of work the segment splits into
func (s *Segment) NumChunks() int {
	cs := s.chunkSize()
	return (len(s.Words) + cs - 1) / cs
}

// ScanRoots emits the references in the chunks owned by worker ordinal out
// of count workers. Chunk i belongs to worker i%count, so when every worker
// calls ScanRoots once each slot is reported exactly once.
func (s *Segment) ScanRoots(ordinal, count int, sink graph.Sink) {
	if count <= 0 || ordinal < 0 || ordinal >= count {
		fatal.Throw("bad worker ordinal", "segment", s.Name, "ordinal", ordinal, "count", count)
	}
	cs := s.chunkSize()
	for c := ordinal; c*cs < len(s.Words); c += count {
		s.scanChunk(c*cs, min(len(s.Words), (c+1)*cs), sink)
	}
}

func (s *Segment) scanChunk(start, end int, sink graph.Sink) {
	for i := start; i < end; i++ {
		if !s.Mask.IsRef(i) {
			continue
		}
		if ref := graph.ObjID(s.Words[i]); ref != graph.Nil {
			sink.Emit(graph.Ref{ID: ref, Source: s.Source})
		}
	}
}
