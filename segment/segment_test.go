// ABOUTME: Tests for static, global and boot-image slot tables
// ABOUTME: Checks provenance, scalar slots and exactly-once partitioning across workers

package segment

import (
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"testing"

	"github.com/Gorgija/JOE/fatal"
	"github.com/Gorgija/JOE/graph"
)

func TestMain(m *testing.M) {
	fatal.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

type counter struct {
	mu     sync.Mutex
	counts map[graph.ObjID]int
	source map[graph.Source]int
}

func newCounter() *counter {
	return &counter{counts: make(map[graph.ObjID]int), source: make(map[graph.Source]int)}
}

func (c *counter) Emit(ref graph.Ref) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[ref.ID]++
	c.source[ref.Source]++
}

func TestStaticsSkipScalars(t *testing.T) {
	// Even words are references, odd words are ints
	s := NewStatics([]uint64{1, 77, 0, 88, 3, 99}, graph.NewLayout(2, 0))

	c := newCounter()
	s.ScanRoots(0, 1, c)

	if len(c.counts) != 2 || c.counts[1] != 1 || c.counts[3] != 1 {
		t.Errorf("Expected references 1 and 3, got %v", c.counts)
	}
	if c.source[graph.SourceStatic] != 2 {
		t.Errorf("Expected static provenance, got %v", c.source)
	}
}

func TestGlobalsAndBootImageProvenance(t *testing.T) {
	c := newCounter()
	NewGlobals([]graph.ObjID{5, 0, 6}).ScanRoots(0, 1, c)
	NewBootImage([]uint64{7}, graph.NewLayout(1, 0)).ScanRoots(0, 1, c)

	if c.source[graph.SourceGlobal] != 2 {
		t.Errorf("Expected 2 global roots, got %d", c.source[graph.SourceGlobal])
	}
	if c.source[graph.SourceBootImage] != 1 {
		t.Errorf("Expected 1 boot image root, got %d", c.source[graph.SourceBootImage])
	}
}

func TestEmptySegment(t *testing.T) {
	s := NewStatics(nil, graph.NewLayout(1, 0))
	if s.NumChunks() != 0 {
		t.Errorf("Expected 0 chunks, got %d", s.NumChunks())
	}
	c := newCounter()
	s.ScanRoots(0, 4, c)
	if len(c.counts) != 0 {
		t.Errorf("Expected no roots, got %v", c.counts)
	}
}

// Property: for any worker count every slot is reported exactly once
func TestPartitionExactlyOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for iter := 0; iter < 50; iter++ {
		n := rng.Intn(1000)
		words := make([]uint64, n)
		for i := range words {
			words[i] = uint64(i + 1)
		}
		s := NewBootImage(words, graph.NewLayout(1, 0))
		s.ChunkSize = 1 + rng.Intn(64)
		workers := 1 + rng.Intn(8)

		c := newCounter()
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				s.ScanRoots(w, workers, c)
			}(w)
		}
		wg.Wait()

		if len(c.counts) != n {
			t.Fatalf("iter %d: expected %d roots, got %d", iter, n, len(c.counts))
		}
		for id, k := range c.counts {
			if k != 1 {
				t.Fatalf("iter %d: root %d reported %d times", iter, id, k)
			}
		}
	}
}

func TestBadOrdinalIsFatal(t *testing.T) {
	s := NewStatics([]uint64{1}, graph.NewLayout(1, 0))

	tests := []struct {
		name           string
		ordinal, count int
	}{
		{"zero workers", 0, 0},
		{"negative ordinal", -1, 2},
		{"ordinal past count", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fatal.Catch(func() { s.ScanRoots(tt.ordinal, tt.count, newCounter()) })
			if err == nil {
				t.Error("Expected fatal error")
			}
		})
	}
}
