// ABOUTME: Per-collection root enumeration state owned by the collection cycle
// ABOUTME: Phases are recorded by phase operations and never advanced automatically

package rootset

import (
	"sync/atomic"

	"github.com/Gorgija/JOE/threads"
)

// Phase names the root enumeration step an episode is in
type Phase int32

const (
	Idle Phase = iota
	ScanningStatics
	ScanningGlobals
	ScanningThreads
	ScanningBootImage
	Complete
)

var phaseNames = [...]string{
	Idle:              "idle",
	ScanningStatics:   "scanning-statics",
	ScanningGlobals:   "scanning-globals",
	ScanningThreads:   "scanning-threads",
	ScanningBootImage: "scanning-bootimage",
	Complete:          "complete",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Episode is one collection's root enumeration. The owning cycle creates
// it after stopping the world and passes it to every phase call.
type Episode struct {
	world *threads.World
	phase atomic.Int32
}

// NewEpisode starts an episode for a stopped world
func NewEpisode(world *threads.World) *Episode {
	return &Episode{world: world}
}

// World returns the guard the episode runs under
func (e *Episode) World() *threads.World { return e.world }

// Phase returns the most recently entered phase
func (e *Episode) Phase() Phase { return Phase(e.phase.Load()) }

// Finish marks root enumeration complete
func (e *Episode) Finish() { e.enter(Complete) }

func (e *Episode) enter(p Phase) { e.phase.Store(int32(p)) }
