// ABOUTME: Tests for the collection cycle and its closure
// ABOUTME: End-to-end root enumeration, tracing, code reclamation and incremental rescans

package collector

import (
	"io"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"testing"

	"github.com/Gorgija/JOE/fatal"
	"github.com/Gorgija/JOE/graph"
	"github.com/Gorgija/JOE/remset"
	"github.com/Gorgija/JOE/rootset"
	"github.com/Gorgija/JOE/scan"
	"github.com/Gorgija/JOE/segment"
	"github.com/Gorgija/JOE/threads"
)

func TestMain(m *testing.M) {
	fatal.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

const (
	codeNode graph.TypeCode = 10 // {ref, int, ref}
	codeCode graph.TypeCode = 11 // compiled method, no refs
)

type testVM struct {
	env  Env
	main *threads.Context
	code *CodeCache
}

// newTestVM builds this heap:
//
//	statics  -> 1 -> 2
//	boot     -> 3
//	globals  -> 4
//	main stack -> 5 -> 6 (refarray) -> 7
//	remset edge -> 8
//	code objects 20, 21 on main's frames
//	garbage: 9 -> 10 -> 9
func newTestVM() *testVM {
	heap := graph.NewMemGraph()
	for code, layout := range scan.Layouts() {
		heap.DefineType(&graph.Type{Code: code, Name: "reserved", Layout: layout})
	}
	heap.DefineType(&graph.Type{Code: codeNode, Name: "Node", Layout: graph.NewLayout(3, 0, 2)})
	heap.DefineType(&graph.Type{Code: codeCode, Name: "CompiledMethod", Layout: graph.NewLayout(1)})

	add := func(id graph.ObjID, code graph.TypeCode, words ...uint64) {
		heap.AddObject(&graph.Object{ID: id, Code: code, Words: words})
	}
	add(1, codeNode, 2, 42, 0)
	add(2, scan.CodeNoRefs, 1, 2, 3)
	add(3, scan.CodeRefScalar, 7, 0)
	add(4, scan.CodeNoRefs)
	add(5, scan.CodeScalarRef, 99, 6)
	add(6, scan.CodeRefArray, 7, 0, 7)
	add(7, scan.CodeNoRefs)
	add(8, scan.CodeNoRefs)
	add(9, codeNode, 10, 0, 0)
	add(10, codeNode, 9, 0, 0)
	add(20, codeCode)
	add(21, codeCode)

	table := threads.NewTable()
	main := threads.NewContext("main", threads.Mutator)
	main.Push(threads.Frame{Method: "main", Code: 20, Slots: []graph.ObjID{5}})
	main.Push(threads.Frame{Method: "work", Code: 21})
	table.Register(main)

	dead := threads.NewContext("finished", threads.Mutator)
	dead.Registers = []graph.ObjID{9}
	dead.Exit()
	table.Register(dead)

	remsets := remset.NewSet()
	remsets.Log(main).Record(1, 8)

	code := NewCodeCache()
	return &testVM{
		env: Env{
			Heap:      heap,
			Table:     table,
			Statics:   segment.NewStatics([]uint64{1, 1234}, graph.NewLayout(2, 0)),
			Globals:   segment.NewGlobals([]graph.ObjID{4}),
			BootImage: segment.NewBootImage([]uint64{3}, graph.NewLayout(1, 0)),
			Remsets:   remsets,
			Code:      code,
			Roots:     rootset.Config{ProcessCodeLocations: true},
			Scan:      scan.Options{HandInlined: true},
		},
		main: main,
		code: code,
	}
}

func liveIDs(res *Result) map[graph.ObjID]bool {
	out := make(map[graph.ObjID]bool)
	for id, ok := range res.Live {
		if ok {
			out[id] = true
		}
	}
	return out
}

func TestRunMarksReachable(t *testing.T) {
	for _, workers := range []int{1, 3, 8} {
		vm := newTestVM()
		cycle := NewCycle(vm.env, workers)

		res := cycle.Run(false)

		want := map[graph.ObjID]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true, 20: true, 21: true}
		if got := liveIDs(res); !reflect.DeepEqual(got, want) {
			t.Errorf("workers=%d: expected live %v, got %v", workers, want, got)
		}
		if res.Phase != rootset.Complete {
			t.Errorf("workers=%d: expected phase complete, got %s", workers, res.Phase)
		}

		wantRoots := map[graph.Source]int{
			graph.SourceStatic:    1,
			graph.SourceGlobal:    1,
			graph.SourceStack:     1,
			graph.SourceCode:      2,
			graph.SourceBootImage: 1,
			graph.SourceRemset:    1,
		}
		for src, n := range wantRoots {
			if res.Roots[src] != n {
				t.Errorf("workers=%d: expected %d %s roots, got %d", workers, n, src, res.Roots[src])
			}
		}
	}
}

func TestRunWithoutGlobals(t *testing.T) {
	vm := newTestVM()
	vm.env.Globals = nil
	res := NewCycle(vm.env, 2).Run(false)

	if res.Live[4] {
		t.Error("Expected object 4 to die without the global table")
	}
	if res.Roots[graph.SourceGlobal] != 0 {
		t.Errorf("Expected no global roots, got %d", res.Roots[graph.SourceGlobal])
	}
}

func TestRunCodeReclamation(t *testing.T) {
	tests := []struct {
		name      string
		partial   bool
		wantSnips int
	}{
		{"full scan snips", false, 1},
		{"partial scan keeps", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := newTestVM()
			vm.code.Obsolete(99)
			NewCycle(vm.env, 2).Run(tt.partial)

			if vm.code.Snips() != tt.wantSnips {
				t.Errorf("Expected %d snips, got %d", tt.wantSnips, vm.code.Snips())
			}
			if tt.wantSnips == 1 && !reflect.DeepEqual(vm.code.Snipped(), []graph.ObjID{99}) {
				t.Errorf("Expected 99 snipped, got %v", vm.code.Snipped())
			}
		})
	}
}

func TestRunFlushObligations(t *testing.T) {
	vm := newTestVM()
	const workers = 4
	NewCycle(vm.env, workers).Run(false)

	// Two mutator flushes before enumeration, one per worker after the
	// thread phase and one after the initial scan completes.
	if got, want := vm.env.Remsets.Flushes(), 2+workers+1; got != want {
		t.Errorf("Expected %d flushes, got %d", want, got)
	}
}

func TestRunResumesWorld(t *testing.T) {
	vm := newTestVM()
	cycle := NewCycle(vm.env, 2)
	cycle.Run(false)

	// The table accepts new threads again and a second collection works.
	vm.env.Table.Register(threads.NewContext("late", threads.Mutator))
	res := cycle.Run(false)
	if res.Live[8] {
		t.Error("Expected remset edge to be consumed by the first collection")
	}
	if !res.Live[5] {
		t.Error("Expected stack root to stay live")
	}
}

func TestExplain(t *testing.T) {
	vm := newTestVM()
	res := NewCycle(vm.env, 1).Run(false)

	paths := res.Explain(7, 5)
	if len(paths) == 0 {
		t.Fatal("Expected a path for object 7")
	}
	// 7 is held by boot image object 3 and by 6 under the stack root 5.
	for _, p := range paths {
		last := p.IDs[len(p.IDs)-1]
		if last != 3 && last != 5 {
			t.Errorf("Expected path to end at root 3 or 5, got %v", p.IDs)
		}
	}
	if res.Explain(9, 5) != nil {
		t.Error("Expected no explanation for garbage")
	}
}

func TestRescanNewRoots(t *testing.T) {
	vm := newTestVM()
	cycle := NewCycle(vm.env, 2)
	cycle.Run(false)

	// Back in the mutator: return from work, call into helper.
	vm.main.Pop()
	vm.main.Push(threads.Frame{Method: "helper", Code: 21, Slots: []graph.ObjID{7}})

	found := cycle.Rescan()
	want := map[graph.ObjID]int{5: 1, 20: 1, 7: 1, 21: 1}
	if !reflect.DeepEqual(found, want) {
		t.Errorf("Expected %v, got %v", want, found)
	}

	// Nothing ran since: only the top frame is reported again.
	found = cycle.Rescan()
	if want := map[graph.ObjID]int{7: 1, 21: 1}; !reflect.DeepEqual(found, want) {
		t.Errorf("Expected %v, got %v", want, found)
	}
}

func TestDanglingRootIsFatal(t *testing.T) {
	vm := newTestVM()
	vm.main.Registers = []graph.ObjID{500}
	cycle := NewCycle(vm.env, 1)

	if err := fatal.Catch(func() { cycle.Run(false) }); err == nil {
		t.Error("Expected dangling root to be fatal")
	}
}

func TestNewCycleNeedsWorkers(t *testing.T) {
	vm := newTestVM()
	if err := fatal.Catch(func() { NewCycle(vm.env, 0) }); err == nil {
		t.Error("Expected zero workers to be fatal")
	}
}

func TestNewCycleNeedsStatics(t *testing.T) {
	vm := newTestVM()
	vm.env.Statics = nil
	if err := fatal.Catch(func() { NewCycle(vm.env, 1) }); err == nil {
		t.Error("Expected missing statics to be fatal")
	}
}

func TestNewCycleRejectsMisdescribedReservedCode(t *testing.T) {
	for _, inline := range []bool{false, true} {
		vm := newTestVM()
		vm.env.Scan.HandInlined = inline
		// Code 1 claims references, so its no-refs routine would hide them
		vm.env.Heap.DefineType(&graph.Type{Code: scan.CodeNoRefs, Name: "Pair", Layout: graph.NewLayout(2, 0, 1)})
		before := vm.env.Table.Len()

		if err := fatal.Catch(func() { NewCycle(vm.env, 2) }); err == nil {
			t.Errorf("HandInlined=%v: expected misdescribed reserved code to be fatal", inline)
		}
		if got := vm.env.Table.Len(); got != before {
			t.Errorf("HandInlined=%v: expected no workers registered, table grew to %d", inline, got)
		}
	}
}

func TestRunRejectsReservedCodeRedefinedLater(t *testing.T) {
	vm := newTestVM()
	cycle := NewCycle(vm.env, 2)
	vm.env.Heap.DefineType(&graph.Type{Code: scan.CodeNoRefs, Name: "Pair", Layout: graph.NewLayout(2, 0, 1)})

	if err := fatal.Catch(func() { cycle.Run(false) }); err == nil {
		t.Error("Expected tracing through a redefined reserved code to be fatal")
	}
}

func TestClosureConcurrentEmit(t *testing.T) {
	c := NewClosure()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 1; i <= 100; i++ {
				c.Emit(graph.Ref{ID: graph.ObjID(i), Source: graph.SourceStack})
			}
		}()
	}
	wg.Wait()
	c.Emit(graph.Ref{ID: graph.Nil, Source: graph.SourceStack})

	popped := 0
	c.Drain(func(graph.ObjID) { popped++ })
	if popped != 100 {
		t.Errorf("Expected each object queued once, got %d", popped)
	}
	if c.counts[graph.SourceStack] != 800 {
		t.Errorf("Expected 800 stack emissions, got %d", c.counts[graph.SourceStack])
	}
	if !c.Marked(50) || c.Marked(101) {
		t.Error("Unexpected mark state")
	}
}
