// ABOUTME: JSON image parser used by tests and the integration suite
// ABOUTME: Reads types, objects, root tables and threads into an Image

package heapdump

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Gorgija/JOE/graph"
	"github.com/Gorgija/JOE/remset"
	"github.com/Gorgija/JOE/scan"
	"github.com/Gorgija/JOE/segment"
	"github.com/Gorgija/JOE/threads"
)

// JSONImage is a parser for JSON images
type JSONImage struct{}

// jsonDump represents the JSON image format
type jsonDump struct {
	Types   []jsonType    `json:"types"`
	Objects []jsonObject  `json:"objects"`
	Statics *jsonSegment  `json:"statics"`
	Globals []graph.ObjID `json:"globals"`
	Boot    *jsonSegment  `json:"boot"`
	Threads []jsonThread  `json:"threads"`
}

type jsonType struct {
	Code  graph.TypeCode `json:"code"`
	Name  string         `json:"name"`
	Words int            `json:"words"`
	Refs  []int          `json:"refs"`
}

type jsonObject struct {
	ID    graph.ObjID    `json:"id"`
	Code  graph.TypeCode `json:"code"`
	Words []uint64       `json:"words"`
}

// jsonSegment is a slot table with a repeating reference layout
type jsonSegment struct {
	Words  []uint64 `json:"words"`
	Stride int      `json:"stride"`
	Refs   []int    `json:"refs"`
}

type jsonThread struct {
	Name      string           `json:"name"`
	Role      string           `json:"role"`
	Dead      bool             `json:"dead"`
	Registers []graph.ObjID    `json:"registers"`
	Frames    []jsonFrame      `json:"frames"`
	Remset    [][2]graph.ObjID `json:"remset"`
}

type jsonFrame struct {
	Method string        `json:"method"`
	Code   graph.ObjID   `json:"code"`
	Slots  []graph.ObjID `json:"slots"`
}

// CanParse checks if the input looks like a JSON image
func (p *JSONImage) CanParse(r io.Reader) bool {
	buf, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return false
	}
	buf = bytes.TrimSpace(buf)
	return len(buf) > 0 && buf[0] == '{' && bytes.Contains(buf, []byte(`"objects"`))
}

// Parse reads the JSON image
func (p *JSONImage) Parse(r io.Reader) (*Image, error) {
	var dump jsonDump

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&dump); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	img := &Image{
		Heap:    graph.NewMemGraph(),
		Threads: threads.NewTable(),
		Remsets: remset.NewSet(),
	}

	reserved := scan.Layouts()
	for i, typ := range dump.Types {
		if typ.Words < 0 {
			return nil, fmt.Errorf("type at index %d has negative word count", i)
		}
		layout := graph.NewLayout(typ.Words, typ.Refs...)
		if want, ok := reserved[typ.Code]; ok && !layout.SameShape(want) {
			return nil, fmt.Errorf("type %q uses reserved code %d with a different layout", typ.Name, typ.Code)
		}
		img.Heap.DefineType(&graph.Type{
			Code:   typ.Code,
			Name:   typ.Name,
			Layout: layout,
		})
	}

	for i, obj := range dump.Objects {
		if obj.ID == graph.Nil {
			return nil, fmt.Errorf("object at index %d missing ID", i)
		}
		if _, ok := img.Heap.TypeOf(obj.Code); !ok {
			return nil, fmt.Errorf("object %d has undefined type code %d", obj.ID, obj.Code)
		}
		img.Heap.AddObject(&graph.Object{ID: obj.ID, Code: obj.Code, Words: obj.Words})
	}

	img.Statics = segment.NewStatics(nil, graph.NewLayout(1, 0))
	if dump.Statics != nil {
		img.Statics = segment.NewStatics(dump.Statics.Words, dump.Statics.layout())
	}
	img.BootImage = segment.NewBootImage(nil, graph.NewLayout(1, 0))
	if dump.Boot != nil {
		img.BootImage = segment.NewBootImage(dump.Boot.Words, dump.Boot.layout())
	}
	if dump.Globals != nil {
		img.Globals = segment.NewGlobals(dump.Globals)
	}

	for i, th := range dump.Threads {
		ctx, err := th.context()
		if err != nil {
			return nil, fmt.Errorf("thread at index %d: %w", i, err)
		}
		img.Threads.Register(ctx)
		log := img.Remsets.Log(ctx)
		for _, e := range th.Remset {
			log.Record(e[0], e[1])
		}
	}

	return img, nil
}

// layout defaults to every slot holding a reference
func (s *jsonSegment) layout() graph.Layout {
	if s.Stride <= 0 {
		return graph.NewLayout(1, 0)
	}
	return graph.NewLayout(s.Stride, s.Refs...)
}

func (th *jsonThread) context() (*threads.Context, error) {
	var role threads.Role
	switch th.Role {
	case "", "mutator":
		role = threads.Mutator
	case "collector":
		role = threads.Collector
	default:
		return nil, fmt.Errorf("unknown role %q", th.Role)
	}

	ctx := threads.NewContext(th.Name, role)
	ctx.Registers = th.Registers
	for _, f := range th.Frames {
		ctx.Push(threads.Frame{Method: f.Method, Code: f.Code, Slots: f.Slots})
	}
	if th.Dead {
		ctx.Exit()
	}
	return ctx, nil
}

// init registers the JSON parser
func init() {
	Register(&JSONImage{})
}
