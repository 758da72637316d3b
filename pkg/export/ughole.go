// Package export maps classified holes onto the CAM hole feature taxonomy
// (step holes and pockets, plain round holes and pockets, threaded variants)
// and renders them as flat attribute records for JSON output.
package export

import (
	"fmt"

	"github.com/chazu/holefind/pkg/classify"
	"github.com/chazu/holefind/pkg/hole"
	"github.com/chazu/holefind/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Kind identifies a UGHole variant.
type Kind int

const (
	StepXHoleKind Kind = iota
	StepXHoleThreadKind
	StepXPocketKind
	StepXPocketThreadKind
	PocketRoundTaperedKind
	HoleRoundTaperedKind
)

func (k Kind) String() string {
	switch k {
	case StepXHoleKind:
		return "STEPXHOLE"
	case StepXHoleThreadKind:
		return "STEPXHOLE_THREAD"
	case StepXPocketKind:
		return "STEPXPOCKET"
	case StepXPocketThreadKind:
		return "STEPXPOCKET_THREAD"
	case PocketRoundTaperedKind:
		return "POCKET_ROUND_TAPERED"
	case HoleRoundTaperedKind:
		return "HOLE_ROUND_TAPERED"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// UGHole is a sealed set of export feature variants. Implementations:
// *StepXHole, *StepXHoleThread, *StepXPocket, *StepXPocketThread,
// *HoleRoundTap, *PocketRoundTap. Values are built by GetUGHoleMessage and
// never modified afterwards.
type UGHole interface {
	Kind() Kind
	TypeName() string
	WriteJSON() Record
	Faces() []kernel.FaceID
	ugHole()
}

// Record is one flat attribute record. encoding/json writes map keys in
// sorted order, so records serialise identically run to run.
type Record map[string]any

// ChamferType says how a stage edge is broken.
type ChamferType int

const (
	NoChamfer ChamferType = iota
	StraightChamfer
	FilletChamfer
)

// Chamfer is one stage edge treatment. Value is the chamfer semi-angle in
// degrees or the fillet radius.
type Chamfer struct {
	Type  ChamferType
	Value float64
	Depth float64
}

func chamferOf(v hole.Verge) Chamfer {
	switch v := v.(type) {
	case hole.Chamfer:
		return Chamfer{Type: StraightChamfer, Value: v.Angle, Depth: v.Depth}
	case hole.Fillet:
		return Chamfer{Type: FilletChamfer, Value: v.Radius, Depth: v.Radius}
	}
	return Chamfer{}
}

func (c Chamfer) record(r Record, where string, i int) {
	suffix := ""
	if i > 0 {
		suffix = fmt.Sprintf("_%d", i)
	}
	switch c.Type {
	case StraightChamfer:
		r["ANGLE_"+where+"_CHAMFER"+suffix] = round(c.Value)
		r["DEPTH_"+where+"_CHAMFER"+suffix] = round(c.Depth)
	case FilletChamfer:
		r["RADIUS_"+where+"_CHAMFER"+suffix] = round(c.Value)
	}
}

// Step is one diameter of a stepped feature, counted from the entry.
type Step struct {
	Diameter      float64
	Depth         float64 // axial length including the edge treatments
	TopChamfer    Chamfer
	BottomChamfer Chamfer
	// FloorAngle is the included angle of the floor below the step: 180 for
	// a flat shoulder, the drill angle for a drilled one.
	FloorAngle float64
	Taper      float64
}

// Groove is a recess in the core bore.
type Groove struct {
	Diameter float64
	Offset   float64
	Depth    float64
}

// Placement locates a feature: its entry mouth centre, its direction into
// the material and the faces it was recognised from.
type Placement struct {
	Location  v3.Vec
	Direction v3.Vec
	FaceIDs   []kernel.FaceID
}

func (p Placement) Faces() []kernel.FaceID { return p.FaceIDs }

func (p Placement) record(r Record, typ string, depth float64) {
	r["TYPE"] = typ
	r["LOCATION"] = []float64{round(p.Location.X), round(p.Location.Y), round(p.Location.Z)}
	r["DIRECTION"] = []float64{round(p.Direction.X), round(p.Direction.Y), round(p.Direction.Z)}
	r["DEPTH"] = round(depth)
	ids := make([]int, len(p.FaceIDs))
	for i, id := range p.FaceIDs {
		ids[i] = int(id)
	}
	r["FACES"] = ids
}

// ---------------------------------------------------------------------------
// Stepped variants
// ---------------------------------------------------------------------------

// StepXHole is a stepped through hole with X diameters.
type StepXHole struct {
	Placement
	X       int
	Depth   float64
	Steps   []Step
	Grooves []Groove
}

// StepXHoleThread is a stepped through hole with a thread on one step.
type StepXHoleThread struct {
	StepXHole
	Thread ThreadSpec
}

// StepXPocket is a stepped blind hole with X diameters.
type StepXPocket struct {
	Placement
	X           int
	Depth       float64
	Steps       []Step
	Grooves     []Groove
	BottomAngle float64 // 180 for a flat floor
}

// StepXPocketThread is a stepped blind hole with a thread on one step.
type StepXPocketThread struct {
	StepXPocket
	Thread ThreadSpec
}

func (*StepXHole) Kind() Kind         { return StepXHoleKind }
func (*StepXHoleThread) Kind() Kind   { return StepXHoleThreadKind }
func (*StepXPocket) Kind() Kind       { return StepXPocketKind }
func (*StepXPocketThread) Kind() Kind { return StepXPocketThreadKind }

func (h *StepXHole) TypeName() string         { return fmt.Sprintf("STEP%dHOLE", h.X) }
func (h *StepXHoleThread) TypeName() string   { return fmt.Sprintf("STEP%dHOLE_THREAD", h.X) }
func (h *StepXPocket) TypeName() string       { return fmt.Sprintf("STEP%dPOCKET", h.X) }
func (h *StepXPocketThread) TypeName() string { return fmt.Sprintf("STEP%dPOCKET_THREAD", h.X) }

func (*StepXHole) ugHole()         {}
func (*StepXHoleThread) ugHole()   {}
func (*StepXPocket) ugHole()       {}
func (*StepXPocketThread) ugHole() {}

func stepRecord(r Record, steps []Step, grooves []Groove) {
	r["X"] = len(steps)
	for i, s := range steps {
		n := i + 1
		r[fmt.Sprintf("DIAMETER_%d", n)] = round(s.Diameter)
		r[fmt.Sprintf("DEPTH_%d", n)] = round(s.Depth)
		if s.Taper != 0 {
			r[fmt.Sprintf("TAPER_ANGLE_%d", n)] = round(s.Taper)
		}
		s.TopChamfer.record(r, "TOP", n)
		s.BottomChamfer.record(r, "BOTTOM", n)
		if i+1 < len(steps) {
			r[fmt.Sprintf("FLOOR_ANGLE_%d", n)] = round(s.FloorAngle)
		}
	}
	for i, g := range grooves {
		n := i + 1
		r[fmt.Sprintf("GROOVE_DIAMETER_%d", n)] = round(g.Diameter)
		r[fmt.Sprintf("GROOVE_OFFSET_%d", n)] = round(g.Offset)
		r[fmt.Sprintf("GROOVE_DEPTH_%d", n)] = round(g.Depth)
	}
}

func (h *StepXHole) WriteJSON() Record {
	r := Record{}
	h.Placement.record(r, h.TypeName(), h.Depth)
	stepRecord(r, h.Steps, h.Grooves)
	return r
}

func (h *StepXHoleThread) WriteJSON() Record {
	r := h.StepXHole.WriteJSON()
	r["TYPE"] = h.TypeName()
	h.Thread.record(r)
	return r
}

func (h *StepXPocket) WriteJSON() Record {
	r := Record{}
	h.Placement.record(r, h.TypeName(), h.Depth)
	stepRecord(r, h.Steps, h.Grooves)
	r["BOTTOM_ANGLE"] = round(h.BottomAngle)
	return r
}

func (h *StepXPocketThread) WriteJSON() Record {
	r := h.StepXPocket.WriteJSON()
	r["TYPE"] = h.TypeName()
	h.Thread.record(r)
	return r
}

// ---------------------------------------------------------------------------
// Round variants
// ---------------------------------------------------------------------------

// HoleRoundTap is a single diameter through hole, straight or tapered.
type HoleRoundTap struct {
	Placement
	Diameter   float64
	Depth      float64
	TaperAngle float64
	TopTilt    float64 // length of the entry edge treatment
	BottomTilt float64 // length of the exit edge treatment
}

// PocketRoundTap is a single diameter blind hole, straight or tapered.
type PocketRoundTap struct {
	Placement
	Diameter    float64
	Depth       float64
	TaperAngle  float64
	TopTilt     float64
	BottomAngle float64 // 180 for a flat floor
}

func (*HoleRoundTap) Kind() Kind   { return HoleRoundTaperedKind }
func (*PocketRoundTap) Kind() Kind { return PocketRoundTaperedKind }

func (*HoleRoundTap) TypeName() string   { return "HOLE_ROUND_TAPERED" }
func (*PocketRoundTap) TypeName() string { return "POCKET_ROUND_TAPERED" }

func (*HoleRoundTap) ugHole()   {}
func (*PocketRoundTap) ugHole() {}

func (h *HoleRoundTap) WriteJSON() Record {
	r := Record{}
	h.Placement.record(r, h.TypeName(), h.Depth)
	r["DIAMETER"] = round(h.Diameter)
	r["TAPER_ANGLE"] = round(h.TaperAngle)
	r["TILTED_TOP_DEPTH"] = round(h.TopTilt)
	r["TILTED_BOTTOM_DEPTH"] = round(h.BottomTilt)
	return r
}

func (h *PocketRoundTap) WriteJSON() Record {
	r := Record{}
	h.Placement.record(r, h.TypeName(), h.Depth)
	r["DIAMETER"] = round(h.Diameter)
	r["TAPER_ANGLE"] = round(h.TaperAngle)
	r["TILTED_TOP_DEPTH"] = round(h.TopTilt)
	r["BOTTOM_ANGLE"] = round(h.BottomAngle)
	return r
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

// GetUGHoleMessage maps a classified hole onto its export variant. A hole
// without counter stages, grooves or threads is a round hole or pocket;
// anything else is stepped, threaded when any step carries a thread.
func GetUGHoleMessage(h hole.CommonHole) UGHole {
	p := Placement{Location: h.Axis.Location, Direction: h.Axis.Direction, FaceIDs: h.Compose}
	through := hole.IsThrough(h.Bottom)
	core := h.HoleMessage
	steps, thread := stepsOf(h)

	if h.CountersunkHeadNum+h.AntiCountersunkHeadNum+h.SinkNum == 0 && thread < 0 {
		perLen := verge(core.PerVerge).Length()
		if through {
			return &HoleRoundTap{
				Placement:  p,
				Diameter:   2 * core.Radius,
				Depth:      h.GetAllLength(),
				TaperAngle: core.Angle,
				TopTilt:    perLen,
				BottomTilt: verge(core.BackVerge).Length(),
			}
		}
		return &PocketRoundTap{
			Placement:   p,
			Diameter:    2 * core.Radius,
			Depth:       h.GetAllLength(),
			TaperAngle:  core.Angle,
			TopTilt:     perLen,
			BottomAngle: bottomAngle(h.Bottom),
		}
	}

	var grooves []Groove
	for _, s := range h.SinkMessage {
		grooves = append(grooves, Groove{Diameter: 2 * s.Radius, Offset: s.Offset, Depth: s.Depth})
	}
	if through {
		sx := StepXHole{Placement: p, X: len(steps), Depth: h.GetAllLength(), Steps: steps, Grooves: grooves}
		if thread >= 0 {
			return &StepXHoleThread{StepXHole: sx, Thread: threadAt(h, thread, steps)}
		}
		return &sx
	}
	sx := StepXPocket{Placement: p, X: len(steps), Depth: h.GetAllLength(), Steps: steps, Grooves: grooves,
		BottomAngle: bottomAngle(h.Bottom)}
	if thread >= 0 {
		return &StepXPocketThread{StepXPocket: sx, Thread: threadAt(h, thread, steps)}
	}
	return &sx
}

// FromFaces classifies a framed face group and maps the result.
func FromFaces(faces []hole.FaceNode, opts classify.Options) (UGHole, error) {
	h, err := classify.DefineHole(faces, opts)
	if err != nil {
		return nil, err
	}
	return GetUGHoleMessage(h), nil
}

// stepsOf lists the hole's diameters from the entry and returns the index of
// the first threaded step, or -1.
func stepsOf(h hole.CommonHole) ([]Step, int) {
	var steps []Step
	first := -1
	add := func(s Step, has bool) {
		if has && first < 0 {
			first = len(steps)
		}
		steps = append(steps, s)
	}
	for _, c := range h.CounterMessage {
		add(Step{
			Diameter:   2 * c.Radius,
			Depth:      c.GetAllLength(),
			TopChamfer: chamferOf(c.Verge),
			FloorAngle: floorAngle(c.Counter),
		}, c.HasThread)
	}
	core := h.HoleMessage
	add(Step{
		Diameter:      2 * core.Radius,
		Depth:         core.GetAllLength(),
		TopChamfer:    chamferOf(core.PerVerge),
		BottomChamfer: chamferOf(core.BackVerge),
		FloorAngle:    180,
		Taper:         core.Angle,
	}, core.HasThread)
	for i := len(h.AntiCounterMessage) - 1; i >= 0; i-- {
		c := h.AntiCounterMessage[i]
		add(Step{
			Diameter:      2 * c.Radius,
			Depth:         c.GetAllLength(),
			BottomChamfer: chamferOf(c.Verge),
			FloorAngle:    180,
		}, c.HasThread)
	}
	return steps, first
}

func threadAt(h hole.CommonHole, i int, steps []Step) ThreadSpec {
	var t hole.Thread
	switch {
	case i < len(h.CounterMessage):
		t = h.CounterMessage[i].Thread
	case i == len(h.CounterMessage):
		t = h.HoleMessage.Thread
	default:
		k := len(h.AntiCounterMessage) - 1 - (i - len(h.CounterMessage) - 1)
		t = h.AntiCounterMessage[k].Thread
	}
	return threadSpec(t, i+1, steps[i].Diameter/2)
}

func floorAngle(c hole.Counter) float64 {
	switch c := c.(type) {
	case hole.DrilledCounter:
		return c.Angle
	case hole.Countersink:
		return c.Degree
	}
	return 180
}

func bottomAngle(b hole.Bottom) float64 {
	if c, ok := b.(hole.Cusp); ok {
		return c.Angle
	}
	return 180
}

func verge(v hole.Verge) hole.Verge {
	if v == nil {
		return hole.Sharp{}
	}
	return v
}
