package memkernel

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/holefind/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrInvalidSpec is returned when a plate or hole specification cannot be
// laid out.
var ErrInvalidSpec = errors.New("invalid specification")

// Side selects the plate face a hole is drilled from.
type Side int

const (
	Top Side = iota
	Bottom
)

func (s Side) String() string {
	if s == Bottom {
		return "bottom"
	}
	return "top"
}

// Floor is the end of a blind core bore.
type Floor int

const (
	FlatFloor Floor = iota
	DrillPoint
)

// Plate is a rectangular block with its minimum corner at the origin.
type Plate struct {
	Length    float64 `yaml:"length"`
	Width     float64 `yaml:"width"`
	Thickness float64 `yaml:"thickness"`
}

// Stage is one counter stage above the core bore, listed from the mouth
// inwards. Depth is the stage's axial length including its own chamfer or
// fillet. A stage with SinkAngle set is a countersink cone that narrows to
// the next radius; its depth follows from the angle. FloorAngle replaces the
// flat shoulder below the stage with a drilled cone.
type Stage struct {
	Radius     float64 `yaml:"radius"`
	Depth      float64 `yaml:"depth,omitempty"`
	Chamfer    float64 `yaml:"chamfer,omitempty"`
	Fillet     float64 `yaml:"fillet,omitempty"`
	SinkAngle  float64 `yaml:"sink_angle,omitempty"`
	FloorAngle float64 `yaml:"floor_angle,omitempty"`
}

// Groove is an internal relief in the core bore. Offset is measured from
// the top of the core bore.
type Groove struct {
	Offset float64 `yaml:"offset"`
	Depth  float64 `yaml:"depth"`
	Radius float64 `yaml:"radius"`
}

// Thread places cosmetic thread indicator circles along a hole. Start is the
// depth below the mouth where the thread begins. Offset displaces the
// circles off the hole axis.
type Thread struct {
	Radius float64 `yaml:"radius"`
	Start  float64 `yaml:"start,omitempty"`
	Length float64 `yaml:"length"`
	Pitch  float64 `yaml:"pitch,omitempty"`
	Offset v3.Vec  `yaml:"offset,omitempty"`
}

// Hole describes one hole drilled perpendicular to the plate.
type Hole struct {
	X, Y float64
	Side Side

	// Counters are the stages above the core, from the mouth inwards.
	Counters []Stage
	// BackCounters are exit side stages of a through hole, from the exit
	// mouth inwards.
	BackCounters []Stage

	Radius  float64 // core bore radius
	Depth   float64 // core length for blind holes, mouth treatment included
	Through bool
	Taper   float64 // core semi-angle in degrees; the core narrows with depth

	Chamfer     float64 // core mouth chamfer, when the core starts at a mouth or shoulder
	Fillet      float64 // core mouth fillet, only without counters
	ExitChamfer float64

	Floor    Floor
	TipAngle float64 // included drill point angle in degrees, default 118

	Grooves []Groove
	Threads []Thread
}

// Boss is a cylindrical pin standing on the top face.
type Boss struct {
	X, Y   float64
	Radius float64
	Height float64
}

// Builder assembles a plate model face by face.
type Builder struct {
	plate  Plate
	split  bool
	model  *Model
	nextF  kernel.FaceID
	nextE  kernel.EdgeID
	top    kernel.FaceID
	bottom kernel.FaceID
	topZ   float64
}

// NewBuilder starts a model for the given plate. The six stock faces are
// created immediately.
func NewBuilder(p Plate) *Builder {
	b := &Builder{plate: p, model: &Model{}, topZ: p.Thickness}
	b.model.Box = sdf.Box3{
		Min: v3.Vec{},
		Max: v3.Vec{X: p.Length, Y: p.Width, Z: p.Thickness},
	}
	b.stock()
	return b
}

// SplitFaces makes every hole face come out as two half faces joined by
// seam edges, as many kernels store closed periodic surfaces.
func (b *Builder) SplitFaces(on bool) *Builder {
	b.split = on
	return b
}

// Name sets the model name.
func (b *Builder) Name(name string) *Builder {
	b.model.Name = name
	return b
}

// Build returns the finished model. The builder must not be used afterwards.
func (b *Builder) Build() *Model {
	b.model.reindex()
	return b.model
}

func (b *Builder) face(s kernel.Surface, bounds kernel.Bounds, inward bool) kernel.FaceID {
	id := b.nextF
	b.nextF++
	b.model.FaceList = append(b.model.FaceList, kernel.Face{ID: id, Surface: s, Bounds: bounds, Inward: inward})
	return id
}

func (b *Builder) edge(f1, f2 kernel.FaceID, c kernel.Concavity, circle *kernel.Circle) {
	id := b.nextE
	b.nextE++
	b.model.EdgeList = append(b.model.EdgeList, EdgeRecord{
		Edge:      kernel.Edge{ID: id, Faces: [2]kernel.FaceID{f1, f2}, Circle: circle},
		Concavity: c,
	})
}

func (b *Builder) stock() {
	p := b.plate
	mid := v3.Vec{X: p.Length / 2, Y: p.Width / 2, Z: p.Thickness / 2}
	plane := func(loc, n v3.Vec, u, v float64) kernel.FaceID {
		return b.face(kernel.Surface{Type: kernel.Plane, Axis: kernel.Axis{Location: loc, Direction: n}},
			kernel.Bounds{UMin: -u / 2, UMax: u / 2, VMin: -v / 2, VMax: v / 2}, false)
	}
	b.top = plane(v3.Vec{X: mid.X, Y: mid.Y, Z: p.Thickness}, v3.Vec{Z: 1}, p.Length, p.Width)
	b.bottom = plane(v3.Vec{X: mid.X, Y: mid.Y}, v3.Vec{Z: -1}, p.Length, p.Width)
	sides := []kernel.FaceID{
		plane(v3.Vec{Y: mid.Y, Z: mid.Z}, v3.Vec{X: -1}, p.Width, p.Thickness),
		plane(v3.Vec{X: p.Length, Y: mid.Y, Z: mid.Z}, v3.Vec{X: 1}, p.Width, p.Thickness),
		plane(v3.Vec{X: mid.X, Z: mid.Z}, v3.Vec{Y: -1}, p.Length, p.Thickness),
		plane(v3.Vec{X: mid.X, Y: p.Width, Z: mid.Z}, v3.Vec{Y: 1}, p.Length, p.Thickness),
	}
	for i, s := range sides {
		b.edge(b.top, s, kernel.Convex, nil)
		b.edge(b.bottom, s, kernel.Convex, nil)
		// x-min/x-max sides meet both y sides
		if i < 2 {
			b.edge(s, sides[2], kernel.Convex, nil)
			b.edge(s, sides[3], kernel.Convex, nil)
		}
	}
}

// AddBoss stands a pin on the top face.
func (b *Builder) AddBoss(s Boss) error {
	if s.Radius <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: boss radius and height must be positive", ErrInvalidSpec)
	}
	if err := b.inside(s.X, s.Y, s.Radius); err != nil {
		return err
	}
	base := v3.Vec{X: s.X, Y: s.Y, Z: b.plate.Thickness}
	wall := b.face(kernel.Surface{
		Type:   kernel.Cylinder,
		Axis:   kernel.Axis{Location: base, Direction: v3.Vec{Z: 1}},
		Radius: s.Radius,
	}, kernel.Bounds{UMax: 2 * math.Pi, VMax: s.Height}, false)
	capZ := b.plate.Thickness + s.Height
	lid := b.face(kernel.Surface{
		Type: kernel.Plane,
		Axis: kernel.Axis{Location: v3.Vec{X: s.X, Y: s.Y, Z: capZ}, Direction: v3.Vec{Z: 1}},
	}, kernel.Bounds{UMax: s.Radius, VMax: 2 * math.Pi}, false)
	b.edge(b.top, wall, kernel.Concave, &kernel.Circle{Axis: kernel.Axis{Location: base, Direction: v3.Vec{Z: 1}}, Radius: s.Radius})
	b.edge(wall, lid, kernel.Convex, &kernel.Circle{Axis: kernel.Axis{Location: v3.Vec{X: s.X, Y: s.Y, Z: capZ}, Direction: v3.Vec{Z: 1}}, Radius: s.Radius})
	if capZ > b.topZ {
		b.topZ = capZ
		b.model.Box.Max.Z = capZ
	}
	return nil
}

func (b *Builder) inside(x, y, r float64) error {
	p := b.plate
	if x-r <= 0 || y-r <= 0 || x+r >= p.Length || y+r >= p.Width {
		return fmt.Errorf("%w: feature at (%g, %g) radius %g leaves the plate", ErrInvalidSpec, x, y, r)
	}
	return nil
}

// AddHole lays out a hole and adds its faces and edges.
func (b *Builder) AddHole(h Hole) error {
	segs, err := b.layout(h)
	if err != nil {
		return err
	}
	outer := h.Radius
	for _, s := range segs {
		outer = math.Max(outer, math.Max(s.r0, s.r1))
	}
	if err := b.inside(h.X, h.Y, outer); err != nil {
		return err
	}

	// Hole frame: entry mouth and drilling direction.
	entry, exit := b.top, b.bottom
	mouth := v3.Vec{X: h.X, Y: h.Y, Z: b.plate.Thickness}
	dir := v3.Vec{Z: -1}
	if h.Side == Bottom {
		entry, exit = b.bottom, b.top
		mouth = v3.Vec{X: h.X, Y: h.Y}
		dir = v3.Vec{Z: 1}
	}
	frame := kernel.Axis{Location: mouth, Direction: dir}

	ids := make([][]kernel.FaceID, len(segs))
	for i, s := range segs {
		ids[i] = b.segFaces(s, frame)
	}
	circle := func(t, r float64) *kernel.Circle {
		return &kernel.Circle{Axis: kernel.Axis{Location: frame.Point(t), Direction: dir}, Radius: r}
	}
	link := func(a, c []kernel.FaceID, conc kernel.Concavity, t, r float64) {
		for k := 0; k < max(len(a), len(c)); k++ {
			b.edge(a[k%len(a)], c[k%len(c)], conc, circle(t, r))
		}
	}
	stock := []kernel.FaceID{entry}
	link(stock, ids[0], joint(entryDir, segs[0].startDir()), segs[0].t0, segs[0].r0)
	for i := 1; i < len(segs); i++ {
		prev, cur := segs[i-1], segs[i]
		link(ids[i-1], ids[i], joint(prev.endDir(), cur.startDir()), cur.t0, cur.r0)
	}
	if h.Through {
		last := segs[len(segs)-1]
		link(ids[len(segs)-1], []kernel.FaceID{exit}, joint(last.endDir(), exitDir), last.t1, last.r1)
	}
	for _, halves := range ids {
		if len(halves) == 2 {
			// seams between the two halves
			b.edge(halves[0], halves[1], kernel.Crossover, nil)
			b.edge(halves[0], halves[1], kernel.Crossover, nil)
		}
	}

	for _, th := range h.Threads {
		b.threadCircles(th, frame)
	}
	return nil
}

// layout validates the hole and returns its profile in depth order.
func (b *Builder) layout(h Hole) ([]seg, error) {
	H := b.plate.Thickness
	if h.Radius <= 0 {
		return nil, fmt.Errorf("%w: hole radius must be positive", ErrInvalidSpec)
	}
	if err := checkStages(h.Counters, h.Radius+h.Chamfer+h.Fillet); err != nil {
		return nil, err
	}
	if err := checkStages(h.BackCounters, h.Radius+h.ExitChamfer); err != nil {
		return nil, err
	}
	if h.Fillet > 0 && len(h.Counters) > 0 {
		return nil, fmt.Errorf("%w: core fillet needs the core to start at the mouth", ErrInvalidSpec)
	}
	if !h.Through && (len(h.BackCounters) > 0 || h.ExitChamfer > 0) {
		return nil, fmt.Errorf("%w: exit features need a through hole", ErrInvalidSpec)
	}

	front, start := emitStack(h.Counters, h.Radius, h.Chamfer, h.Fillet)
	end := start + h.Depth - h.Chamfer - h.Fillet
	var back []seg
	if h.Through {
		stack, l := emitStack(h.BackCounters, h.Radius, h.ExitChamfer, 0)
		for i := len(stack) - 1; i >= 0; i-- {
			back = append(back, stack[i].mirror(H))
		}
		end = H - l
	}
	if end-start <= 0 {
		return nil, fmt.Errorf("%w: no room for the core bore", ErrInvalidSpec)
	}

	var core []seg
	if h.Taper > 0 {
		if len(h.Grooves) > 0 {
			return nil, fmt.Errorf("%w: grooves need a cylindrical core", ErrInvalidSpec)
		}
		core = taperSegs(start, end, h.Radius, h.Taper)
		if core[0].r1 <= 0 {
			return nil, fmt.Errorf("%w: taper closes before the core ends", ErrInvalidSpec)
		}
	} else {
		prev := 0.0
		for _, g := range h.Grooves {
			if g.Offset <= prev || g.Radius <= h.Radius || g.Depth <= 0 || start+g.Offset+g.Depth >= end {
				return nil, fmt.Errorf("%w: groove at offset %g does not fit the core", ErrInvalidSpec, g.Offset)
			}
			prev = g.Offset + g.Depth
		}
		core = coreSegs(start, end, h.Radius, h.Grooves)
	}

	segs := append(front, core...)
	if h.Through {
		segs = append(segs, back...)
	} else {
		r := core[len(core)-1].r1
		switch h.Floor {
		case DrillPoint:
			tip := h.TipAngle
			if tip <= 0 {
				tip = 118
			}
			l := r / math.Tan(tip*math.Pi/360)
			segs = append(segs, coneSeg(end, end+l, r, 0))
			end += l
		default:
			segs = append(segs, planeSeg(end, r, 0))
		}
		if end >= H {
			return nil, fmt.Errorf("%w: blind hole breaks through the plate", ErrInvalidSpec)
		}
	}
	return segs, nil
}

// checkStages validates a counter stack against the radius at which the
// core's mouth opens.
func checkStages(stages []Stage, core float64) error {
	for i, st := range stages {
		next := core
		if i+1 < len(stages) {
			next = stages[i+1].mouth()
		}
		if st.Radius <= next {
			return fmt.Errorf("%w: stage %d radius %g must exceed %g", ErrInvalidSpec, i, st.Radius, next)
		}
		if st.SinkAngle > 0 {
			continue
		}
		if st.Depth <= st.Chamfer+st.Fillet {
			return fmt.Errorf("%w: stage %d is too shallow", ErrInvalidSpec, i)
		}
	}
	return nil
}

// segFaces turns a profile segment into one face, or two half faces when
// splitting is on.
func (b *Builder) segFaces(s seg, frame kernel.Axis) []kernel.FaceID {
	surf, bounds, inward := surfaceOf(s, frame)
	if !b.split {
		return []kernel.FaceID{b.face(surf, bounds, inward)}
	}
	a, c := bounds, bounds
	if s.kind == kernel.Plane {
		a.VMax, c.VMin = math.Pi, math.Pi
	} else {
		a.UMax, c.UMin = math.Pi, math.Pi
	}
	return []kernel.FaceID{b.face(surf, a, inward), b.face(surf, c, inward)}
}

// surfaceOf places a profile segment in world space. Cylinders use a world
// +Z style axis anchored at the plate origin height, cones point towards
// their wide end, tori point back towards the mouth.
func surfaceOf(s seg, frame kernel.Axis) (kernel.Surface, kernel.Bounds, bool) {
	d := frame.Direction
	switch s.kind {
	case kernel.Cylinder:
		axis := frame.Canonical()
		base := frame.Point(0)
		origin := base.Sub(axis.Direction.MulScalar(base.Dot(axis.Direction)))
		axis.Location = origin
		v0, v1 := axis.Station(frame.Point(s.t0)), axis.Station(frame.Point(s.t1))
		return kernel.Surface{Type: kernel.Cylinder, Axis: axis, Radius: s.r0},
			kernel.Bounds{UMax: 2 * math.Pi, VMin: math.Min(v0, v1), VMax: math.Max(v0, v1)}, true
	case kernel.Cone:
		l := s.t1 - s.t0
		semi := math.Atan(math.Abs(s.r1-s.r0) / l)
		slant := l / math.Cos(semi)
		axis := kernel.Axis{Location: frame.Point(s.t0), Direction: d}
		r := s.r0
		if s.r1 < s.r0 {
			axis = kernel.Axis{Location: frame.Point(s.t1), Direction: d.MulScalar(-1)}
			r = s.r1
		}
		return kernel.Surface{Type: kernel.Cone, Axis: axis, Radius: r, SemiAngle: semi},
			kernel.Bounds{UMax: 2 * math.Pi, VMax: slant}, true
	case kernel.Torus:
		axis := kernel.Axis{Location: frame.Point(s.tc), Direction: d.MulScalar(-1)}
		v := func(t, r float64) float64 {
			return math.Atan2((s.tc-t)/s.minor, (r-s.rc)/s.minor)
		}
		v0, v1 := v(s.t0, s.r0), v(s.t1, s.r1)
		return kernel.Surface{Type: kernel.Torus, Axis: axis, Radius: s.rc, MinorRadius: s.minor},
			kernel.Bounds{UMax: 2 * math.Pi, VMin: math.Min(v0, v1), VMax: math.Max(v0, v1)}, true
	}
	// Plane: the normal points into the void, back towards the mouth for a
	// step inwards and away from it for a step outwards.
	n := d.MulScalar(-1)
	if s.r1 > s.r0 {
		n = d
	}
	return kernel.Surface{Type: kernel.Plane, Axis: kernel.Axis{Location: frame.Point(s.t0), Direction: n}},
		kernel.Bounds{UMin: math.Min(s.r0, s.r1), UMax: math.Max(s.r0, s.r1), VMax: 2 * math.Pi}, false
}

func (b *Builder) threadCircles(th Thread, frame kernel.Axis) {
	add := func(t float64) {
		b.model.Threads = append(b.model.Threads, kernel.Circle{
			Axis:   kernel.Axis{Location: frame.Point(t).Add(th.Offset), Direction: frame.Direction},
			Radius: th.Radius,
		})
	}
	if th.Pitch <= 0 || th.Length/th.Pitch > 1000 {
		add(th.Start)
		add(th.Start + th.Length)
		return
	}
	n := int(math.Floor(th.Length/th.Pitch + 1e-9))
	for k := 0; k <= n; k++ {
		add(th.Start + float64(k)*th.Pitch)
	}
}
