package aag

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/holefind/pkg/hole"
	"github.com/chazu/holefind/pkg/kernel"
)

// Status is the triage outcome for one face group.
type Status int

const (
	// Recognized groups read as a hole and classify cleanly.
	Recognized Status = iota
	// Complex groups are ambiguous: intersecting features, mid-hole
	// openings, foreign boundaries.
	Complex
	// Unrecognized groups are consistent but not a hole the classifier
	// understands, or closed cavities.
	Unrecognized
)

func (s Status) String() string {
	switch s {
	case Recognized:
		return "recognized"
	case Complex:
		return "complex"
	case Unrecognized:
		return "unrecognized"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Group is one walked face group with its triage status. Nodes are expressed
// in the hole frame when one could be established, otherwise in the seed
// face's canonical axis frame.
type Group struct {
	Status Status
	Reason string
	Nodes  []hole.FaceNode
}

// Indices returns the node indices of the group in ascending order.
func (gr Group) Indices() []int {
	out := make([]int, len(gr.Nodes))
	for i, n := range gr.Nodes {
		out[i] = n.Index
	}
	sort.Ints(out)
	return out
}

type visitSet []bool

func newVisitSet(n int) visitSet { return make(visitSet, n) }

// holeFace reports whether node i can belong to a hole: a revolved face
// whose material lies away from its axis.
func (g *Graph) holeFace(i int) bool {
	f := g.Nodes[i].Face
	switch f.Surface.Type {
	case kernel.Cylinder, kernel.Cone, kernel.Torus:
		return f.Inward
	}
	return false
}

func (g *Graph) perpendicularPlane(i int, axis kernel.Axis, tol kernel.Tolerance) bool {
	s := g.Nodes[i].Face.Surface
	return s.Type == kernel.Plane && kernel.Parallel(s.Axis.Direction, axis.Direction, tol)
}

func (g *Graph) coaxialHoleFace(i int, axis kernel.Axis, tol kernel.Tolerance) bool {
	return g.holeFace(i) && kernel.IsCoaxial(axis, g.Nodes[i].Face.Surface.Axis, tol)
}

// enclosed reports whether plane i is a shoulder or floor inside a hole:
// every neighbour is a coaxial hole face or a coplanar piece of the same
// plane.
func (g *Graph) enclosed(i int, axis kernel.Axis, tol kernel.Tolerance) bool {
	if !g.perpendicularPlane(i, axis, tol) {
		return false
	}
	at := axis.Station(g.Nodes[i].Face.Surface.Axis.Location)
	for _, l := range g.Nodes[i].Links {
		nb := l.Neighbor
		if g.coaxialHoleFace(nb, axis, tol) {
			continue
		}
		if g.perpendicularPlane(nb, axis, tol) &&
			math.Abs(axis.Station(g.Nodes[nb].Face.Surface.Axis.Location)-at) <= tol.Linear {
			continue
		}
		return false
	}
	return len(g.Nodes[i].Links) > 0
}

// walk collects the face group around seed: coaxial hole faces and the
// planes they enclose. Members are marked in seen.
func (g *Graph) walk(seed int, seen visitSet, tol kernel.Tolerance) ([]int, kernel.Axis) {
	axis := g.Nodes[seed].Face.Surface.Axis.Canonical()
	members := []int{seed}
	seen[seed] = true
	for q := 0; q < len(members); q++ {
		for _, l := range g.Nodes[members[q]].Links {
			nb := l.Neighbor
			if seen[nb] {
				continue
			}
			if g.coaxialHoleFace(nb, axis, tol) || g.enclosed(nb, axis, tol) {
				seen[nb] = true
				members = append(members, nb)
			}
		}
	}
	sort.Ints(members)
	return members, axis
}

// mouth records a boundary of the group that opens at one of its ends.
type mouth struct {
	member   int
	end      int // 0: low station end, 1: high station end, -1: unresolved
	indirect bool
	both     bool // indirect mouth on a member touching both ends
}

// analyze triages a walked group and, when it reads as a hole, expresses
// its faces in the hole frame.
func (g *Graph) analyze(members []int, axis kernel.Axis, tol kernel.Tolerance) Group {
	in := make(map[int]bool, len(members))
	for _, m := range members {
		in[m] = true
	}

	spans := make(map[int][2]float64, len(members))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, m := range members {
		a, b, _ := kernel.AxialSpan(g.Nodes[m].Face, axis)
		spans[m] = [2]float64{a.Station, b.Station}
		lo, hi = math.Min(lo, a.Station), math.Max(hi, b.Station)
	}
	touches := func(m int) (bool, bool) {
		s := spans[m]
		return math.Abs(s[0]-lo) <= tol.Linear, math.Abs(s[1]-hi) <= tol.Linear
	}
	fail := func(st Status, format string, args ...any) Group {
		return Group{Status: st, Reason: fmt.Sprintf(format, args...), Nodes: g.nodes(members, axis, lo, nil, -1, tol)}
	}

	var mouths []mouth
	for _, m := range members {
		for _, l := range g.Nodes[m].Links {
			nb := l.Neighbor
			if in[nb] {
				continue
			}
			switch {
			case g.perpendicularPlane(nb, axis, tol):
				at := axis.Station(g.Nodes[nb].Face.Surface.Axis.Location)
				end := -1
				switch {
				case math.Abs(at-lo) <= tol.Linear:
					end = 0
				case math.Abs(at-hi) <= tol.Linear:
					end = 1
				}
				if end < 0 {
					return fail(Complex, "face %d opens onto plane %d inside the hole", m, nb)
				}
				if l.Concavity == kernel.Concave {
					return fail(Unrecognized, "concave edge between face %d and mouth plane %d", m, nb)
				}
				mouths = append(mouths, mouth{member: m, end: end})
			case g.holeFace(nb):
				atLo, atHi := touches(m)
				switch {
				case atLo && atHi:
					mouths = append(mouths, mouth{member: m, end: -1, indirect: true, both: true})
				case atLo:
					mouths = append(mouths, mouth{member: m, end: 0, indirect: true})
				case atHi:
					mouths = append(mouths, mouth{member: m, end: 1, indirect: true})
				default:
					return fail(Complex, "face %d meets intersecting hole face %d mid hole", m, nb)
				}
			default:
				return fail(Complex, "face %d borders foreign %s face %d", m, g.Nodes[nb].Face.Surface.Type, nb)
			}
		}
	}

	var stock, indirect [2]bool
	for _, mo := range mouths {
		if !mo.indirect {
			stock[mo.end] = true
		}
	}
	for i, mo := range mouths {
		if !mo.both {
			continue
		}
		switch {
		case stock[0] && !stock[1]:
			mouths[i].end = 1
		case stock[1] && !stock[0]:
			mouths[i].end = 0
		default:
			return fail(Complex, "cannot tell which end of face %d meets the intersecting hole", mo.member)
		}
	}
	for _, mo := range mouths {
		if mo.indirect && !stock[mo.end] {
			indirect[mo.end] = true
		}
	}

	open := [2]bool{stock[0] || indirect[0], stock[1] || indirect[1]}
	entry := -1
	switch {
	case !open[0] && !open[1]:
		return fail(Unrecognized, "closed cavity")
	case open[0] && open[1]:
		switch {
		case stock[1]:
			entry = 1
		case stock[0]:
			entry = 0
		}
	case open[1] && stock[1]:
		entry = 1
	case open[0] && stock[0]:
		entry = 0
	}
	if entry < 0 {
		return fail(Complex, "hole is only reachable through another feature")
	}

	frame := kernel.Axis{Location: axis.Point(hi), Direction: axis.Direction.MulScalar(-1)}
	if entry == 0 {
		frame = kernel.Axis{Location: axis.Point(lo), Direction: axis.Direction}
	}
	return Group{Status: Recognized, Nodes: g.nodes(members, frame, 0, mouths, entry, tol)}
}

// nodes expresses members in the given frame, shifting stations by origin.
func (g *Graph) nodes(members []int, frame kernel.Axis, origin float64, mouths []mouth, entry int, tol kernel.Tolerance) []hole.FaceNode {
	in := make(map[int]bool, len(members))
	for _, m := range members {
		in[m] = true
	}
	opening := make(map[int]hole.Opening)
	for _, mo := range mouths {
		o := hole.EntryOpening
		switch {
		case mo.end != entry && mo.indirect:
			o = hole.IndirectOpening
		case mo.end != entry:
			o = hole.ExitOpening
		}
		if o > opening[mo.member] {
			opening[mo.member] = o
		}
	}

	out := make([]hole.FaceNode, 0, len(members))
	for _, m := range members {
		f := g.Nodes[m].Face
		a, b, _ := kernel.AxialSpan(f, frame)
		n := hole.FaceNode{
			Index:       m,
			Face:        f.ID,
			Type:        f.Surface.Type,
			Axis:        kernel.Axis{Location: frame.Point(origin), Direction: frame.Direction},
			UpStation:   a.Station - origin,
			DownStation: b.Station - origin,
			UpRadius:    a.Radius,
			DownRadius:  b.Radius,
			Radius:      f.Surface.Radius,
			MinorRadius: f.Surface.MinorRadius,
			Angle:       f.Surface.SemiAngle * 180 / math.Pi,
			Opening:     opening[m],
		}
		if f.Surface.Type == kernel.Plane {
			n.UpRadius, n.DownRadius = g.planeRadii(m, tol)
		}
		n.Up, n.Down = n.Axis.Point(n.UpStation), n.Axis.Point(n.DownStation)
		n.Depth = n.DownStation - n.UpStation
		for _, nb := range g.Neighbors(m) {
			if in[nb] {
				n.Next = append(n.Next, nb)
			}
		}
		out = append(out, n)
	}
	return out
}

// planeRadii returns the outer and inner radii of an annular plane from its
// circular edges. A disc has inner radius zero.
func (g *Graph) planeRadii(i int, tol kernel.Tolerance) (outer, inner float64) {
	var radii []float64
	for _, l := range g.Nodes[i].Links {
		e, ok := g.Edges[l.Edge]
		if !ok || e.Circle == nil {
			continue
		}
		r := e.Circle.Radius
		dup := false
		for _, x := range radii {
			if math.Abs(x-r) <= tol.Linear {
				dup = true
				break
			}
		}
		if !dup {
			radii = append(radii, r)
		}
	}
	if len(radii) == 0 {
		return 0, 0
	}
	sort.Float64s(radii)
	outer = radii[len(radii)-1]
	if len(radii) > 1 {
		inner = radii[0]
	}
	return outer, inner
}
