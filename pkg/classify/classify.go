// Package classify turns the face nodes of one extracted hole into a typed
// hole.CommonHole: it orders the faces along the axis, finds the core bore
// and reads the counter stages, grooves and bottom off the profile.
package classify

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/chazu/holefind/pkg/hole"
	"github.com/chazu/holefind/pkg/kernel"
	"golang.org/x/sync/errgroup"
)

// ErrUnrecognized is returned for face groups whose profile does not read as
// a hole. Callers route such groups to the error bucket.
var ErrUnrecognized = errors.New("unrecognized hole geometry")

// Options tune classification.
type Options struct {
	Tolerance kernel.Tolerance
	// ChamferRatio: a cone at the top of a stage whose radial width is at
	// most this fraction of its small radius is a chamfer, otherwise a stage.
	ChamferRatio float64
	// FilletRatio: the same threshold for tori, on the tube radius.
	FilletRatio float64
	// Workers bounds DefineAll's concurrency; zero means GOMAXPROCS.
	Workers int
}

// DefaultOptions are the thresholds used when nothing is configured.
var DefaultOptions = Options{
	Tolerance:    kernel.DefaultTolerance,
	ChamferRatio: 0.5,
	FilletRatio:  0.5,
}

func unrecognized(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnrecognized, fmt.Sprintf(format, args...))
}

// piece is one surface of the profile after split faces are merged. Radii
// are at the shallow (r0) and deep (r1) ends; for planes they are filled in
// by the contiguity walk as the radius before and after the step.
type piece struct {
	kind   kernel.SurfaceType
	t0, t1 float64
	r0, r1 float64
	outer  float64 // planes only
	inner  float64 // planes only
	minor  float64
	semi   float64 // degrees
	major  float64
	nodes  []hole.FaceNode
}

func (p piece) length() float64 { return p.t1 - p.t0 }

// mirror re-expresses the piece from the far end of a profile of the given
// total length.
func (p piece) mirror(total float64) piece {
	m := p
	m.t0, m.t1 = total-p.t1, total-p.t0
	m.r0, m.r1 = p.r1, p.r0
	return m
}

// DefineHole classifies one hole. The face nodes must share a hole frame
// with stations measured from the entry mouth.
func DefineHole(faces []hole.FaceNode, opts Options) (hole.CommonHole, error) {
	if len(faces) == 0 {
		return hole.CommonHole{}, unrecognized("no faces")
	}
	tol := opts.Tolerance.Linear

	ordered := append([]hole.FaceNode(nil), faces...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if math.Abs(a.UpStation-b.UpStation) > tol {
			return a.UpStation < b.UpStation
		}
		return a.DownStation < b.DownStation-tol
	})

	pieces, err := profile(merge(ordered, tol), tol)
	if err != nil {
		return hole.CommonHole{}, err
	}

	through, indirect := false, false
	for _, f := range ordered {
		switch f.Opening {
		case hole.ExitOpening:
			through = true
		case hole.IndirectOpening:
			through, indirect = true, true
		}
	}

	i0, i1, tapered, err := findCore(pieces, tol)
	if err != nil {
		return hole.CommonHole{}, err
	}
	core := pieces[i0]
	coreTop, coreBottom := core.t0, pieces[i1].t1

	sinks, coreParts, err := grooves(pieces[i0:i1+1], coreTop, tol)
	if err != nil {
		return hole.CommonHole{}, err
	}

	counters, perVerge, err := stack(pieces[:i0], opts)
	if err != nil {
		return hole.CommonHole{}, err
	}

	var (
		anti      []hole.CountersunkProperty
		backVerge hole.Verge = hole.Sharp{}
		bottom    hole.Bottom
	)
	tail := pieces[i1+1:]
	if through {
		total := coreBottom
		if len(tail) > 0 {
			total = tail[len(tail)-1].t1
		}
		mirrored := make([]piece, len(tail))
		for i, p := range tail {
			mirrored[len(tail)-1-i] = p.mirror(total)
		}
		anti, backVerge, err = stack(mirrored, opts)
		if err != nil {
			return hole.CommonHole{}, err
		}
		if indirect {
			bottom = hole.IndirectThrough{}
		} else {
			bottom = hole.Through{ChamferDepth: backVerge.Length(), Offset: stackLength(anti)}
		}
	} else {
		backVerge, bottom, err = floor(tail, tol)
		if err != nil {
			return hole.CommonHole{}, err
		}
	}

	h := hole.Hole{
		PerVerge:  perVerge,
		BackVerge: backVerge,
		Radius:    core.r0,
		Depth:     coreBottom - coreTop,
		Parts:     coreParts,
	}
	typ := hole.EasyHole
	switch {
	case tapered:
		h.Angle = core.semi
		typ = hole.TaperedHole
	case len(sinks) > 0:
		typ = hole.OtherHole
	case len(counters)+len(anti) > 0:
		typ = hole.CounterboreHole
	}

	return hole.NewCommonHole(ordered[0].Axis, typ, bottom, h, counters, anti, sinks, ordered), nil
}

// DefineAll classifies independent face groups concurrently. Results and
// errors are positional: exactly one of holes[i] and errs[i] is meaningful.
func DefineAll(groups [][]hole.FaceNode, opts Options) ([]hole.CommonHole, []error) {
	holes := make([]hole.CommonHole, len(groups))
	errs := make([]error, len(groups))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, faces := range groups {
		g.Go(func() error {
			holes[i], errs[i] = DefineHole(faces, opts)
			return nil
		})
	}
	_ = g.Wait()
	return holes, errs
}

// ---------------------------------------------------------------------------
// Profile assembly
// ---------------------------------------------------------------------------

// merge folds split faces (same surface type, stations and radii) into one
// piece each.
func merge(nodes []hole.FaceNode, tol float64) []piece {
	var out []piece
	for _, n := range nodes {
		p := piece{
			kind:  n.Type,
			t0:    n.UpStation,
			t1:    n.DownStation,
			r0:    n.UpRadius,
			r1:    n.DownRadius,
			minor: n.MinorRadius,
			semi:  n.Angle,
			major: n.Radius,
			nodes: []hole.FaceNode{n},
		}
		if n.Type == kernel.Plane {
			p.outer, p.inner = math.Max(n.UpRadius, n.DownRadius), math.Min(n.UpRadius, n.DownRadius)
		}
		for i := range out {
			q := &out[i]
			if q.kind == p.kind && math.Abs(q.t0-p.t0) <= tol && math.Abs(q.t1-p.t1) <= tol &&
				math.Abs(q.r0-p.r0) <= tol && math.Abs(q.r1-p.r1) <= tol {
				q.nodes = append(q.nodes, n)
				p.nodes = nil
				break
			}
		}
		if p.nodes != nil {
			out = append(out, p)
		}
	}
	return out
}

// profile checks that the pieces form one continuous wall from the mouth
// down and resolves which way each plane steps.
func profile(pieces []piece, tol float64) ([]piece, error) {
	at, rad := 0.0, -1.0
	for i := range pieces {
		p := &pieces[i]
		if math.Abs(p.t0-at) > tol {
			return nil, unrecognized("profile gap at depth %.4g (next face starts at %.4g)", at, p.t0)
		}
		switch p.kind {
		case kernel.Plane:
			switch {
			case rad < 0:
				return nil, unrecognized("hole starts with a plane")
			case math.Abs(rad-p.outer) <= tol:
				p.r0, p.r1 = p.outer, p.inner
			case math.Abs(rad-p.inner) <= tol:
				p.r0, p.r1 = p.inner, p.outer
			default:
				return nil, unrecognized("plane at depth %.4g does not meet radius %.4g", p.t0, rad)
			}
		case kernel.Cylinder, kernel.Cone, kernel.Torus:
			if rad >= 0 && math.Abs(p.r0-rad) > tol {
				return nil, unrecognized("radius jumps from %.4g to %.4g at depth %.4g", rad, p.r0, p.t0)
			}
		default:
			return nil, unrecognized("unsupported %s face in hole", p.kind)
		}
		at, rad = p.t1, p.r1
	}
	return pieces, nil
}

// findCore locates the core bore: the span of minimum radius cylinders, or
// the longest cone when the hole has no cylinder at all.
func findCore(pieces []piece, tol float64) (i0, i1 int, tapered bool, err error) {
	rmin := math.Inf(1)
	for _, p := range pieces {
		if p.kind == kernel.Cylinder {
			rmin = math.Min(rmin, p.r0)
		}
	}
	if !math.IsInf(rmin, 1) {
		i0, i1 = -1, -1
		for i, p := range pieces {
			if p.kind == kernel.Cylinder && math.Abs(p.r0-rmin) <= tol {
				if i0 < 0 {
					i0 = i
				}
				i1 = i
			}
		}
		return i0, i1, false, nil
	}
	best := -1
	for i, p := range pieces {
		if p.kind == kernel.Cone && p.r1 > tol && (best < 0 || p.length() > pieces[best].length()) {
			best = i
		}
	}
	if best < 0 {
		return 0, 0, false, unrecognized("no core bore")
	}
	return best, best, true, nil
}

// grooves reads the core span: core cylinders separated by step-out,
// cylinder, step-in runs.
func grooves(span []piece, coreTop, tol float64) ([]hole.SinkProperty, []hole.FaceNode, error) {
	var (
		sinks []hole.SinkProperty
		parts []hole.FaceNode
	)
	r := span[0].r0
	for i := 0; i < len(span); i++ {
		p := span[i]
		if (p.kind == kernel.Cylinder || p.kind == kernel.Cone) && math.Abs(p.r0-r) <= tol {
			parts = append(parts, p.nodes...)
			continue
		}
		if i+2 >= len(span) || p.kind != kernel.Plane || p.r1 <= p.r0 ||
			span[i+1].kind != kernel.Cylinder || span[i+2].kind != kernel.Plane {
			return nil, nil, unrecognized("unsupported core shape at depth %.4g", p.t0)
		}
		wall, out := span[i+1], span[i+2]
		sinks = append(sinks, hole.SinkProperty{
			Offset: wall.t0 - coreTop,
			Depth:  wall.length(),
			Radius: wall.r0,
			Parts:  append(append(append([]hole.FaceNode(nil), p.nodes...), wall.nodes...), out.nodes...),
		})
		i += 2
	}
	return sinks, parts, nil
}

// stack reads the counter stages of one side, from its mouth towards the
// core. The verge left pending at the end belongs to the core.
func stack(pieces []piece, opts Options) ([]hole.CountersunkProperty, hole.Verge, error) {
	tol := opts.Tolerance.Linear
	var (
		stages []hole.CountersunkProperty
		verge  hole.Verge = hole.Sharp{}
		open              = -1 // stage still accepting its floor
	)
	push := func(c hole.CountersunkProperty) {
		c.Verge = verge
		verge = hole.Sharp{}
		stages = append(stages, c)
	}
	// leadsIntoBody reports whether piece i is followed by a stage wall
	// rather than a shoulder.
	leadsIntoBody := func(i int) bool {
		return i+1 >= len(pieces) || pieces[i+1].kind != kernel.Plane
	}

	for i, p := range pieces {
		switch p.kind {
		case kernel.Plane:
			if p.r1 > p.r0+tol {
				return nil, nil, unrecognized("undercut at depth %.4g", p.t0)
			}
			open = -1

		case kernel.Cone:
			if p.r1 >= p.r0-tol {
				return nil, nil, unrecognized("cone widens inwards at depth %.4g", p.t0)
			}
			if open >= 0 {
				st := &stages[open]
				st.Counter = hole.DrilledCounter{Angle: 2 * p.semi}
				st.Depth += p.length()
				st.Parts = append(st.Parts, p.nodes...)
				open = -1
				continue
			}
			if p.r0-p.r1 <= opts.ChamferRatio*p.r1+tol && leadsIntoBody(i) {
				verge = hole.Chamfer{Depth: p.length(), Angle: p.semi, Parts: p.nodes}
				continue
			}
			var c hole.Counter = hole.TaperedCounter{Angle: p.semi}
			if i == 0 {
				c = hole.Countersink{Degree: 2 * p.semi}
			}
			push(hole.CountersunkProperty{Counter: c, Radius: p.r0, Depth: p.length(), Parts: p.nodes})

		case kernel.Torus:
			if open >= 0 {
				st := &stages[open]
				st.Depth += p.length()
				st.Parts = append(st.Parts, p.nodes...)
				continue
			}
			if p.minor <= opts.FilletRatio*p.r1+tol && leadsIntoBody(i) {
				verge = hole.Fillet{Radius: p.minor, Parts: p.nodes}
				continue
			}
			push(hole.CountersunkProperty{
				Counter: hole.TorusCounter{
					TopRadius:    p.r0,
					BottomRadius: p.r1,
					Radius:       p.minor,
					Inner:        p.major < math.Max(p.r0, p.r1)-tol,
				},
				Radius: math.Max(p.r0, p.r1),
				Depth:  p.length(),
				Parts:  p.nodes,
			})

		case kernel.Cylinder:
			if open >= 0 {
				return nil, nil, unrecognized("stage at depth %.4g has no shoulder", p.t0)
			}
			push(hole.CountersunkProperty{Counter: hole.Counterbore{}, Radius: p.r0, Depth: p.length(), Parts: p.nodes})
			open = len(stages) - 1

		default:
			return nil, nil, unrecognized("unsupported %s face in counter stack", p.kind)
		}
	}
	return stages, verge, nil
}

// floor reads the end of a blind hole below its core.
func floor(tail []piece, tol float64) (hole.Verge, hole.Bottom, error) {
	disc := func(p piece) bool { return p.kind == kernel.Plane && p.r1 <= tol }
	switch {
	case len(tail) == 1 && disc(tail[0]):
		return hole.Sharp{}, hole.Flatten{}, nil
	case len(tail) == 1 && tail[0].kind == kernel.Cone && tail[0].r1 <= tol:
		return hole.Sharp{}, hole.Cusp{Angle: 2 * tail[0].semi}, nil
	case len(tail) == 2 && tail[0].kind == kernel.Torus && disc(tail[1]):
		return hole.Fillet{Radius: tail[0].minor, Parts: tail[0].nodes}, hole.Flatten{}, nil
	case len(tail) == 2 && tail[0].kind == kernel.Cone && disc(tail[1]):
		return hole.Chamfer{Depth: tail[0].length(), Angle: tail[0].semi, Parts: tail[0].nodes}, hole.Flatten{}, nil
	case len(tail) == 0:
		return nil, nil, unrecognized("blind hole without a floor")
	}
	return nil, nil, unrecognized("unsupported floor with %d faces", len(tail))
}

func stackLength(stack []hole.CountersunkProperty) float64 {
	l := 0.0
	for _, c := range stack {
		l += c.GetAllLength()
	}
	return l
}
