package memkernel

import (
	"math"

	"github.com/chazu/holefind/pkg/kernel"
)

// dir2 is a direction in the (depth, radius) half plane of a hole profile.
type dir2 struct{ t, r float64 }

func (d dir2) norm() dir2 {
	l := math.Hypot(d.t, d.r)
	if l == 0 {
		return d
	}
	return dir2{d.t / l, d.r / l}
}

// seg is one revolved face of a hole profile, described in the hole's own
// frame: t is depth below the entry mouth, r is radius about the hole axis.
// Segments run in depth order; r0 and r1 are the radii where the segment
// starts and ends. A plane seg has t0 == t1 and steps from r0 to r1.
type seg struct {
	kind   kernel.SurfaceType
	t0, t1 float64
	r0, r1 float64

	// torus only: tube centre in profile coordinates and tube radius
	tc, rc, minor float64
	start, end   dir2
}

func cylSeg(t0, t1, r float64) seg {
	return seg{kind: kernel.Cylinder, t0: t0, t1: t1, r0: r, r1: r}
}

func coneSeg(t0, t1, r0, r1 float64) seg {
	return seg{kind: kernel.Cone, t0: t0, t1: t1, r0: r0, r1: r1}
}

func planeSeg(t, from, to float64) seg {
	return seg{kind: kernel.Plane, t0: t, t1: t, r0: from, r1: to}
}

// filletSeg is a quarter-round blending a plane at depth t into a bore of
// radius r below it.
func filletSeg(t, r, rho float64) seg {
	return seg{
		kind: kernel.Torus, t0: t, t1: t + rho, r0: r + rho, r1: r,
		tc: t + rho, rc: r + rho, minor: rho,
		start: dir2{0, -1}, end: dir2{1, 0},
	}
}

func (s seg) startDir() dir2 {
	switch s.kind {
	case kernel.Plane:
		return dir2{0, math.Copysign(1, s.r1-s.r0)}
	case kernel.Torus:
		return s.start
	}
	return dir2{s.t1 - s.t0, s.r1 - s.r0}.norm()
}

func (s seg) endDir() dir2 {
	if s.kind == kernel.Torus {
		return s.end
	}
	return s.startDir()
}

// mirror maps a segment generated from the far side of a plate of the given
// thickness into the near side's depth frame. Traversal order flips, so the
// caller reverses the slice.
func (s seg) mirror(thickness float64) seg {
	m := s
	m.t0, m.t1 = thickness-s.t1, thickness-s.t0
	m.r0, m.r1 = s.r1, s.r0
	m.tc = thickness - s.tc
	m.start = dir2{s.end.t, -s.end.r}
	m.end = dir2{s.start.t, -s.start.r}
	return m
}

// joint classifies the edge between two consecutive profile segments (or a
// stock face direction) by how the profile turns relative to the material,
// which lies at larger radius.
func joint(a, b dir2) kernel.Concavity {
	cross := a.t*b.r - a.r*b.t
	switch {
	case cross > 1e-9:
		return kernel.Convex
	case cross < -1e-9:
		return kernel.Concave
	}
	return kernel.Crossover
}

// Stock face directions in the profile frame: the entry face runs inwards to
// the mouth, the exit face runs outwards from it.
var (
	entryDir = dir2{0, -1}
	exitDir  = dir2{0, 1}
)

// emitStack lays out the counter stages of one side of a hole followed by
// the mouth treatment of the core bore. It returns the segments in depth
// order and the depth at which the plain core bore starts.
func emitStack(stages []Stage, core float64, chamfer, fillet float64) ([]seg, float64) {
	var out []seg
	t := 0.0
	for i, st := range stages {
		next := core + chamfer + fillet
		if i+1 < len(stages) {
			next = stages[i+1].mouth()
		}
		if st.SinkAngle > 0 {
			half := st.SinkAngle * math.Pi / 360
			l := (st.Radius - next) / math.Tan(half)
			out = append(out, coneSeg(t, t+l, st.Radius, next))
			t += l
			continue
		}
		body := st.Depth
		switch {
		case st.Fillet > 0:
			out = append(out, filletSeg(t, st.Radius, st.Fillet))
			t += st.Fillet
			body -= st.Fillet
		case st.Chamfer > 0:
			out = append(out, coneSeg(t, t+st.Chamfer, st.Radius+st.Chamfer, st.Radius))
			t += st.Chamfer
			body -= st.Chamfer
		}
		out = append(out, cylSeg(t, t+body, st.Radius))
		t += body
		if st.FloorAngle > 0 {
			half := st.FloorAngle * math.Pi / 360
			l := (st.Radius - next) / math.Tan(half)
			out = append(out, coneSeg(t, t+l, st.Radius, next))
			t += l
			continue
		}
		out = append(out, planeSeg(t, st.Radius, next))
	}
	switch {
	case len(stages) == 0 && fillet > 0:
		out = append(out, filletSeg(t, core, fillet))
		t += fillet
	case chamfer > 0:
		out = append(out, coneSeg(t, t+chamfer, core+chamfer, core))
		t += chamfer
	}
	return out, t
}

// coreSegs lays out the core bore between depths from and to, opening the
// listed grooves into it. Groove offsets are measured from from.
func coreSegs(from, to, r float64, grooves []Groove) []seg {
	var out []seg
	t := from
	for _, g := range grooves {
		g0 := from + g.Offset
		out = append(out,
			cylSeg(t, g0, r),
			planeSeg(g0, r, g.Radius),
			cylSeg(g0, g0+g.Depth, g.Radius),
			planeSeg(g0+g.Depth, g.Radius, r),
		)
		t = g0 + g.Depth
	}
	return append(out, cylSeg(t, to, r))
}

// taperSegs is the tapered variant of coreSegs: a single cone narrowing by
// the given semi-angle (degrees) from radius r at depth from.
func taperSegs(from, to, r, semi float64) []seg {
	return []seg{coneSeg(from, to, r, r-(to-from)*math.Tan(semi*math.Pi/180))}
}

// mouth is the radius at which a stage opens: its own radius widened by a
// chamfer or fillet.
func (st Stage) mouth() float64 {
	return st.Radius + st.Chamfer + st.Fillet
}
