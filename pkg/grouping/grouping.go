// Package grouping sorts classified holes into per-face groups and merges
// each group into machining processes, following the Hypermill and NX
// conventions. The two conventions can disagree on through holes; both are
// kept as they are.
package grouping

import (
	"math"

	"github.com/chazu/holefind/pkg/hole"
	"github.com/chazu/holefind/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Convention names a grouping convention.
type Convention string

const (
	Hypermill Convention = "hypermill"
	NX        Convention = "nx"
)

// FaceGroup is the set of holes entering through one planar face. Normal is
// the outward face normal and Offset its signed distance from the origin.
// Every hole in the group is oriented to enter through this face.
type FaceGroup struct {
	Normal v3.Vec
	Offset float64
	Holes  []hole.CommonHole
}

// Processes are the merged operations of one face group.
type Processes [][]hole.CommonHole

type faceKey struct {
	normal v3.Vec
	offset float64
}

func entryKey(h hole.CommonHole) faceKey {
	n := h.Axis.Direction.Normalize().MulScalar(-1)
	return faceKey{normal: n, offset: n.Dot(h.Axis.Location)}
}

func exitKey(h hole.CommonHole) faceKey {
	n := h.Axis.Direction.Normalize()
	return faceKey{normal: n, offset: n.Dot(h.Exit().Location)}
}

func (k faceKey) matches(g FaceGroup, tol kernel.Tolerance) bool {
	return kernel.SameDirection(k.normal, g.Normal, tol) && math.Abs(k.offset-g.Offset) <= tol.Linear
}

func find(groups []FaceGroup, k faceKey, tol kernel.Tolerance) int {
	for i, g := range groups {
		if k.matches(g, tol) {
			return i
		}
	}
	return -1
}

func isThrough(h hole.CommonHole) bool {
	return hole.Reversible(h.Bottom)
}

// ---------------------------------------------------------------------------
// Hypermill
// ---------------------------------------------------------------------------

// GroupHypermill puts every hole in exactly one face group. A hole joins the
// group of its entry face; a through hole whose entry face has no group yet
// joins, reversed, an existing group of its exit face; otherwise it starts a
// new group. First occurrence wins.
func GroupHypermill(holes []hole.CommonHole, tol kernel.Tolerance) []FaceGroup {
	var groups []FaceGroup
	for _, h := range holes {
		k := entryKey(h)
		if i := find(groups, k, tol); i >= 0 {
			groups[i].Holes = append(groups[i].Holes, h)
			continue
		}
		if isThrough(h) {
			if i := find(groups, exitKey(h), tol); i >= 0 {
				groups[i].Holes = append(groups[i].Holes, h.Reverse())
				continue
			}
		}
		groups = append(groups, FaceGroup{Normal: k.normal, Offset: k.offset, Holes: []hole.CommonHole{h}})
	}
	return groups
}

// ProcessHypermill merges a face group's holes into processes. Holes share a
// process only when they are structurally equal, depths included.
func ProcessHypermill(holes []hole.CommonHole) Processes {
	return merge(holes, hole.CommonHole.IsEqual)
}

// ---------------------------------------------------------------------------
// NX
// ---------------------------------------------------------------------------

// GroupNX puts every hole in the group of its entry face. A through hole that
// passes all the way through the part's bounding box is also added, reversed,
// to the group of its exit face.
func GroupNX(holes []hole.CommonHole, box sdf.Box3, tol kernel.Tolerance) []FaceGroup {
	var groups []FaceGroup
	add := func(h hole.CommonHole) {
		k := entryKey(h)
		if i := find(groups, k, tol); i >= 0 {
			groups[i].Holes = append(groups[i].Holes, h)
			return
		}
		groups = append(groups, FaceGroup{Normal: k.normal, Offset: k.offset, Holes: []hole.CommonHole{h}})
	}
	for _, h := range holes {
		add(h)
		if isThrough(h) && PassesThrough(h, box, tol) {
			add(h.Reverse())
		}
	}
	return groups
}

// ProcessNX merges a face group's holes into processes with the loose
// comparison: every stage above the core must match in kind and radius.
// Depths, the bottom and the innermost core bore itself may differ.
func ProcessNX(holes []hole.CommonHole) Processes {
	return merge(holes, hole.CommonHole.IsSameAboveCore)
}

// PassesThrough reports whether the hole's axis enters the box at the hole's
// entry mouth and leaves it at its exit, so the hole crosses the whole part.
func PassesThrough(h hole.CommonHole, box sdf.Box3, tol kernel.Tolerance) bool {
	l := h.GetAllLength()
	if l <= 0 {
		return false
	}
	axis := h.Axis.Unit()
	o, d := axis.Location, axis.Direction
	tmin, tmax := math.Inf(-1), math.Inf(1)
	slab := func(o, d, lo, hi float64) bool {
		if math.Abs(d) < 1e-12 {
			return o >= lo-tol.Linear && o <= hi+tol.Linear
		}
		t0, t1 := (lo-o)/d, (hi-o)/d
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin, tmax = math.Max(tmin, t0), math.Min(tmax, t1)
		return true
	}
	if !slab(o.X, d.X, box.Min.X, box.Max.X) ||
		!slab(o.Y, d.Y, box.Min.Y, box.Max.Y) ||
		!slab(o.Z, d.Z, box.Min.Z, box.Max.Z) {
		return false
	}
	return tmin <= tmax && math.Abs(tmin) <= tol.Linear && math.Abs(tmax-l) <= tol.Linear
}

func merge(holes []hole.CommonHole, eq func(a, b hole.CommonHole) bool) Processes {
	var out Processes
	for _, h := range holes {
		placed := false
		for i, p := range out {
			if eq(p[0], h) {
				out[i] = append(out[i], h)
				placed = true
				break
			}
		}
		if !placed {
			out = append(out, []hole.CommonHole{h})
		}
	}
	return out
}

// Count returns the number of hole placements across groups.
func Count(groups []FaceGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Holes)
	}
	return n
}
