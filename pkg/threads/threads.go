// Package threads assembles cosmetic thread indicator circles into detected
// threads and attaches them to the stages of classified holes.
package threads

import (
	"math"
	"sort"

	"github.com/chazu/holefind/pkg/hole"
	"github.com/chazu/holefind/pkg/kernel"
)

// Options tune thread detection and matching.
type Options struct {
	Tolerance kernel.Tolerance
	// RadiusSlack is how far a thread's nominal radius may exceed the bore
	// it is cut in, as a fraction of the bore radius. Tapped bores are drilled
	// undersize, so the thread is always the larger of the two.
	RadiusSlack float64
}

// DefaultOptions cover metric coarse threads in tap drilled bores.
var DefaultOptions = Options{
	Tolerance:   kernel.DefaultTolerance,
	RadiusSlack: 0.2,
}

// Detect groups coaxial circles of equal radius into threads. A thread needs
// at least two circles; its depth is their axial span and its pitch their
// mean spacing when there are three or more. Threads are returned in the
// order their first circle appears.
func Detect(circles []kernel.Circle, tol kernel.Tolerance) []hole.SewThread {
	type bucket struct {
		axis    kernel.Axis
		radius  float64
		circles []kernel.Circle
	}
	var buckets []*bucket
	for _, c := range circles {
		if c.Radius <= 0 || c.Axis.Direction.Length() == 0 {
			continue
		}
		var home *bucket
		for _, b := range buckets {
			if math.Abs(b.radius-c.Radius) <= tol.Linear && kernel.IsCoaxial(b.axis, c.Axis, tol) {
				home = b
				break
			}
		}
		if home == nil {
			home = &bucket{axis: c.Axis.Unit(), radius: c.Radius}
			buckets = append(buckets, home)
		}
		home.circles = append(home.circles, c)
	}

	var out []hole.SewThread
	seen := make(map[uint64][]hole.SewThread)
	for _, b := range buckets {
		st := make([]float64, 0, len(b.circles))
		for _, c := range b.circles {
			st = append(st, b.axis.Station(c.Center()))
		}
		sort.Float64s(st)
		// coincident circles count once
		stations := st[:0]
		for _, s := range st {
			if len(stations) == 0 || s-stations[len(stations)-1] > tol.Linear {
				stations = append(stations, s)
			}
		}
		if len(stations) < 2 {
			continue
		}
		depth := stations[len(stations)-1] - stations[0]
		th := hole.SewThread{
			Axis:    kernel.Axis{Location: b.axis.Point(stations[0]), Direction: b.axis.Direction},
			Radius:  b.radius,
			Depth:   depth,
			Circles: b.circles,
		}
		if len(stations) >= 3 {
			th.Pitch = depth / float64(len(stations)-1)
		}

		key := th.Reduce().Hash()
		if duplicate(seen[key], th, tol) {
			continue
		}
		seen[key] = append(seen[key], th)
		out = append(out, th)
	}
	return out
}

func duplicate(prev []hole.SewThread, th hole.SewThread, tol kernel.Tolerance) bool {
	for _, p := range prev {
		if kernel.IsCoaxial(p.Axis, th.Axis, tol) &&
			p.Axis.Location.Sub(th.Axis.Location).Length() <= tol.Linear &&
			math.Abs(p.Depth-th.Depth) <= tol.Linear {
			return true
		}
	}
	return false
}

// AddThread attaches each thread to the first hole it fits: the hole axis
// must be coaxial with the thread and one of its stages must contain the
// thread both radially and along the axis. The core bore is tried first,
// then the entry stages, then the exit stages. Holes are updated in place.
// Threads that fit no hole are returned; that is not an error.
func AddThread(holes []hole.CommonHole, threads []hole.SewThread, opts Options) []hole.SewThread {
	var unmatched []hole.SewThread
	for _, th := range threads {
		matched := false
		for i := range holes {
			if attach(&holes[i], th, opts) {
				matched = true
				break
			}
		}
		if !matched {
			unmatched = append(unmatched, th)
		}
	}
	return unmatched
}

func attach(h *hole.CommonHole, th hole.SewThread, opts Options) bool {
	tol := opts.Tolerance
	if !kernel.IsCoaxial(h.Axis, th.Axis, tol) {
		return false
	}
	s0 := h.Axis.Unit().Station(th.Axis.Location)
	s1 := s0 + th.Depth*math.Copysign(1, h.Axis.Direction.Dot(th.Axis.Direction))
	lo, hi := math.Min(s0, s1), math.Max(s0, s1)

	fits := func(radius float64, parts []hole.FaceNode) bool {
		if len(parts) == 0 {
			return false
		}
		if th.Radius < radius-tol.Linear || th.Radius > radius*(1+opts.RadiusSlack)+tol.Linear {
			return false
		}
		top, bottom := hole.Span(parts)
		return lo >= top-tol.Linear && hi <= bottom+tol.Linear
	}

	if core := h.HoleMessage; !core.HasThread && fits(core.Radius, core.Faces()) {
		core.HasThread, core.Thread = true, th.Reduce()
		core.Parts = flag(core.Parts, th)
		h.HoleMessage = core
		h.Faces = flagFaces(h.Faces, core.Parts, th)
		return true
	}
	for _, stack := range [][]hole.CountersunkProperty{h.CounterMessage, h.AntiCounterMessage} {
		for k, c := range stack {
			if c.HasThread || !fits(c.Radius, c.Faces()) {
				continue
			}
			c.HasThread, c.Thread = true, th.Reduce()
			c.Parts = flag(c.Parts, th)
			stack[k] = c
			h.Faces = flagFaces(h.Faces, c.Parts, th)
			return true
		}
	}
	return false
}

// flag returns a copy of nodes marked as carrying th.
func flag(nodes []hole.FaceNode, th hole.SewThread) []hole.FaceNode {
	out := append([]hole.FaceNode(nil), nodes...)
	for i := range out {
		out[i].HasThread, out[i].Thread = true, th
	}
	return out
}

// flagFaces marks the hole's face list entries that appear in parts.
func flagFaces(faces, parts []hole.FaceNode, th hole.SewThread) []hole.FaceNode {
	in := make(map[int]bool, len(parts))
	for _, p := range parts {
		in[p.Index] = true
	}
	out := append([]hole.FaceNode(nil), faces...)
	for i := range out {
		if in[out[i].Index] {
			out[i].HasThread, out[i].Thread = true, th
		}
	}
	return out
}
