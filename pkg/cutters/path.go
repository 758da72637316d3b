package cutters

import (
	"math"

	"github.com/chazu/holefind/pkg/hole"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Toolpath is one hole visit: the entry point, the depth to machine, the
// hole's index in the input, its core radius and its tip angle (zero unless
// the hole ends in a drill point).
type Toolpath struct {
	Start  v3.Vec
	Depth  float64
	Index  int
	Radius float64
	Angle  float64
}

// OrderPath orders the holes of one process greedily by distance, starting
// from the hole nearest to start, then shortens the tour with 2-opt moves.
// Ties go to the lower input index so the order is deterministic.
func OrderPath(holes []hole.CommonHole, start v3.Vec) []Toolpath {
	if len(holes) == 0 {
		return nil
	}
	used := make([]bool, len(holes))
	order := make([]int, 0, len(holes))
	at := start
	for len(order) < len(holes) {
		best, bestD := -1, math.Inf(1)
		for i, h := range holes {
			if used[i] {
				continue
			}
			if d := h.Axis.Location.Sub(at).Length(); d < bestD {
				best, bestD = i, d
			}
		}
		used[best] = true
		order = append(order, best)
		at = holes[best].Axis.Location
	}
	twoOpt(holes, order, start)

	out := make([]Toolpath, len(order))
	for k, i := range order {
		h := holes[i]
		tp := Toolpath{Start: h.Axis.Location, Depth: h.GetAllLength(), Index: i, Radius: h.HoleMessage.Radius}
		if c, ok := h.Bottom.(hole.Cusp); ok {
			tp.Angle = c.Angle
		}
		out[k] = tp
	}
	return out
}

// PathLength is the travel from start through every entry point in order.
func PathLength(path []Toolpath, start v3.Vec) float64 {
	l := 0.0
	at := start
	for _, p := range path {
		l += p.Start.Sub(at).Length()
		at = p.Start
	}
	return l
}

// twoOpt reverses sub-tours while that shortens the open path from start.
func twoOpt(holes []hole.CommonHole, order []int, start v3.Vec) {
	pos := func(k int) v3.Vec {
		if k < 0 {
			return start
		}
		return holes[order[k]].Axis.Location
	}
	dist := func(a, b v3.Vec) float64 { return a.Sub(b).Length() }
	for improved := true; improved; {
		improved = false
		for i := 0; i < len(order)-1; i++ {
			for j := i + 1; j < len(order); j++ {
				// Reversing order[i..j] swaps edges (i-1,i),(j,j+1) for
				// (i-1,j),(i,j+1). The path is open at its end.
				before := dist(pos(i-1), pos(i))
				after := dist(pos(i-1), pos(j))
				if j+1 < len(order) {
					before += dist(pos(j), pos(j+1))
					after += dist(pos(i), pos(j+1))
				}
				if after < before-1e-9 {
					for a, b := i, j; a < b; a, b = a+1, b-1 {
						order[a], order[b] = order[b], order[a]
					}
					improved = true
				}
			}
		}
	}
}
