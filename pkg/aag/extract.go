package aag

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/holefind/pkg/classify"
	"github.com/chazu/holefind/pkg/hole"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ErrNoHole is returned by point queries on a face that belongs to no hole.
var ErrNoHole = errors.New("face is not part of a hole")

// Extraction is the result of one extraction pass. Every graph index appears
// in exactly one of Holes, Complex, Errors or Rest.
type Extraction struct {
	// Holes are the recognized groups; Defined[i] is the classified hole
	// for Holes[i].
	Holes   []Group
	Defined []hole.CommonHole
	Complex []Group
	Errors  []Group
	// Rest holds the faces no hole absorbed, as connected components.
	Rest [][]int
}

// Extract walks every hole-compatible face of the graph, triages the
// resulting groups and classifies the clean ones.
func Extract(g *Graph, opts classify.Options) *Extraction {
	x := &Extraction{}
	if g == nil || g.Empty() {
		return x
	}

	seen := newVisitSet(g.Len())
	var candidates []Group
	for i := range g.Nodes {
		if seen[i] || !g.holeFace(i) {
			continue
		}
		members, axis := g.walk(i, seen, opts.Tolerance)
		gr := g.analyze(members, axis, opts.Tolerance)
		switch gr.Status {
		case Complex:
			x.Complex = append(x.Complex, gr)
		case Unrecognized:
			x.Errors = append(x.Errors, gr)
		default:
			candidates = append(candidates, gr)
		}
	}

	faces := make([][]hole.FaceNode, len(candidates))
	for i, c := range candidates {
		faces[i] = c.Nodes
	}
	defined, errs := classify.DefineAll(faces, opts)
	for i, c := range candidates {
		if errs[i] != nil {
			c.Status = Unrecognized
			c.Reason = errs[i].Error()
			x.Errors = append(x.Errors, c)
			continue
		}
		x.Holes = append(x.Holes, c)
		x.Defined = append(x.Defined, defined[i])
	}

	x.Rest = g.rest(seen)
	return x
}

// rest returns the connected components of the faces not marked in seen,
// each sorted, ordered by their smallest index.
func (g *Graph) rest(seen visitSet) [][]int {
	sub := simple.NewUndirectedGraph()
	for i := range g.Nodes {
		if !seen[i] {
			sub.AddNode(simple.Node(i))
		}
	}
	for i := range g.Nodes {
		if seen[i] {
			continue
		}
		for _, l := range g.Nodes[i].Links {
			if !seen[l.Neighbor] && l.Neighbor > i {
				sub.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(l.Neighbor)})
			}
		}
	}

	var out [][]int
	for _, comp := range topo.ConnectedComponents(sub) {
		ids := make([]int, len(comp))
		for k, n := range comp {
			ids[k] = int(n.ID())
		}
		sort.Ints(ids)
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// FindSingle replays the walk from one face and returns its triaged group.
// The graph is not modified.
func FindSingle(g *Graph, index int, opts classify.Options) (Group, error) {
	if g == nil || index < 0 || index >= g.Len() {
		return Group{}, fmt.Errorf("face index %d out of range", index)
	}
	if !g.holeFace(index) {
		return Group{}, fmt.Errorf("face %d: %w", index, ErrNoHole)
	}
	members, axis := g.walk(index, newVisitSet(g.Len()), opts.Tolerance)
	gr := g.analyze(members, axis, opts.Tolerance)
	if gr.Status == Recognized {
		if _, err := classify.DefineHole(gr.Nodes, opts); err != nil {
			gr.Status, gr.Reason = Unrecognized, err.Error()
		}
	}
	return gr, nil
}

// FindSingleFace returns every group touching the face: its own group when
// it is a hole face, otherwise the groups of its hole-face neighbours, such
// as the holes opening onto a plane.
func FindSingleFace(g *Graph, index int, opts classify.Options) []Group {
	if g == nil || index < 0 || index >= g.Len() {
		return nil
	}
	if g.holeFace(index) {
		gr, err := FindSingle(g, index, opts)
		if err != nil {
			return nil
		}
		return []Group{gr}
	}

	seen := newVisitSet(g.Len())
	var out []Group
	for _, nb := range g.Neighbors(index) {
		if seen[nb] || !g.holeFace(nb) {
			continue
		}
		members, axis := g.walk(nb, seen, opts.Tolerance)
		gr := g.analyze(members, axis, opts.Tolerance)
		if gr.Status == Recognized {
			if _, err := classify.DefineHole(gr.Nodes, opts); err != nil {
				gr.Status, gr.Reason = Unrecognized, err.Error()
			}
		}
		out = append(out, gr)
	}
	return out
}
