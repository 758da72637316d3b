// Package aag builds the attributed adjacency graph of a solid (one node per
// face, one link per shared edge carrying the edge's concavity) and extracts
// hole face groups from it.
//
// The graph is an arena: nodes live in a dense slice and refer to each other
// by index. Traversals keep their own visit sets, so a built graph is never
// mutated and can be queried concurrently.
package aag

import (
	"sort"

	"github.com/chazu/holefind/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	"gonum.org/v1/gonum/graph/simple"
)

// Link is one adjacency entry: the neighbouring node, the shared edge and
// its concavity.
type Link struct {
	Neighbor  int
	Edge      kernel.EdgeID
	Concavity kernel.Concavity
}

// Node is one face of the solid.
type Node struct {
	Index int
	Face  kernel.Face
	Links []Link
}

// Adjacent returns the number of distinct neighbouring faces.
func (n Node) Adjacent() int {
	seen := make(map[int]bool, len(n.Links))
	for _, l := range n.Links {
		seen[l.Neighbor] = true
	}
	return len(seen)
}

// Graph is the attributed adjacency graph of one solid.
type Graph struct {
	Nodes   []Node
	Edges   map[kernel.EdgeID]kernel.Edge
	Circles []kernel.Circle
	Box     sdf.Box3

	index map[kernel.FaceID]int
	topo  *simple.UndirectedGraph
}

// Build queries the solid once and assembles its graph. Circles are the
// candidate thread indicator edges; they are stored, not attached to nodes.
// A nil or empty solid gives an empty graph.
func Build(s kernel.Solid, circles []kernel.Circle) *Graph {
	g := &Graph{
		Edges:   make(map[kernel.EdgeID]kernel.Edge),
		Circles: circles,
		index:   make(map[kernel.FaceID]int),
		topo:    simple.NewUndirectedGraph(),
	}
	if s == nil {
		return g
	}
	g.Box = s.BoundingBox()

	for _, f := range s.Faces() {
		if _, dup := g.index[f.ID]; dup {
			continue
		}
		i := len(g.Nodes)
		g.index[f.ID] = i
		g.Nodes = append(g.Nodes, Node{Index: i, Face: f})
		g.topo.AddNode(simple.Node(i))
	}

	for _, e := range s.Edges() {
		a, okA := g.index[e.Faces[0]]
		b, okB := g.index[e.Faces[1]]
		if !okA || !okB || a == b {
			continue
		}
		c := s.Concavity(e.ID)
		g.Edges[e.ID] = e
		g.Nodes[a].Links = append(g.Nodes[a].Links, Link{Neighbor: b, Edge: e.ID, Concavity: c})
		g.Nodes[b].Links = append(g.Nodes[b].Links, Link{Neighbor: a, Edge: e.ID, Concavity: c})
		g.topo.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
	}
	return g
}

// Empty reports whether the graph has no faces.
func (g *Graph) Empty() bool {
	return len(g.Nodes) == 0
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Index maps a kernel face id to its node index.
func (g *Graph) Index(id kernel.FaceID) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Neighbors returns the distinct neighbours of node i in ascending order.
func (g *Graph) Neighbors(i int) []int {
	if i < 0 || i >= len(g.Nodes) {
		return nil
	}
	it := g.topo.From(int64(i))
	out := make([]int, 0, it.Len())
	for it.Next() {
		out = append(out, int(it.Node().ID()))
	}
	sort.Ints(out)
	return out
}
