package aag

import (
	"math"
	"sort"
	"testing"

	"github.com/chazu/holefind/pkg/classify"
	"github.com/chazu/holefind/pkg/hole"
	"github.com/chazu/holefind/pkg/kernel"
	"github.com/chazu/holefind/pkg/kernel/memkernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var plate = memkernel.Plate{Length: 100, Width: 60, Thickness: 30}

func build(t *testing.T, split bool, holes ...memkernel.Hole) *memkernel.Model {
	t.Helper()
	b := memkernel.NewBuilder(plate).SplitFaces(split)
	for _, h := range holes {
		require.NoError(t, b.AddHole(h))
	}
	return b.Build()
}

// partition returns every graph index an extraction accounts for, sorted.
func partition(x *Extraction) []int {
	var all []int
	for _, groups := range [][]Group{x.Holes, x.Complex, x.Errors} {
		for _, g := range groups {
			all = append(all, g.Indices()...)
		}
	}
	for _, r := range x.Rest {
		all = append(all, r...)
	}
	sort.Ints(all)
	return all
}

func TestBuildEmpty(t *testing.T) {
	g := Build(nil, nil)
	assert.True(t, g.Empty())

	g = Build(&memkernel.Model{}, nil)
	assert.True(t, g.Empty())
	assert.Equal(t, 0, g.Len())

	x := Extract(g, classify.DefaultOptions)
	assert.Empty(t, x.Holes)
	assert.Empty(t, x.Rest)
}

func TestBuildLinksSymmetric(t *testing.T) {
	m := build(t, false, memkernel.Hole{X: 20, Y: 20, Radius: 5, Through: true})
	g := Build(m, m.ThreadCircles())

	require.Equal(t, 7, g.Len())
	assert.Len(t, g.Edges, 14)

	for i, n := range g.Nodes {
		for _, l := range n.Links {
			back := false
			for _, r := range g.Nodes[l.Neighbor].Links {
				if r.Neighbor == i && r.Edge == l.Edge {
					assert.Equal(t, l.Concavity, r.Concavity)
					back = true
				}
			}
			assert.True(t, back, "link %d -> %d has no reverse", i, l.Neighbor)
		}
	}

	top, ok := g.Index(0)
	require.True(t, ok)
	assert.Equal(t, 5, g.Nodes[top].Adjacent(), "top meets four sides and the bore")
	assert.ElementsMatch(t, []int{0, 1}, g.Neighbors(6))
}

func TestBuildSkipsDanglingEdges(t *testing.T) {
	m := &memkernel.Model{
		FaceList: []kernel.Face{{ID: 1}, {ID: 2}},
		EdgeList: []memkernel.EdgeRecord{
			{Edge: kernel.Edge{ID: 1, Faces: [2]kernel.FaceID{1, 2}}, Concavity: kernel.Convex},
			{Edge: kernel.Edge{ID: 2, Faces: [2]kernel.FaceID{1, 9}}},
			{Edge: kernel.Edge{ID: 3, Faces: [2]kernel.FaceID{2, 2}}},
		},
	}
	g := Build(m, nil)
	assert.Len(t, g.Edges, 1)
	assert.Equal(t, []int{1}, g.Neighbors(0))
	assert.Nil(t, g.Neighbors(5))
}

func TestExtractThroughHole(t *testing.T) {
	for _, split := range []bool{false, true} {
		m := build(t, split, memkernel.Hole{X: 20, Y: 20, Radius: 5, Through: true})
		x := Extract(Build(m, nil), classify.DefaultOptions)

		require.Len(t, x.Holes, 1, "split=%v", split)
		require.Len(t, x.Defined, 1)
		assert.Empty(t, x.Complex)
		assert.Empty(t, x.Errors)
		require.Len(t, x.Rest, 1)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, x.Rest[0])

		h := x.Defined[0]
		assert.Equal(t, hole.EasyHole, h.Type)
		assert.Equal(t, hole.ThroughBottom, h.Bottom.Kind())
		assert.InDelta(t, 5, h.HoleMessage.Radius, 1e-9)
		assert.InDelta(t, 30, h.GetAllLength(), 1e-9)
		assert.InDelta(t, 30, h.Axis.Location.Z, 1e-9, "through holes enter from the top")
		assert.InDelta(t, -1, h.Axis.Direction.Z, 1e-9)
	}
}

func TestExtractBlindCounterbore(t *testing.T) {
	m := build(t, false, memkernel.Hole{
		X: 30, Y: 30, Side: memkernel.Bottom,
		Counters: []memkernel.Stage{{Radius: 8, Depth: 5}},
		Radius:   4, Depth: 10,
	})
	g := Build(m, nil)
	x := Extract(g, classify.DefaultOptions)

	require.Len(t, x.Defined, 1)
	h := x.Defined[0]
	assert.Equal(t, hole.CounterboreHole, h.Type)
	assert.Equal(t, hole.FlatBottom, h.Bottom.Kind())
	require.Equal(t, 1, h.CountersunkHeadNum)
	assert.InDelta(t, 8, h.CounterMessage[0].Radius, 1e-9)
	assert.InDelta(t, 5, h.CounterMessage[0].Depth, 1e-9)
	assert.InDelta(t, 10, h.HoleMessage.Depth, 1e-9)
	assert.InDelta(t, 0, h.Axis.Location.Z, 1e-9)
	assert.InDelta(t, 1, h.Axis.Direction.Z, 1e-9)
	assert.Len(t, x.Holes[0].Nodes, 4)

	for _, n := range x.Holes[0].Nodes {
		if n.Type == kernel.Plane && n.UpStation > 10 {
			assert.InDelta(t, 15, n.UpStation, 1e-9, "floor depth")
		}
	}
}

func TestExtractPartition(t *testing.T) {
	m := build(t, true,
		memkernel.Hole{X: 15, Y: 15, Radius: 3, Through: true, Chamfer: 0.5},
		memkernel.Hole{X: 40, Y: 15, Radius: 4, Depth: 12, Floor: memkernel.DrillPoint},
		memkernel.Hole{X: 70, Y: 30, Radius: 5, Through: true,
			Counters: []memkernel.Stage{{Radius: 9, Depth: 6}}},
	)
	g := Build(m, nil)
	x := Extract(g, classify.DefaultOptions)

	assert.Len(t, x.Holes, 3)
	want := make([]int, g.Len())
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, partition(x))
}

func TestExtractClosedCavity(t *testing.T) {
	m := &memkernel.Model{FaceList: []kernel.Face{{
		ID: 7,
		Surface: kernel.Surface{
			Type:   kernel.Cylinder,
			Axis:   kernel.Axis{Direction: v3.Vec{Z: 1}},
			Radius: 2,
		},
		Bounds: kernel.Bounds{UMax: 2 * math.Pi, VMax: 4},
		Inward: true,
	}}}
	x := Extract(Build(m, nil), classify.DefaultOptions)
	require.Len(t, x.Errors, 1)
	assert.Equal(t, Unrecognized, x.Errors[0].Status)
	assert.Contains(t, x.Errors[0].Reason, "closed")
	assert.Empty(t, x.Rest)
}

func TestExtractForeignBoundaryIsComplex(t *testing.T) {
	z := v3.Vec{Z: 1}
	m := &memkernel.Model{
		FaceList: []kernel.Face{
			{ID: 0, Surface: kernel.Surface{Type: kernel.Plane, Axis: kernel.Axis{Location: v3.Vec{Z: 10}, Direction: z}}},
			{ID: 1, Surface: kernel.Surface{Type: kernel.Cylinder, Axis: kernel.Axis{Direction: z}, Radius: 2},
				Bounds: kernel.Bounds{UMax: 2 * math.Pi, VMax: 10}, Inward: true},
			{ID: 2, Surface: kernel.Surface{Type: kernel.Plane, Axis: kernel.Axis{Location: v3.Vec{X: 1, Z: 5}, Direction: v3.Vec{X: 1}}}},
			{ID: 3, Surface: kernel.Surface{Type: kernel.Plane, Axis: kernel.Axis{Direction: z.MulScalar(-1)}}},
		},
		EdgeList: []memkernel.EdgeRecord{
			{Edge: kernel.Edge{ID: 0, Faces: [2]kernel.FaceID{0, 1}}, Concavity: kernel.Convex},
			{Edge: kernel.Edge{ID: 1, Faces: [2]kernel.FaceID{1, 2}}, Concavity: kernel.Concave},
			{Edge: kernel.Edge{ID: 2, Faces: [2]kernel.FaceID{0, 3}}, Concavity: kernel.Convex},
			{Edge: kernel.Edge{ID: 3, Faces: [2]kernel.FaceID{1, 3}}, Concavity: kernel.Convex},
		},
	}
	x := Extract(Build(m, nil), classify.DefaultOptions)
	require.Len(t, x.Complex, 1)
	assert.Equal(t, []int{1}, x.Complex[0].Indices())
	assert.Equal(t, [][]int{{0, 3}, {2}}, x.Rest)
}

func TestBossIsNotAHole(t *testing.T) {
	b := memkernel.NewBuilder(plate)
	require.NoError(t, b.AddBoss(memkernel.Boss{X: 50, Y: 30, Radius: 6, Height: 10}))
	m := b.Build()
	x := Extract(Build(m, nil), classify.DefaultOptions)
	assert.Empty(t, x.Holes)
	assert.Empty(t, x.Errors)
	require.Len(t, x.Rest, 1)
	assert.Len(t, x.Rest[0], 8)
}

func TestFindSingle(t *testing.T) {
	m := build(t, false,
		memkernel.Hole{X: 20, Y: 20, Radius: 5, Through: true},
		memkernel.Hole{X: 60, Y: 20, Radius: 3, Depth: 8},
	)
	g := Build(m, nil)
	opts := classify.DefaultOptions

	gr, err := FindSingle(g, 6, opts)
	require.NoError(t, err)
	assert.Equal(t, Recognized, gr.Status)
	assert.Equal(t, []int{6}, gr.Indices())

	_, err = FindSingle(g, 0, opts)
	assert.ErrorIs(t, err, ErrNoHole)
	_, err = FindSingle(g, 99, opts)
	assert.Error(t, err)

	// Point queries leave a full extraction unaffected.
	x := Extract(g, opts)
	assert.Len(t, x.Holes, 2)

	top := FindSingleFace(g, 0, opts)
	assert.Len(t, top, 2, "both holes open onto the top face")
	bottom := FindSingleFace(g, 1, opts)
	assert.Len(t, bottom, 1, "only the through hole reaches the bottom")
	assert.Len(t, FindSingleFace(g, 7, opts), 1)
	assert.Nil(t, FindSingleFace(g, -1, opts))
}
