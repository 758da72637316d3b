package threads

import (
	"testing"

	"github.com/chazu/holefind/pkg/aag"
	"github.com/chazu/holefind/pkg/classify"
	"github.com/chazu/holefind/pkg/hole"
	"github.com/chazu/holefind/pkg/kernel"
	"github.com/chazu/holefind/pkg/kernel/memkernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func circle(z, r float64) kernel.Circle {
	return kernel.Circle{
		Axis:   kernel.Axis{Location: v3.Vec{X: 10, Y: 10, Z: z}, Direction: v3.Vec{Z: -1}},
		Radius: r,
	}
}

func TestDetect(t *testing.T) {
	tol := kernel.DefaultTolerance
	tests := []struct {
		name    string
		circles []kernel.Circle
		want    int
		depth   float64
		pitch   float64
	}{
		{"empty", nil, 0, 0, 0},
		{"single circle", []kernel.Circle{circle(10, 5)}, 0, 0, 0},
		{"two circles", []kernel.Circle{circle(10, 5), circle(2, 5)}, 1, 8, 0},
		{"coil", []kernel.Circle{circle(10, 5), circle(8.5, 5), circle(7, 5), circle(5.5, 5)}, 1, 4.5, 1.5},
		{"coincident circles count once", []kernel.Circle{circle(10, 5), circle(10, 5), circle(4, 5)}, 1, 6, 0},
		{"different radii", []kernel.Circle{circle(10, 5), circle(2, 4)}, 0, 0, 0},
		{"zero radius ignored", []kernel.Circle{circle(10, 0), circle(2, 0)}, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.circles, tol)
			require.Len(t, got, tt.want)
			if tt.want == 0 {
				return
			}
			assert.InDelta(t, tt.depth, got[0].Depth, 1e-9)
			assert.InDelta(t, tt.pitch, got[0].Pitch, 1e-9)
			assert.InDelta(t, 5, got[0].Radius, 1e-9)
		})
	}
}

func TestDetectSeparatesAxes(t *testing.T) {
	a := []kernel.Circle{circle(10, 5), circle(5, 5)}
	b := []kernel.Circle{circle(10, 5), circle(5, 5)}
	for i := range b {
		b[i].Axis.Location.X = 40
	}
	got := Detect(append(a, b...), kernel.DefaultTolerance)
	require.Len(t, got, 2)
	assert.Equal(t, got[0].Reduce().Hash(), got[1].Reduce().Hash(), "same size threads hash alike")
	assert.NotEqual(t, got[0].Axis.Location.X, got[1].Axis.Location.X)
}

// tapped builds a blind tapped hole with the thread axis shifted by offset
// and returns the classified holes and detected threads.
func tapped(t *testing.T, offset float64) ([]hole.CommonHole, []hole.SewThread) {
	t.Helper()
	b := memkernel.NewBuilder(memkernel.Plate{Length: 60, Width: 60, Thickness: 30})
	require.NoError(t, b.AddHole(memkernel.Hole{
		X: 30, Y: 30, Radius: 4.25, Depth: 20, Floor: memkernel.DrillPoint,
		Threads: []memkernel.Thread{{Radius: 5, Length: 15, Pitch: 1.5, Offset: v3.Vec{X: offset}}},
	}))
	m := b.Build()
	x := aag.Extract(aag.Build(m, m.ThreadCircles()), classify.DefaultOptions)
	require.Len(t, x.Defined, 1)
	th := Detect(m.ThreadCircles(), kernel.DefaultTolerance)
	require.Len(t, th, 1)
	return x.Defined, th
}

func TestAddThreadWithinTolerance(t *testing.T) {
	holes, th := tapped(t, 0.001)
	unmatched := AddThread(holes, th, DefaultOptions)
	assert.Empty(t, unmatched)

	core := holes[0].HoleMessage
	require.True(t, core.HasThread)
	assert.InDelta(t, 5, core.Thread.Radius, 1e-9)
	assert.InDelta(t, 15, core.Thread.Length, 1e-9)
	assert.InDelta(t, 1.5, core.Thread.Pitch, 1e-9)
	for _, p := range core.Parts {
		assert.True(t, p.HasThread)
	}
	flagged := 0
	for _, f := range holes[0].Faces {
		if f.HasThread {
			flagged++
		}
	}
	assert.Equal(t, len(core.Parts), flagged)
}

func TestAddThreadOffAxis(t *testing.T) {
	off := 5 * DefaultOptions.Tolerance.Coaxial
	holes, th := tapped(t, off)
	unmatched := AddThread(holes, th, DefaultOptions)
	assert.Len(t, unmatched, 1)
	assert.False(t, holes[0].HoleMessage.HasThread)
}

func TestAddThreadStage(t *testing.T) {
	b := memkernel.NewBuilder(memkernel.Plate{Length: 60, Width: 60, Thickness: 30})
	require.NoError(t, b.AddHole(memkernel.Hole{
		X: 30, Y: 30, Radius: 3, Through: true,
		Counters: []memkernel.Stage{{Radius: 8.5, Depth: 10}},
		Threads:  []memkernel.Thread{{Radius: 10, Length: 8, Pitch: 2}},
	}))
	m := b.Build()
	x := aag.Extract(aag.Build(m, nil), classify.DefaultOptions)
	require.Len(t, x.Defined, 1)

	unmatched := AddThread(x.Defined, Detect(m.ThreadCircles(), kernel.DefaultTolerance), DefaultOptions)
	assert.Empty(t, unmatched)
	h := x.Defined[0]
	assert.False(t, h.HoleMessage.HasThread)
	require.Len(t, h.CounterMessage, 1)
	assert.True(t, h.CounterMessage[0].HasThread)
	assert.InDelta(t, 2, h.CounterMessage[0].Thread.Pitch, 1e-9)
}

func TestAddThreadTooLarge(t *testing.T) {
	holes, _ := tapped(t, 0)
	big := hole.SewThread{
		Axis:   holes[0].Axis,
		Radius: 8,
		Depth:  5,
	}
	assert.Len(t, AddThread(holes, []hole.SewThread{big}, DefaultOptions), 1)
}
