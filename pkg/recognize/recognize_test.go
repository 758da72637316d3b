package recognize

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/holefind/pkg/hole"
	"github.com/chazu/holefind/pkg/kernel"
	"github.com/chazu/holefind/pkg/kernel/memkernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	down = v3.Vec{Z: -1}
	up   = v3.Vec{Z: 1}
)

func recognizer(t *testing.T, opts Options, holes ...memkernel.Hole) *Recognizer {
	t.Helper()
	b := memkernel.NewBuilder(memkernel.Plate{Length: 100, Width: 60, Thickness: 30})
	for _, h := range holes {
		require.NoError(t, b.AddHole(h))
	}
	m := b.Build()
	return New(m, m.ThreadCircles(), opts)
}

func TestNewEmpty(t *testing.T) {
	r := New(nil, nil, DefaultOptions())
	assert.True(t, r.Graph().Empty())
	assert.Empty(t, r.Holes())
	records, err := r.ToJSON(down, false)
	require.NoError(t, err)
	assert.Empty(t, records)
	s, err := r.ToJSONString(down, false)
	require.NoError(t, err)
	assert.Equal(t, "[]", s)
}

func TestPipelineAttachesThreads(t *testing.T) {
	r := recognizer(t, DefaultOptions(),
		memkernel.Hole{X: 20, Y: 30, Radius: 4.25, Depth: 20, Floor: memkernel.DrillPoint,
			Threads: []memkernel.Thread{{Radius: 5, Length: 15, Pitch: 1.5}}},
		memkernel.Hole{X: 60, Y: 30, Radius: 5, Through: true},
	)
	require.Len(t, r.Holes(), 2)
	assert.True(t, r.Holes()[0].HoleMessage.Thread.Present)
	assert.False(t, r.Holes()[1].HoleMessage.Thread.Present)
	assert.Empty(t, r.Unmatched())

	records, err := r.ToJSON(down, false)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "STEP1POCKET_THREAD", records[0]["TYPE"])
	assert.Equal(t, "HOLE_ROUND_TAPERED", records[1]["TYPE"])
}

func TestToJSONOrientsThroughHoles(t *testing.T) {
	r := recognizer(t, DefaultOptions(),
		memkernel.Hole{X: 20, Y: 30, Radius: 5, Through: true},
		memkernel.Hole{X: 60, Y: 30, Radius: 3, Depth: 10},
	)
	records, err := r.ToJSON(up, false)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []float64{0, 0, 1}, records[0]["DIRECTION"], "through hole turned to face the tool")
	assert.Equal(t, []float64{20, 30, 0}, records[0]["LOCATION"])
	assert.Equal(t, []float64{0, 0, -1}, records[1]["DIRECTION"], "blind holes keep their entry")

	records, err = r.ToJSON(v3.Vec{}, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, -1}, records[0]["DIRECTION"])
}

func TestToJSONWritesFile(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputPath = filepath.Join(t.TempDir(), "out.json")
	r := recognizer(t, opts, memkernel.Hole{X: 20, Y: 30, Radius: 5, Through: true})

	s, err := r.ToJSONString(down, true)
	require.NoError(t, err)
	data, err := os.ReadFile(opts.OutputPath)
	require.NoError(t, err)
	assert.JSONEq(t, s, string(data))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "HOLE_ROUND_TAPERED", decoded[0]["TYPE"])
}

func TestReverseHole(t *testing.T) {
	r := recognizer(t, DefaultOptions(),
		memkernel.Hole{X: 20, Y: 30, Radius: 5, Through: true},
		memkernel.Hole{X: 60, Y: 30, Radius: 3, Depth: 10},
	)
	through, blind := r.Holes()[0].Compose, r.Holes()[1].Compose

	s, ok := r.ReverseHole(through, up, false, false)
	require.True(t, ok)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &rec))
	assert.Equal(t, []any{0.0, 0.0, 1.0}, rec["DIRECTION"])

	s, ok = r.ReverseHole(through, down, false, false)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(s), &rec))
	assert.Equal(t, []any{0.0, 0.0, -1.0}, rec["DIRECTION"], "already facing the tool")

	_, ok = r.ReverseHole(through, down, true, false)
	assert.True(t, ok, "forced reversal of a through hole")

	_, ok = r.ReverseHole(blind, down, false, false)
	assert.True(t, ok)
	_, ok = r.ReverseHole(blind, up, false, false)
	assert.False(t, ok, "blind holes cannot be entered from below")
	_, ok = r.ReverseHole(blind, down, true, false)
	assert.False(t, ok)

	_, ok = r.ReverseHole([]kernel.FaceID{0}, down, false, false)
	assert.False(t, ok)
	_, ok = r.ReverseHole(nil, down, false, false)
	assert.False(t, ok)
}

func TestIndirectHolesKeepTheirEntry(t *testing.T) {
	r := recognizer(t, DefaultOptions(), memkernel.Hole{X: 20, Y: 30, Radius: 5, Through: true})
	r.holes[0].Bottom = hole.IndirectThrough{}
	faces := r.holes[0].Compose

	records, err := r.ToJSON(up, false)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []float64{0, 0, -1}, records[0]["DIRECTION"], "an indirect hole is never turned around")

	_, ok := r.ReverseHole(faces, up, false, false)
	assert.False(t, ok)
	_, ok = r.ReverseHole(faces, down, true, false)
	assert.False(t, ok)
	s, ok := r.ReverseHole(faces, down, false, false)
	require.True(t, ok, "already facing the tool")
	assert.Contains(t, s, "DIRECTION")
}

func TestFindSingleJSON(t *testing.T) {
	r := recognizer(t, DefaultOptions(),
		memkernel.Hole{X: 20, Y: 30, Radius: 5, Through: true},
		memkernel.Hole{X: 60, Y: 30, Radius: 3, Depth: 10},
	)

	s, err := r.FindSingleJSON(6)
	require.NoError(t, err)
	var got Single
	require.NoError(t, json.Unmarshal([]byte(s), &got))
	assert.Equal(t, "recognized", got.Status)
	if diff := cmp.Diff([]kernel.FaceID{6}, got.Faces); diff != "" {
		t.Errorf("faces mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "HOLE_ROUND_TAPERED", got.Hole["TYPE"])

	_, err = r.FindSingleJSON(0)
	assert.Error(t, err)

	s, err = r.FindSingleFaceJSON(0)
	require.NoError(t, err)
	var all []Single
	require.NoError(t, json.Unmarshal([]byte(s), &all))
	assert.Len(t, all, 2)

	_, err = r.FindSingleFaceJSON(-1)
	assert.Error(t, err)
}

func TestConventions(t *testing.T) {
	r := recognizer(t, DefaultOptions(), memkernel.Hole{X: 20, Y: 30, Radius: 5, Through: true})

	hm := r.Hypermill()
	require.Len(t, hm, 1)
	assert.Len(t, hm[0].Processes, 1)

	nx, err := r.Group("nx")
	require.NoError(t, err)
	assert.Len(t, nx, 2)

	_, err = r.Group("fanuc")
	assert.Error(t, err)
}
