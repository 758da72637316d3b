package tessellate_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/holefind/pkg/aag"
	"github.com/chazu/holefind/pkg/classify"
	"github.com/chazu/holefind/pkg/hole"
	"github.com/chazu/holefind/pkg/kernel/memkernel"
	"github.com/chazu/holefind/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const testCells = 32

// extract builds a plate with the given holes and classifies them.
func extract(t *testing.T, holes ...memkernel.Hole) []hole.CommonHole {
	t.Helper()
	b := memkernel.NewBuilder(memkernel.Plate{Length: 100, Width: 60, Thickness: 30})
	for _, h := range holes {
		if err := b.AddHole(h); err != nil {
			t.Fatalf("AddHole: %v", err)
		}
	}
	x := aag.Extract(aag.Build(b.Build(), nil), classify.DefaultOptions)
	if len(x.Defined) != len(holes) {
		t.Fatalf("expected %d holes, got %d", len(holes), len(x.Defined))
	}
	return x.Defined
}

func TestVoidCounterbore(t *testing.T) {
	holes := extract(t, memkernel.Hole{
		X: 30, Y: 30, Radius: 4, Depth: 12,
		Counters: []memkernel.Stage{{Radius: 8, Depth: 6}},
	})
	void, err := tessellate.Void(holes[0])
	if err != nil {
		t.Fatalf("Void failed: %v", err)
	}

	tests := []struct {
		name   string
		p      v3.Vec
		inside bool
	}{
		{"counterbore", v3.Vec{X: 36, Y: 30, Z: 27}, true},
		{"bore", v3.Vec{X: 30, Y: 30, Z: 15}, true},
		{"under the shoulder", v3.Vec{X: 36, Y: 30, Z: 20}, false},
		{"below the floor", v3.Vec{X: 30, Y: 30, Z: 8}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := void.Evaluate(tt.p)
			if tt.inside && d >= 0 {
				t.Errorf("expected %v inside the void, got %v", tt.p, d)
			}
			if !tt.inside && d <= 0 {
				t.Errorf("expected %v outside the void, got %v", tt.p, d)
			}
		})
	}
}

func TestHolesOneMeshPerHole(t *testing.T) {
	holes := extract(t,
		memkernel.Hole{X: 20, Y: 30, Radius: 5, Through: true},
		memkernel.Hole{X: 60, Y: 30, Radius: 3, Depth: 10, Floor: memkernel.DrillPoint},
	)
	meshes, err := tessellate.Holes(holes, testCells)
	if err != nil {
		t.Fatalf("Holes failed: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	for i, m := range meshes {
		if m.IsEmpty() {
			t.Errorf("mesh %d is empty", i)
		}
		if len(m.Indices) != m.TriangleCount()*3 {
			t.Errorf("mesh %d: index count %d is not 3 per triangle", i, len(m.Indices))
		}
	}
	if !strings.HasPrefix(meshes[0].Name, "HOLE_") || !strings.HasSuffix(meshes[0].Name, "#0") {
		t.Errorf("unexpected name %q", meshes[0].Name)
	}
	if !strings.HasPrefix(meshes[1].Name, "POCKET_") {
		t.Errorf("unexpected name %q", meshes[1].Name)
	}
}

func TestHolesEmpty(t *testing.T) {
	meshes, err := tessellate.Holes(nil, testCells)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(meshes) != 0 {
		t.Errorf("expected no meshes, got %d", len(meshes))
	}
}

func TestVoidWithoutFaces(t *testing.T) {
	if _, err := tessellate.Void(hole.CommonHole{}); !errors.Is(err, tessellate.ErrNoVolume) {
		t.Fatalf("expected ErrNoVolume, got %v", err)
	}
}
