package sdfx

import (
	"errors"
	"testing"

	"github.com/chazu/holefind/pkg/kernel/memkernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const testCells = 48

func plate(t *testing.T, holes []memkernel.Hole, bosses []memkernel.Boss) *memkernel.Model {
	t.Helper()
	b := memkernel.NewBuilder(memkernel.Plate{Length: 60, Width: 40, Thickness: 20})
	for _, h := range holes {
		if err := b.AddHole(h); err != nil {
			t.Fatalf("AddHole: %v", err)
		}
	}
	for _, p := range bosses {
		if err := b.AddBoss(p); err != nil {
			t.Fatalf("AddBoss: %v", err)
		}
	}
	return b.Build()
}

func TestPlainPlate(t *testing.T) {
	m := plate(t, nil, nil)
	s, err := Preview(m)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if d := s.Evaluate(v3.Vec{X: 30, Y: 20, Z: 10}); d >= 0 {
		t.Errorf("plate centre should be inside, got %v", d)
	}
	if d := s.Evaluate(v3.Vec{X: 30, Y: 20, Z: 25}); d <= 0 {
		t.Errorf("point above the plate should be outside, got %v", d)
	}

	mesh, err := ToMesh(s, testCells)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
}

func TestHolesAreCut(t *testing.T) {
	m := plate(t, []memkernel.Hole{
		{X: 15, Y: 20, Radius: 4, Through: true},
		{X: 40, Y: 20, Radius: 3, Depth: 10, Floor: memkernel.DrillPoint,
			Counters: []memkernel.Stage{{Radius: 6, Depth: 4}}},
	}, nil)
	s, err := Preview(m)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}

	tests := []struct {
		name    string
		p       v3.Vec
		outside bool
	}{
		{"through hole middle", v3.Vec{X: 15, Y: 20, Z: 10}, true},
		{"beside through hole", v3.Vec{X: 15, Y: 26, Z: 10}, false},
		{"counterbore", v3.Vec{X: 45, Y: 20, Z: 18}, true},
		{"under counterbore", v3.Vec{X: 45, Y: 20, Z: 14}, false},
		{"bore", v3.Vec{X: 40, Y: 20, Z: 12}, true},
		{"below blind hole", v3.Vec{X: 40, Y: 20, Z: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := s.Evaluate(tt.p)
			if tt.outside && d <= 0 {
				t.Errorf("expected %v outside material, got %v", tt.p, d)
			}
			if !tt.outside && d >= 0 {
				t.Errorf("expected %v inside material, got %v", tt.p, d)
			}
		})
	}
}

func TestBossIsAdded(t *testing.T) {
	m := plate(t, nil, []memkernel.Boss{{X: 30, Y: 20, Radius: 5, Height: 8}})
	s, err := Preview(m)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if d := s.Evaluate(v3.Vec{X: 30, Y: 20, Z: 24}); d >= 0 {
		t.Errorf("boss should be solid, got %v", d)
	}
	if d := s.Evaluate(v3.Vec{X: 10, Y: 10, Z: 24}); d <= 0 {
		t.Errorf("stock must not rise to the boss top, got %v", d)
	}
}

func TestEmpty(t *testing.T) {
	if _, err := Preview(&memkernel.Model{}); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := ToMesh(nil, 0); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestPreviewMesh(t *testing.T) {
	m := plate(t, []memkernel.Hole{{X: 30, Y: 20, Radius: 5, Through: true}}, nil)
	mesh, err := PreviewMesh(m, testCells)
	if err != nil {
		t.Fatalf("PreviewMesh failed: %v", err)
	}
	if mesh.TriangleCount() == 0 {
		t.Fatal("expected triangles")
	}
}
