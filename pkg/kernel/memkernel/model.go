// Package memkernel is an in-memory B-Rep kernel. It stores faces, edges and
// edge concavities explicitly, builds plates with parametric holes through
// Builder, and loads or saves the same data as YAML.
package memkernel

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/holefind/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	"gopkg.in/yaml.v3"
)

// Compile-time interface check.
var _ kernel.Solid = (*Model)(nil)

// ErrInvalidModel is returned when a model's faces and edges do not refer to
// each other consistently.
var ErrInvalidModel = errors.New("invalid model")

// EdgeRecord is an edge together with its stored concavity.
type EdgeRecord struct {
	kernel.Edge `yaml:",inline"`
	Concavity   kernel.Concavity `yaml:"concavity"`
}

// Model is a B-Rep solid held entirely in memory.
type Model struct {
	Name     string          `yaml:"name,omitempty"`
	Box      sdf.Box3        `yaml:"box"`
	FaceList []kernel.Face   `yaml:"faces"`
	EdgeList []EdgeRecord    `yaml:"edges"`
	Threads  []kernel.Circle `yaml:"threads,omitempty"`

	concavity map[kernel.EdgeID]kernel.Concavity
}

// Faces returns the model's faces in storage order.
func (m *Model) Faces() []kernel.Face {
	return m.FaceList
}

// Edges returns the model's edges in storage order.
func (m *Model) Edges() []kernel.Edge {
	out := make([]kernel.Edge, len(m.EdgeList))
	for i, e := range m.EdgeList {
		out[i] = e.Edge
	}
	return out
}

// Concavity returns the stored concavity of an edge. Unknown edges report
// Crossover, which recognition treats as a smooth, non-feature boundary.
func (m *Model) Concavity(id kernel.EdgeID) kernel.Concavity {
	if m.concavity != nil {
		if c, ok := m.concavity[id]; ok {
			return c
		}
		return kernel.Crossover
	}
	for _, e := range m.EdgeList {
		if e.ID == id {
			return e.Concavity
		}
	}
	return kernel.Crossover
}

// BoundingBox returns the stored bounding box.
func (m *Model) BoundingBox() sdf.Box3 {
	return m.Box
}

// ThreadCircles returns the cosmetic thread indicator circles carried by the
// model.
func (m *Model) ThreadCircles() []kernel.Circle {
	return m.Threads
}

// Validate checks that face ids are unique and every edge refers to known
// faces.
func (m *Model) Validate() error {
	seen := make(map[kernel.FaceID]bool, len(m.FaceList))
	for _, f := range m.FaceList {
		if seen[f.ID] {
			return fmt.Errorf("%w: duplicate face id %d", ErrInvalidModel, f.ID)
		}
		seen[f.ID] = true
	}
	edges := make(map[kernel.EdgeID]bool, len(m.EdgeList))
	for _, e := range m.EdgeList {
		if edges[e.ID] {
			return fmt.Errorf("%w: duplicate edge id %d", ErrInvalidModel, e.ID)
		}
		edges[e.ID] = true
		for _, f := range e.Faces {
			if !seen[f] {
				return fmt.Errorf("%w: edge %d refers to unknown face %d", ErrInvalidModel, e.ID, f)
			}
		}
	}
	return nil
}

func (m *Model) reindex() {
	m.concavity = make(map[kernel.EdgeID]kernel.Concavity, len(m.EdgeList))
	for _, e := range m.EdgeList {
		m.concavity[e.ID] = e.Concavity
	}
}

// ---------------------------------------------------------------------------
// YAML persistence
// ---------------------------------------------------------------------------

// Load decodes a YAML model dump and validates it.
func Load(r io.Reader) (*Model, error) {
	var m Model
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &Model{}, nil
		}
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.reindex()
	return &m, nil
}

// LoadFile reads a YAML model dump from disk.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Save writes the model as YAML.
func (m *Model) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return enc.Close()
}
