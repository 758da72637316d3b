// Package kernel defines the abstract B-Rep kernel boundary.
// Implementations (memkernel, or an adapter over a real modeller) expose
// faces, edges, surface geometry and edge concavity behind this interface.
// Recognition code never talks to a modelling library directly.
package kernel

import (
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// FaceID is an opaque kernel face identity.
type FaceID int

// EdgeID is an opaque kernel edge identity.
type EdgeID int

// Concavity classifies the dihedral angle across an edge measured through
// the material.
type Concavity int

const (
	Convex Concavity = iota
	Crossover
	Concave
)

func (c Concavity) String() string {
	switch c {
	case Convex:
		return "convex"
	case Crossover:
		return "crossover"
	case Concave:
		return "concave"
	}
	return fmt.Sprintf("Concavity(%d)", int(c))
}

// SurfaceType is the analytic type of a face's underlying surface.
type SurfaceType int

const (
	Plane SurfaceType = iota
	Cylinder
	Cone
	Sphere
	Torus
	Other
)

func (t SurfaceType) String() string {
	switch t {
	case Plane:
		return "plane"
	case Cylinder:
		return "cylinder"
	case Cone:
		return "cone"
	case Sphere:
		return "sphere"
	case Torus:
		return "torus"
	case Other:
		return "other"
	}
	return fmt.Sprintf("SurfaceType(%d)", int(t))
}

// Revolved reports whether surfaces of this type are described by an axis
// and radii.
func (t SurfaceType) Revolved() bool {
	switch t {
	case Cylinder, Cone, Sphere, Torus:
		return true
	}
	return false
}

// Surface is the analytic description of a face's geometry.
//
// Parametrisations follow the usual B-Rep conventions, with v measured along
// (or around) the axis:
//
//	Plane:    Axis.Direction is the face normal pointing out of the material.
//	Cylinder: P(u,v) = L + R(cos u X + sin u Y) + v D
//	Cone:     P(u,v) = L + (R + v sin A)(cos u X + sin u Y) + v cos A D
//	Sphere:   P(u,v) = L + R cos v (cos u X + sin u Y) + R sin v D
//	Torus:    P(u,v) = L + (R + r cos v)(cos u X + sin u Y) + r sin v D
//
// where L = Axis.Location, D = Axis.Direction, R = Radius, r = MinorRadius
// and A = SemiAngle in radians.
type Surface struct {
	Type        SurfaceType `yaml:"type"`
	Axis        Axis        `yaml:"axis"`
	Radius      float64     `yaml:"radius,omitempty"`
	MinorRadius float64     `yaml:"minor_radius,omitempty"`
	SemiAngle   float64     `yaml:"semi_angle,omitempty"`
}

// Bounds are the parametric bounds of a face on its surface.
type Bounds struct {
	UMin float64 `yaml:"umin"`
	UMax float64 `yaml:"umax"`
	VMin float64 `yaml:"vmin"`
	VMax float64 `yaml:"vmax"`
}

// Face is one bounded surface patch of a solid.
//
// Inward is set when the face's outward (void side) normal points towards
// its surface axis, i.e. the material lies away from the axis. Bores,
// counterbores, chamfers and mouth fillets are Inward; bosses and pins are
// not. It is meaningless for planes.
type Face struct {
	ID      FaceID  `yaml:"id"`
	Surface Surface `yaml:"surface"`
	Bounds  Bounds  `yaml:"bounds"`
	Inward  bool    `yaml:"inward,omitempty"`
}

// Circle is a circular edge curve.
type Circle struct {
	Axis   Axis    `yaml:"axis"`
	Radius float64 `yaml:"radius"`
}

// Center returns the circle's center point.
func (c Circle) Center() v3.Vec {
	return c.Axis.Location
}

// Edge is a boundary curve shared by (usually) two faces. Circle is set
// when the edge curve is a full or partial circle.
type Edge struct {
	ID     EdgeID    `yaml:"id"`
	Faces  [2]FaceID `yaml:"faces"`
	Circle *Circle   `yaml:"circle,omitempty"`
}

// Solid is an opaque handle to a kernel B-Rep solid. All recognition input
// flows through these queries.
type Solid interface {
	// Faces returns every face of the solid in a stable order.
	Faces() []Face
	// Edges returns every edge of the solid in a stable order.
	Edges() []Edge
	// Concavity classifies the dihedral angle across an edge.
	Concavity(e EdgeID) Concavity
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() sdf.Box3
}
