package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Tolerance bundles the geometric comparison thresholds used throughout
// recognition. Linear compares lengths and stations, Angular compares
// directions (sine of the angle between them) and Coaxial bounds the
// distance between two axis lines that are considered the same.
type Tolerance struct {
	Linear  float64 `yaml:"linear"`
	Angular float64 `yaml:"angular"`
	Coaxial float64 `yaml:"coaxial"`
}

// DefaultTolerance matches the thresholds the CAM side assumes.
var DefaultTolerance = Tolerance{
	Linear:  1e-3,
	Angular: 1e-4,
	Coaxial: 1e-2,
}

// Axis is a located direction.
type Axis struct {
	Location  v3.Vec `yaml:"location"`
	Direction v3.Vec `yaml:"direction"`
}

// Unit returns the axis with a normalised direction.
func (a Axis) Unit() Axis {
	return Axis{Location: a.Location, Direction: a.Direction.Normalize()}
}

// Reverse returns the axis with its direction negated.
func (a Axis) Reverse() Axis {
	return Axis{Location: a.Location, Direction: a.Direction.MulScalar(-1)}
}

// Point returns the point at station t along the axis.
func (a Axis) Point(t float64) v3.Vec {
	return a.Location.Add(a.Direction.MulScalar(t))
}

// Station returns the signed distance of p's projection from the axis
// location, measured along the direction.
func (a Axis) Station(p v3.Vec) float64 {
	return p.Sub(a.Location).Dot(a.Direction)
}

// Distance returns the distance from p to the axis line.
func (a Axis) Distance(p v3.Vec) float64 {
	d := p.Sub(a.Location)
	return d.Sub(a.Direction.MulScalar(d.Dot(a.Direction))).Length()
}

// Canonical returns the axis with its direction flipped, if needed, so that
// the first component with a significant magnitude is positive. Two
// antiparallel axes have the same canonical direction.
func (a Axis) Canonical() Axis {
	u := a.Unit()
	for _, c := range []float64{u.Direction.X, u.Direction.Y, u.Direction.Z} {
		if math.Abs(c) < 1e-9 {
			continue
		}
		if c < 0 {
			return u.Reverse()
		}
		break
	}
	return u
}

// Parallel reports whether the two directions are parallel or antiparallel.
func Parallel(a, b v3.Vec, tol Tolerance) bool {
	return a.Normalize().Cross(b.Normalize()).Length() <= tol.Angular
}

// SameDirection reports whether the two directions are parallel and point
// the same way.
func SameDirection(a, b v3.Vec, tol Tolerance) bool {
	return Parallel(a, b, tol) && a.Dot(b) > 0
}

// IsCoaxial reports whether two axes share the same line within tolerance.
func IsCoaxial(a, b Axis, tol Tolerance) bool {
	if !Parallel(a.Direction, b.Direction, tol) {
		return false
	}
	return a.Unit().Distance(b.Location) <= tol.Coaxial
}

// Section is a ring on a revolved face: a station along some frame axis and
// the radius about the face's own axis at that station.
type Section struct {
	Station float64
	Radius  float64
}

// AxialSpan evaluates the two parametric v-bounds of f and returns the
// corresponding sections measured against frame. The frame direction must
// be a unit vector. Planes return their location station and zero radius
// at both ends; ok is false for surfaces without an axis.
func AxialSpan(f Face, frame Axis) (lo, hi Section, ok bool) {
	s := f.Surface
	ax := s.Axis.Unit()
	at := func(v float64) Section {
		var along, r float64
		switch s.Type {
		case Cylinder:
			along, r = v, s.Radius
		case Cone:
			along, r = v*math.Cos(s.SemiAngle), s.Radius+v*math.Sin(s.SemiAngle)
		case Sphere:
			along, r = s.Radius*math.Sin(v), s.Radius*math.Cos(v)
		case Torus:
			along, r = s.MinorRadius*math.Sin(v), s.Radius+s.MinorRadius*math.Cos(v)
		}
		return Section{Station: frame.Station(ax.Point(along)), Radius: math.Abs(r)}
	}
	switch s.Type {
	case Plane:
		t := frame.Station(s.Axis.Location)
		return Section{Station: t}, Section{Station: t}, true
	case Cylinder, Cone, Sphere, Torus:
		lo, hi = at(f.Bounds.VMin), at(f.Bounds.VMax)
		if hi.Station < lo.Station {
			lo, hi = hi, lo
		}
		return lo, hi, true
	}
	return Section{}, Section{}, false
}
