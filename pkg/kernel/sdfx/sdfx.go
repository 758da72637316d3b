// Package sdfx renders a kernel solid as a signed distance field using the
// github.com/deadsy/sdfx SDF-based CAD library, for previews. The field is
// rebuilt from the solid's faces: its bounding box, trimmed under any pins,
// with each inward cylinder or cone cut out and each outward cylinder added.
// Edge breaks (tori, spheres) are not reproduced.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/holefind/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 200

// ErrEmpty is returned for a solid without faces or volume.
var ErrEmpty = errors.New("solid is empty")

// overcut extends cutters past the faces they remove so that coplanar caps
// do not leave skins.
const overcut = 1e-2

// Preview builds the signed distance field of a solid.
func Preview(s kernel.Solid) (sdf.SDF3, error) {
	if s == nil || len(s.Faces()) == 0 {
		return nil, ErrEmpty
	}
	box := s.BoundingBox()
	size := box.Max.Sub(box.Min)
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, ErrEmpty
	}

	var pins, cuts []sdf.SDF3
	for _, f := range s.Faces() {
		switch f.Surface.Type {
		case kernel.Cylinder, kernel.Cone:
		default:
			continue
		}
		frame := f.Surface.Axis.Canonical()
		lo, hi, ok := kernel.AxialSpan(f, frame)
		if !ok || hi.Station-lo.Station <= 0 {
			continue
		}
		if !f.Inward {
			if f.Surface.Type != kernel.Cylinder {
				continue
			}
			p, err := revolve(frame, lo, hi, 0)
			if err != nil {
				return nil, fmt.Errorf("face %d: %w", f.ID, err)
			}
			pins = append(pins, p)
			box = trim(box, frame, lo, hi)
			continue
		}
		ext := 0.0
		if f.Surface.Type == kernel.Cylinder {
			ext = overcut
		}
		c, err := revolve(frame, lo, hi, ext)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", f.ID, err)
		}
		cuts = append(cuts, c)
	}

	stock, err := block(box)
	if err != nil {
		return nil, err
	}
	if len(pins) > 0 {
		stock = sdf.Union3D(append([]sdf.SDF3{stock}, pins...)...)
	}
	if len(cuts) == 0 {
		return stock, nil
	}
	return sdf.Difference3D(stock, sdf.Union3D(cuts...)), nil
}

// block is a box spanning b.
func block(b sdf.Box3) (sdf.SDF3, error) {
	size := b.Max.Sub(b.Min)
	s, err := sdf.Box3D(size, 0)
	if err != nil {
		return nil, fmt.Errorf("stock: %w", err)
	}
	// sdf.Box3D centers the box at the origin.
	centre := b.Min.Add(size.MulScalar(0.5))
	return sdf.Transform3D(s, sdf.Translate3d(centre)), nil
}

// revolve is the cylinder or truncated cone between two sections along
// frame, extended by ext at both ends.
func revolve(frame kernel.Axis, lo, hi kernel.Section, ext float64) (sdf.SDF3, error) {
	return Frustum(frame.Point(lo.Station-ext), frame.Point(hi.Station+ext), lo.Radius, hi.Radius)
}

// Frustum is the solid of revolution about the segment p0 p1 with radius r0
// at p0 and r1 at p1.
func Frustum(p0, p1 v3.Vec, r0, r1 float64) (sdf.SDF3, error) {
	d := p1.Sub(p0)
	h := d.Length()
	if h <= 0 {
		return nil, errors.New("frustum has no length")
	}
	var (
		s   sdf.SDF3
		err error
	)
	if math.Abs(r1-r0) < 1e-9 {
		s, err = sdf.Cylinder3D(h, r0, 0)
	} else {
		// Cone3D puts r0 at -h/2.
		s, err = sdf.Cone3D(h, r0, r1, 0)
	}
	if err != nil {
		return nil, err
	}
	centre := p0.Add(d.MulScalar(0.5))
	return sdf.Transform3D(s, sdf.Translate3d(centre).Mul(alignZ(d.MulScalar(1/h)))), nil
}

// alignZ rotates +Z onto the unit vector d.
func alignZ(d v3.Vec) sdf.M44 {
	theta := math.Acos(math.Max(-1, math.Min(1, d.Z)))
	phi := math.Atan2(d.Y, d.X)
	return sdf.RotateZ(phi).Mul(sdf.RotateY(theta))
}

// trim pulls the stock box back under a pin standing on it. Only pins along
// a principal axis are handled.
func trim(b sdf.Box3, frame kernel.Axis, lo, hi kernel.Section) sdf.Box3 {
	d := frame.Direction
	comp := func(v *v3.Vec, k int) *float64 {
		return [3]*float64{&v.X, &v.Y, &v.Z}[k]
	}
	for k, c := range []float64{d.X, d.Y, d.Z} {
		if math.Abs(math.Abs(c)-1) > 1e-9 {
			continue
		}
		base := *comp(&frame.Location, k)
		lo, hi := base+c*lo.Station, base+c*hi.Station
		if hi < lo {
			lo, hi = hi, lo
		}
		mid := (*comp(&b.Min, k) + *comp(&b.Max, k)) / 2
		if lo >= mid {
			*comp(&b.Max, k) = math.Min(*comp(&b.Max, k), lo)
		} else {
			*comp(&b.Min, k) = math.Max(*comp(&b.Min, k), hi)
		}
	}
	return b
}

// ToMesh converts a field to a triangle mesh using marching cubes.
func ToMesh(s sdf.SDF3, cells int) (*kernel.Mesh, error) {
	if s == nil {
		return nil, ErrEmpty
	}
	if cells <= 0 {
		cells = DefaultMeshCells
	}

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s, renderer)

	numVerts := len(triangles) * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

// PreviewMesh builds and tessellates a solid in one step.
func PreviewMesh(s kernel.Solid, cells int) (*kernel.Mesh, error) {
	f, err := Preview(s)
	if err != nil {
		return nil, err
	}
	return ToMesh(f, cells)
}
