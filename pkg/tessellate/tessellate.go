// Package tessellate produces triangle meshes for recognized holes, one mesh
// per hole, so a viewer can highlight them over the part preview.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/holefind/pkg/export"
	"github.com/chazu/holefind/pkg/hole"
	"github.com/chazu/holefind/pkg/kernel"
	"github.com/chazu/holefind/pkg/kernel/sdfx"
	"github.com/deadsy/sdfx/sdf"
)

// ErrNoVolume is returned for a hole without revolved faces.
var ErrNoVolume = errors.New("hole has no revolved faces")

// Void returns the volume a hole removes. Each revolved face node becomes
// the frustum between its two boundary rings; tori and spheres are
// approximated the same way.
func Void(h hole.CommonHole) (sdf.SDF3, error) {
	var parts []sdf.SDF3
	for _, n := range h.Faces {
		if !n.Type.Revolved() || n.Up == n.Down {
			continue
		}
		s, err := sdfx.Frustum(n.Up, n.Down, n.UpRadius, n.DownRadius)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", n.Face, err)
		}
		parts = append(parts, s)
	}
	switch len(parts) {
	case 0:
		return nil, ErrNoVolume
	case 1:
		return parts[0], nil
	}
	return sdf.Union3D(parts...), nil
}

// Holes produces one mesh per hole, named after its export type and its
// position in holes. The tessellator is read-only and never mutates the
// holes.
func Holes(holes []hole.CommonHole, cells int) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for i, h := range holes {
		void, err := Void(h)
		if err != nil {
			return nil, fmt.Errorf("tessellate: hole %d: %w", i, err)
		}
		mesh, err := sdfx.ToMesh(void, cells)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for hole %d: %w", i, err)
		}
		mesh.Name = fmt.Sprintf("%s#%d", export.GetUGHoleMessage(h).TypeName(), i)
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}
