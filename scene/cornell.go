package scene

import (
	"github.com/BouncingElf10/raytracer/types"
)

const (
	cornellHalfSize float32 = 2.5
	cornellLightY   float32 = 2.499
)

// Build the classic Cornell box: grey floor, ceiling and back wall, a red
// left wall, a green right wall and a square area light just below the
// ceiling. If mesh is not nil it is placed on the floor, scaled by 2 and
// rotated 20 degrees around the Y axis.
func NewCornellBox(mesh *Mesh) *Scene {
	sc := NewScene()

	grey := NewMaterial(types.Color{R: 0.8, G: 0.8, B: 0.8}, 1, 0, 0)
	red := NewMaterial(types.Color{R: 0.9, G: 0.2, B: 0.2}, 1, 0, 0)
	green := NewMaterial(types.Color{R: 0.2, G: 0.9, B: 0.2}, 1, 0, 0)
	light := NewMaterial(types.White(), 0, 0, 1)

	size := 2 * cornellHalfSize
	walls := []*Plane{
		NewPlane(types.XYZ(0, -cornellHalfSize, 0), types.XYZ(0, 1, 0), size, size, grey),
		NewPlane(types.XYZ(0, cornellHalfSize, 0), types.XYZ(0, -1, 0), size, size, grey),
		NewPlane(types.XYZ(0, 0, -cornellHalfSize), types.XYZ(0, 0, 1), size, size, grey),
		NewPlane(types.XYZ(-cornellHalfSize, 0, 0), types.XYZ(1, 0, 0), size, size, red),
		NewPlane(types.XYZ(cornellHalfSize, 0, 0), types.XYZ(-1, 0, 0), size, size, green),
		NewPlane(types.XYZ(0, cornellLightY, 0), types.XYZ(0, -1, 0), 3, 3, light),
	}
	for _, wall := range walls {
		sc.Objects = append(sc.Objects, wall)
	}

	if mesh != nil {
		mesh.SetMaterial(NewMaterial(types.Color{R: 0.9, G: 0.9, B: 0.9}, 1, 0, 0))
		mesh.Position = types.XYZ(0, -cornellHalfSize, 0)
		mesh.Scale = 2
		mesh.Rotation = types.XYZ(0, types.Radians(20), 0)
		sc.Objects = append(sc.Objects, mesh)
	}

	return sc
}
