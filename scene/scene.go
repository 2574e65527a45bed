package scene

import (
	"errors"

	"github.com/BouncingElf10/raytracer/types"
)

var (
	ErrNilObject     = errors.New("scene: cannot add nil object")
	ErrDuplicateObj  = errors.New("scene: object already added")
	ErrCameraMissing = errors.New("scene: no camera defined")
)

// A world made up of a flat list of objects and a camera.
type Scene struct {
	Camera  *Camera
	Objects []Object
}

// Create an empty scene with a default camera.
func NewScene() *Scene {
	return &Scene{
		Camera:  NewCamera(DefaultFrameW, DefaultFrameH),
		Objects: make([]Object, 0),
	}
}

// Attach a camera to the scene.
func (s *Scene) SetCamera(camera *Camera) {
	s.Camera = camera
}

// Add an object to the scene.
func (s *Scene) Add(obj Object) error {
	if obj == nil {
		return ErrNilObject
	}

	// Triangles are values; only pointer objects can be added twice.
	if _, isTri := obj.(Triangle); !isTri {
		for _, existing := range s.Objects {
			if existing == obj {
				return ErrDuplicateObj
			}
		}
	}
	s.Objects = append(s.Objects, obj)
	return nil
}

// Find the closest intersection by testing every object.
func (s *Scene) Intersect(ray types.Ray) HitInfo {
	closest := NoHit(ray)
	for _, obj := range s.Objects {
		if hit := obj.Hit(ray); hit.HasHit && hit.T < closest.T {
			closest = hit
		}
	}
	return closest
}

// Get the scene bounding box.
func (s *Scene) BBox() types.AABB {
	box := types.EmptyAABB()
	for _, obj := range s.Objects {
		box = box.Union(obj.BBox())
	}
	return box
}

// Get the scene meshes in insertion order.
func (s *Scene) Meshes() []*Mesh {
	var out []*Mesh
	for _, obj := range s.Objects {
		if mesh, ok := obj.(*Mesh); ok {
			out = append(out, mesh)
		}
	}
	return out
}

// Get the scene spheres in insertion order.
func (s *Scene) Spheres() []*Sphere {
	var out []*Sphere
	for _, obj := range s.Objects {
		if sphere, ok := obj.(*Sphere); ok {
			out = append(out, sphere)
		}
	}
	return out
}

// Get the scene planes in insertion order.
func (s *Scene) Planes() []*Plane {
	var out []*Plane
	for _, obj := range s.Objects {
		if plane, ok := obj.(*Plane); ok {
			out = append(out, plane)
		}
	}
	return out
}

// Get the loose triangles (triangles not owned by a mesh) in insertion order.
func (s *Scene) LooseTriangles() []Triangle {
	var out []Triangle
	for _, obj := range s.Objects {
		if tri, ok := obj.(Triangle); ok {
			out = append(out, tri)
		}
	}
	return out
}

// Collect the world triangle buffer. Mesh triangles come first, in mesh
// insertion order, followed by loose triangles. Each triangle's ID is
// rewritten to its index in the returned slice.
func (s *Scene) Triangles() []Triangle {
	var out []Triangle
	for _, mesh := range s.Meshes() {
		out = append(out, mesh.Triangles(uint32(len(out)))...)
	}
	for _, tri := range s.LooseTriangles() {
		tri.ID = uint32(len(out))
		out = append(out, tri)
	}
	return out
}
