package scene

import (
	"sync"

	"github.com/BouncingElf10/raytracer/types"
	"github.com/go-gl/mathgl/mgl32"
)

// A mesh vertex.
type Vertex struct {
	Position types.Vec3
	Normal   types.Vec3
}

// A polygonal face. Faces with more than 3 vertices are fan-triangulated.
type Face struct {
	Vertices []Vertex
	Material Material
}

// Append a vertex to the face.
func (f *Face) AppendVertex(v Vertex) {
	f.Vertices = append(f.Vertices, v)
}

// Triangulate face around its first vertex. Faces with less than 3 vertices
// do not generate any triangles.
func (f *Face) triangulate(xform mgl32.Mat4, nextID uint32, out []Triangle) []Triangle {
	if len(f.Vertices) < 3 {
		return out
	}

	v0 := transformPoint(xform, f.Vertices[0].Position)
	for i := 1; i < len(f.Vertices)-1; i++ {
		out = append(out, Triangle{
			ID:       nextID,
			V0:       v0,
			V1:       transformPoint(xform, f.Vertices[i].Position),
			V2:       transformPoint(xform, f.Vertices[i+1].Position),
			Material: f.Material,
		})
		nextID++
	}
	return out
}

// A Mesh is a generator of world-space triangles. Its faces are kept in
// model space; the transformation (scale, then rotation, then translation)
// is applied every time the mesh is triangulated.
type Mesh struct {
	Name  string
	Faces []Face

	Position types.Vec3

	// Euler angles in radians. Rotations are applied around X, then Y, then Z.
	Rotation types.Vec3

	// Uniform scale. A zero value is treated as 1.
	Scale float32

	// Cached world-space triangles used by Hit/BBox.
	cacheMu  sync.Mutex
	cacheKey meshCacheKey
	cache    []Triangle
}

type meshCacheKey struct {
	position, rotation types.Vec3
	scale              float32
	faces              int
}

// Create a new empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name, Scale: 1}
}

// Append a face to the mesh.
func (m *Mesh) AppendFace(face Face) {
	m.Faces = append(m.Faces, face)
	m.Invalidate()
}

// Drop the cached world-space triangles used by Hit and BBox. It must be
// called after editing the vertices or materials of existing faces in place;
// transform changes and appended faces are detected automatically.
func (m *Mesh) Invalidate() {
	m.cacheMu.Lock()
	m.cache = nil
	m.cacheMu.Unlock()
}

// Append a triangle as a 3-vertex face.
func (m *Mesh) AppendTriangle(tri Triangle) {
	m.AppendFace(Face{
		Vertices: []Vertex{{Position: tri.V0}, {Position: tri.V1}, {Position: tri.V2}},
		Material: tri.Material,
	})
}

// Assign material to all mesh faces.
func (m *Mesh) SetMaterial(material Material) {
	for index := range m.Faces {
		m.Faces[index].Material = material
	}
	m.Invalidate()
}

// Get the model matrix for the current transformation state.
func (m *Mesh) ModelMatrix() mgl32.Mat4 {
	scale := m.Scale
	if scale == 0 {
		scale = 1
	}

	rot := mgl32.HomogRotate3DZ(m.Rotation[2]).
		Mul4(mgl32.HomogRotate3DY(m.Rotation[1])).
		Mul4(mgl32.HomogRotate3DX(m.Rotation[0]))

	return mgl32.Translate3D(m.Position[0], m.Position[1], m.Position[2]).
		Mul4(rot).
		Mul4(mgl32.Scale3D(scale, scale, scale))
}

// Triangulate all faces and transform them to world space. Triangles are
// assigned consecutive IDs starting at firstID.
func (m *Mesh) Triangles(firstID uint32) []Triangle {
	xform := m.ModelMatrix()
	out := make([]Triangle, 0, len(m.Faces))
	for index := range m.Faces {
		out = m.Faces[index].triangulate(xform, firstID+uint32(len(out)), out)
	}
	return out
}

// Get the world-space bounding box of the mesh.
func (m *Mesh) BBox() types.AABB {
	box := types.EmptyAABB()
	for _, tri := range m.cachedTriangles() {
		box = box.Union(tri.BBox())
	}
	return box
}

// Intersect mesh by testing each triangle.
func (m *Mesh) Hit(ray types.Ray) HitInfo {
	closest := NoHit(ray)
	for _, tri := range m.cachedTriangles() {
		if hit := tri.Hit(ray); hit.HasHit && hit.T < closest.T {
			closest = hit
		}
	}
	return closest
}

func (m *Mesh) cachedTriangles() []Triangle {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	key := meshCacheKey{m.Position, m.Rotation, m.Scale, len(m.Faces)}
	if m.cache == nil || key != m.cacheKey {
		m.cache = m.Triangles(0)
		m.cacheKey = key
	}
	return m.cache
}

func transformPoint(xform mgl32.Mat4, p types.Vec3) types.Vec3 {
	v := xform.Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1})
	return types.Vec3{v[0], v[1], v[2]}
}
