package scene

import (
	"testing"

	"github.com/BouncingElf10/raytracer/types"
	"github.com/chewxy/math32"
)

func TestMeshTriangulation(t *testing.T) {
	mesh := NewMesh("test")

	// pentagon -> 3 triangles
	pentagon := Face{}
	for i := 0; i < 5; i++ {
		angle := float32(i) * 2 * math32.Pi / 5
		pentagon.AppendVertex(Vertex{Position: types.XYZ(math32.Cos(angle), math32.Sin(angle), 0)})
	}
	mesh.AppendFace(pentagon)

	// degenerate faces are dropped
	mesh.AppendFace(Face{Vertices: []Vertex{{Position: types.XYZ(0, 0, 0)}, {Position: types.XYZ(1, 0, 0)}}})
	mesh.AppendFace(Face{})

	tris := mesh.Triangles(10)
	if len(tris) != 3 {
		t.Fatalf("expected 3 triangles; got %d", len(tris))
	}
	for index, tri := range tris {
		if tri.ID != uint32(10+index) {
			t.Fatalf("expected triangle %d to have ID %d; got %d", index, 10+index, tri.ID)
		}
		if tri.V0 != tris[0].V0 {
			t.Fatalf("expected fan triangulation around the first vertex")
		}
	}
}

func TestMeshTransform(t *testing.T) {
	mesh := NewMesh("test")
	mesh.AppendTriangle(NewTriangle(0, types.XYZ(1, 0, 0), types.XYZ(0, 1, 0), types.XYZ(0, 0, 1), DefaultMaterial()))

	mesh.Scale = 2
	mesh.Position = types.XYZ(0, 10, 0)
	mesh.Rotation = types.XYZ(0, types.Radians(90), 0)

	tri := mesh.Triangles(0)[0]

	// (1,0,0) -> scale (2,0,0) -> rotate 90 about Y (0,0,-2) -> translate (0,10,-2)
	assertVecAlmostEqual(t, types.XYZ(0, 10, -2), tri.V0)
	// (0,1,0) -> (0,2,0) -> (0,2,0) -> (0,12,0)
	assertVecAlmostEqual(t, types.XYZ(0, 12, 0), tri.V1)
	// (0,0,1) -> (0,0,2) -> (2,0,0) -> (2,10,0)
	assertVecAlmostEqual(t, types.XYZ(2, 10, 0), tri.V2)

	// Transformations are applied lazily.
	mesh.Position = types.XYZ(0, 0, 0)
	assertVecAlmostEqual(t, types.XYZ(0, 0, -2), mesh.Triangles(0)[0].V0)

	box := mesh.BBox()
	assertVecAlmostEqual(t, types.XYZ(0, 0, -2), box.Min)
	assertVecAlmostEqual(t, types.XYZ(2, 2, 0), box.Max)
}

func TestMeshSetMaterial(t *testing.T) {
	mesh := NewMesh("test")
	mesh.AppendTriangle(NewTriangle(0, types.XYZ(-1, -1, 0), types.XYZ(1, -1, 0), types.XYZ(0, 1, 0), DefaultMaterial()))

	ray := types.NewRay(types.XYZ(0, 0, 5), types.XYZ(0, 0, -1))
	if hit := mesh.Hit(ray); !hit.HasHit || hit.Material != DefaultMaterial() {
		t.Fatalf("expected hit with default material; got %+v", hit)
	}

	red := NewMaterial(types.Color{R: 1}, 0.5, 0, 0)
	mesh.SetMaterial(red)
	if hit := mesh.Hit(ray); !hit.HasHit || hit.Material != red {
		t.Fatalf("expected hit with updated material; got %+v", hit)
	}
}

func assertVecAlmostEqual(t *testing.T, exp, got types.Vec3) {
	t.Helper()
	for i := 0; i < 3; i++ {
		if math32.Abs(exp[i]-got[i]) > 1e-4 {
			t.Fatalf("expected %v; got %v", exp, got)
		}
	}
}

func TestMeshInvalidate(t *testing.T) {
	mesh := NewMesh("test")
	mesh.AppendTriangle(NewTriangle(0, types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0), DefaultMaterial()))

	if box := mesh.BBox(); box.Max[0] != 1 {
		t.Fatalf("expected bbox max x to be 1; got %v", box.Max)
	}

	// In-place edits are picked up after invalidation
	mesh.Faces[0].Vertices[1].Position = types.XYZ(3, 0, 0)
	mesh.Invalidate()
	if box := mesh.BBox(); box.Max[0] != 3 {
		t.Fatalf("expected bbox max x to be 3 after invalidation; got %v", box.Max)
	}

	// Appended faces are picked up without invalidation
	mesh.AppendTriangle(NewTriangle(0, types.XYZ(0, 0, 0), types.XYZ(0, 0, 5), types.XYZ(0, 1, 0), DefaultMaterial()))
	if box := mesh.BBox(); box.Max[2] != 5 {
		t.Fatalf("expected bbox max z to be 5 after appending a face; got %v", box.Max)
	}
}
