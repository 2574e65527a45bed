package scene

import (
	"testing"

	"github.com/BouncingElf10/raytracer/types"
	"github.com/chewxy/math32"
)

func TestTriangleHit(t *testing.T) {
	tri := NewTriangle(0, types.XYZ(-1, -1, 0), types.XYZ(1, -1, 0), types.XYZ(0, 1, 0), DefaultMaterial())

	type spec struct {
		ray    types.Ray
		hit    bool
		expT   float32
		normal types.Vec3
	}

	specs := []spec{
		{types.NewRay(types.XYZ(0, 0, 5), types.XYZ(0, 0, -1)), true, 5, types.XYZ(0, 0, 1)},
		{types.NewRay(types.XYZ(0, 0, -5), types.XYZ(0, 0, 1)), true, 5, types.XYZ(0, 0, -1)},
		{types.NewRay(types.XYZ(5, 5, 5), types.XYZ(0, 0, -1)), false, 0, types.Vec3{}},
		// parallel
		{types.NewRay(types.XYZ(0, 0, 5), types.XYZ(1, 0, 0)), false, 0, types.Vec3{}},
		// behind origin
		{types.NewRay(types.XYZ(0, 0, 5), types.XYZ(0, 0, 1)), false, 0, types.Vec3{}},
	}

	for index, s := range specs {
		hit := tri.Hit(s.ray)
		if hit.HasHit != s.hit {
			t.Fatalf("[spec %d] expected hit to be %t; got %t", index, s.hit, hit.HasHit)
		}
		if !s.hit {
			if !math32.IsInf(hit.T, 1) {
				t.Fatalf("[spec %d] expected miss to report T=+Inf; got %f", index, hit.T)
			}
			continue
		}
		if math32.Abs(hit.T-s.expT) > 1e-5 {
			t.Fatalf("[spec %d] expected T %f; got %f", index, s.expT, hit.T)
		}
		if hit.Normal != s.normal {
			t.Fatalf("[spec %d] expected normal %v; got %v", index, s.normal, hit.Normal)
		}
	}
}

func TestTriangleCentroid(t *testing.T) {
	tri := NewTriangle(0, types.XYZ(0, 0, 0), types.XYZ(3, 0, 0), types.XYZ(0, 3, 3), DefaultMaterial())
	exp := types.XYZ(1, 1, 1)
	if c := tri.Centroid(); c != exp {
		t.Fatalf("expected centroid %v; got %v", exp, c)
	}
}

func TestSphereHit(t *testing.T) {
	s := NewSphere(types.XYZ(0, 0, 0), 1, DefaultMaterial())

	hit := s.Hit(types.NewRay(types.XYZ(0, 0, 5), types.XYZ(0, 0, -1)))
	if !hit.HasHit || math32.Abs(hit.T-4) > 1e-5 {
		t.Fatalf("expected hit at t=4; got %+v", hit)
	}
	if hit.Normal != types.XYZ(0, 0, 1) {
		t.Fatalf("expected normal (0, 0, 1); got %v", hit.Normal)
	}

	// From the inside the far root must be used.
	hit = s.Hit(types.NewRay(types.XYZ(0, 0, 0), types.XYZ(1, 0, 0)))
	if !hit.HasHit || math32.Abs(hit.T-1) > 1e-5 {
		t.Fatalf("expected hit at t=1 from inside the sphere; got %+v", hit)
	}

	if hit = s.Hit(types.NewRay(types.XYZ(0, 5, 5), types.XYZ(0, 0, -1))); hit.HasHit {
		t.Fatal("expected ray to miss the sphere")
	}

	box := s.BBox()
	if box.Min != types.XYZ(-1, -1, -1) || box.Max != types.XYZ(1, 1, 1) {
		t.Fatalf("unexpected sphere bbox %v", box)
	}
}

func TestPlaneHit(t *testing.T) {
	// The tangent of a Y-facing plane lies on Z so the width spans Z and the
	// length spans X.
	floor := NewPlane(types.XYZ(0, -1, 0), types.XYZ(0, 2, 0), 2, 4, DefaultMaterial())
	if floor.Normal != types.XYZ(0, 1, 0) {
		t.Fatalf("expected plane normal to be normalized; got %v", floor.Normal)
	}

	type spec struct {
		ray types.Ray
		hit bool
	}
	down := types.XYZ(0, -1, 0)
	specs := []spec{
		{types.NewRay(types.XYZ(0, 1, 0), down), true},
		{types.NewRay(types.XYZ(1.9, 1, 0.9), down), true},
		{types.NewRay(types.XYZ(0, 1, 1.1), down), false},
		{types.NewRay(types.XYZ(2.1, 1, 0), down), false},
		{types.NewRay(types.XYZ(0, 1, 0), types.XYZ(1, 0, 0)), false},
		{types.NewRay(types.XYZ(0, 1, 0), types.XYZ(0, 1, 0)), false},
	}
	for index, s := range specs {
		hit := floor.Hit(s.ray)
		if hit.HasHit != s.hit {
			t.Fatalf("[spec %d] expected hit to be %t; got %t", index, s.hit, hit.HasHit)
		}
	}

	// Hit from below returns a normal facing the ray.
	hit := floor.Hit(types.NewRay(types.XYZ(0, -3, 0), types.XYZ(0, 1, 0)))
	if !hit.HasHit || hit.Normal != types.XYZ(0, -1, 0) {
		t.Fatalf("expected hit from below with normal (0, -1, 0); got %+v", hit)
	}

	box := floor.BBox()
	if !box.Contains(types.XYZ(2, -1, 1)) || !box.Contains(types.XYZ(-2, -1, -1)) {
		t.Fatalf("expected plane bbox to contain its corners; got %v", box)
	}
}

func TestPlaneFrame(t *testing.T) {
	for _, normal := range []types.Vec3{
		types.XYZ(0, 1, 0),
		types.XYZ(0, -1, 0),
		types.XYZ(1, 0, 0),
		types.XYZ(0, 0, 1),
		types.XYZ(1, 1, 1),
	} {
		p := NewPlane(types.Vec3{}, normal, 1, 1, DefaultMaterial())
		tangent, bitangent := p.Frame()
		if math32.Abs(tangent.Dot(p.Normal)) > 1e-5 || math32.Abs(bitangent.Dot(p.Normal)) > 1e-5 || math32.Abs(tangent.Dot(bitangent)) > 1e-5 {
			t.Fatalf("expected orthogonal frame for normal %v; got %v, %v", normal, tangent, bitangent)
		}
		if math32.Abs(tangent.Len()-1) > 1e-5 || math32.Abs(bitangent.Len()-1) > 1e-5 {
			t.Fatalf("expected unit frame vectors for normal %v", normal)
		}
	}
}

func TestSceneIntersectReturnsClosest(t *testing.T) {
	sc := NewScene()
	near := NewMaterial(types.Color{R: 1}, 1, 0, 0)
	far := NewMaterial(types.Color{G: 1}, 1, 0, 0)
	if err := sc.Add(NewSphere(types.XYZ(0, 0, -10), 1, far)); err != nil {
		t.Fatal(err)
	}
	if err := sc.Add(NewSphere(types.XYZ(0, 0, -5), 1, near)); err != nil {
		t.Fatal(err)
	}

	hit := sc.Intersect(types.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1)))
	if !hit.HasHit || hit.Material != near {
		t.Fatalf("expected closest sphere to be hit; got %+v", hit)
	}

	if hit = sc.Intersect(types.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, 1))); hit.HasHit {
		t.Fatal("expected miss")
	}
}

func TestSceneAdd(t *testing.T) {
	sc := NewScene()
	if err := sc.Add(nil); err != ErrNilObject {
		t.Fatalf("expected ErrNilObject; got %v", err)
	}

	s := NewSphere(types.Vec3{}, 1, DefaultMaterial())
	if err := sc.Add(s); err != nil {
		t.Fatal(err)
	}
	if err := sc.Add(s); err != ErrDuplicateObj {
		t.Fatalf("expected ErrDuplicateObj; got %v", err)
	}

	tri := NewTriangle(0, types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0), DefaultMaterial())
	if err := sc.Add(tri); err != nil {
		t.Fatal(err)
	}
	if err := sc.Add(tri); err != nil {
		t.Fatalf("expected identical triangle values to be accepted; got %v", err)
	}
}

func TestSceneTrianglesAssignsIDs(t *testing.T) {
	mesh := NewMesh("quad")
	mesh.AppendFace(Face{Vertices: []Vertex{
		{Position: types.XYZ(0, 0, 0)},
		{Position: types.XYZ(1, 0, 0)},
		{Position: types.XYZ(1, 1, 0)},
		{Position: types.XYZ(0, 1, 0)},
	}})

	sc := NewScene()
	sc.Add(NewTriangle(42, types.XYZ(0, 0, 1), types.XYZ(1, 0, 1), types.XYZ(0, 1, 1), DefaultMaterial()))
	sc.Add(mesh)

	tris := sc.Triangles()
	if len(tris) != 3 {
		t.Fatalf("expected 3 triangles; got %d", len(tris))
	}
	for index, tri := range tris {
		if tri.ID != uint32(index) {
			t.Fatalf("expected triangle %d to have ID %d; got %d", index, index, tri.ID)
		}
	}
	// Mesh triangles precede loose triangles.
	if tris[2].V0[2] != 1 {
		t.Fatalf("expected the loose triangle to be last; got %v", tris[2])
	}
}
