package scene

import (
	"github.com/BouncingElf10/raytracer/types"
	"github.com/chewxy/math32"
)

const (
	// Triangle hits with a determinant below this threshold are treated as
	// misses (ray parallel to the triangle plane).
	detEpsilon float32 = 1e-8

	// Plane hits with |dot(normal, dir)| below this threshold are misses.
	parallelEpsilon float32 = 1e-6

	// Minimum hit distance for triangles and planes.
	minHitDist float32 = 1e-4

	// Minimum hit distance for spheres.
	minSphereHitDist float32 = 0.001
)

// The result of a ray intersection test.
type HitInfo struct {
	HasHit   bool
	T        float32
	Pos      types.Vec3
	Normal   types.Vec3
	Material Material

	// The ray that produced this hit.
	Ray types.Ray
}

// Returns the canonical "no hit" value for a ray.
func NoHit(ray types.Ray) HitInfo {
	return HitInfo{T: math32.Inf(1), Ray: ray}
}

// The Object interface is implemented by everything that can be added to a
// scene.
type Object interface {
	// Intersect the object with a ray and return the closest hit.
	Hit(ray types.Ray) HitInfo

	// Get the object's world-space bounding box.
	BBox() types.AABB
}

// A triangle primitive. The ID uniquely identifies the triangle inside the
// world triangle buffer.
type Triangle struct {
	ID         uint32
	V0, V1, V2 types.Vec3
	Material   Material
}

// Create a new triangle.
func NewTriangle(id uint32, v0, v1, v2 types.Vec3, material Material) Triangle {
	return Triangle{ID: id, V0: v0, V1: v1, V2: v2, Material: material}
}

// Get the triangle centroid.
func (tri Triangle) Centroid() types.Vec3 {
	return tri.V0.Add(tri.V1).Add(tri.V2).Mul(1.0 / 3.0)
}

// Get the triangle bounding box.
func (tri Triangle) BBox() types.AABB {
	return types.EmptyAABB().Extend(tri.V0).Extend(tri.V1).Extend(tri.V2)
}

// Get the geometric triangle normal.
func (tri Triangle) Normal() types.Vec3 {
	return tri.V1.Sub(tri.V0).Cross(tri.V2.Sub(tri.V0)).Normalize()
}

// Intersect triangle using the Möller-Trumbore algorithm. The returned normal
// always faces the incoming ray.
func (tri Triangle) Hit(ray types.Ray) HitInfo {
	e1 := tri.V1.Sub(tri.V0)
	e2 := tri.V2.Sub(tri.V0)
	p := ray.Dir.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < detEpsilon {
		return NoHit(ray)
	}

	invDet := 1.0 / det
	s := ray.Origin.Sub(tri.V0)
	u := s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return NoHit(ray)
	}

	q := s.Cross(e1)
	v := ray.Dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return NoHit(ray)
	}

	t := e2.Dot(q) * invDet
	if t <= minHitDist {
		return NoHit(ray)
	}

	return HitInfo{
		HasHit:   true,
		T:        t,
		Pos:      ray.At(t),
		Normal:   faceForward(e1.Cross(e2).Normalize(), ray.Dir),
		Material: tri.Material,
		Ray:      ray,
	}
}

// A sphere primitive.
type Sphere struct {
	Center   types.Vec3
	Radius   float32
	Material Material
}

// Create a new sphere.
func NewSphere(center types.Vec3, radius float32, material Material) *Sphere {
	return &Sphere{Center: center, Radius: radius, Material: material}
}

// Get the sphere bounding box.
func (s *Sphere) BBox() types.AABB {
	r := types.Vec3{s.Radius, s.Radius, s.Radius}
	return types.NewAABB(s.Center.Sub(r), s.Center.Add(r))
}

// Intersect sphere. The near root is used unless it lies behind the minimum
// hit distance in which case the far root is tried.
func (s *Sphere) Hit(ray types.Ray) HitInfo {
	oc := ray.Origin.Sub(s.Center)
	a := ray.Dir.Dot(ray.Dir)
	b := 2.0 * oc.Dot(ray.Dir)
	c := oc.Dot(oc) - s.Radius*s.Radius
	discriminant := b*b - 4*a*c
	if discriminant <= 0 || a == 0 {
		return NoHit(ray)
	}

	sqrtD := math32.Sqrt(discriminant)
	t := (-b - sqrtD) / (2 * a)
	if t < minSphereHitDist {
		t = (-b + sqrtD) / (2 * a)
	}
	if t <= minSphereHitDist {
		return NoHit(ray)
	}

	pos := ray.At(t)
	return HitInfo{
		HasHit:   true,
		T:        t,
		Pos:      pos,
		Normal:   pos.Sub(s.Center).Normalize(),
		Material: s.Material,
		Ray:      ray,
	}
}

// A bounded, double-sided rectangular plane centered at Center.
type Plane struct {
	Center types.Vec3
	Normal types.Vec3

	// Extents along the plane tangent and bitangent.
	Width  float32
	Length float32

	Material Material
}

// Create a new plane.
func NewPlane(center, normal types.Vec3, width, length float32, material Material) *Plane {
	return &Plane{
		Center:   center,
		Normal:   normal.Normalize(),
		Width:    width,
		Length:   length,
		Material: material,
	}
}

// Get the plane tangent frame. The tangent is derived from world-Y unless the
// normal is (nearly) parallel to it in which case world-X is used.
func (p *Plane) Frame() (tangent, bitangent types.Vec3) {
	up := types.Vec3{0, 1, 0}
	if math32.Abs(p.Normal[1]) > 0.999 {
		up = types.Vec3{1, 0, 0}
	}
	tangent = up.Cross(p.Normal).Normalize()
	bitangent = p.Normal.Cross(tangent)
	return tangent, bitangent
}

// Get the plane bounding box.
func (p *Plane) BBox() types.AABB {
	tangent, bitangent := p.Frame()
	hw := tangent.Mul(p.Width * 0.5)
	hl := bitangent.Mul(p.Length * 0.5)

	return types.EmptyAABB().
		Extend(p.Center.Add(hw).Add(hl)).
		Extend(p.Center.Add(hw).Sub(hl)).
		Extend(p.Center.Sub(hw).Add(hl)).
		Extend(p.Center.Sub(hw).Sub(hl))
}

// Intersect plane. The returned normal always faces the incoming ray.
func (p *Plane) Hit(ray types.Ray) HitInfo {
	denom := p.Normal.Dot(ray.Dir)
	if math32.Abs(denom) < parallelEpsilon {
		return NoHit(ray)
	}

	t := p.Center.Sub(ray.Origin).Dot(p.Normal) / denom
	if t <= minHitDist {
		return NoHit(ray)
	}

	pos := ray.At(t)
	local := pos.Sub(p.Center)
	tangent, bitangent := p.Frame()
	if math32.Abs(local.Dot(tangent)) > p.Width*0.5 || math32.Abs(local.Dot(bitangent)) > p.Length*0.5 {
		return NoHit(ray)
	}

	return HitInfo{
		HasHit:   true,
		T:        t,
		Pos:      pos,
		Normal:   faceForward(p.Normal, ray.Dir),
		Material: p.Material,
		Ray:      ray,
	}
}

// Flip n so that it points against dir.
func faceForward(n, dir types.Vec3) types.Vec3 {
	if n.Dot(dir) > 0 {
		return n.Neg()
	}
	return n
}
