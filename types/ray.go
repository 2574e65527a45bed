package types

// A ray with an origin and a direction. The direction is not required to be
// normalized.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// Create a new ray.
func NewRay(origin, dir Vec3) Ray {
	return Ray{Origin: origin, Dir: dir}
}

// Get the point at distance t along the ray.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Get the mirror reflection of the ray direction about a surface normal.
func (r Ray) Reflect(normal Vec3) Vec3 {
	return r.Dir.Reflect(normal.Normalize())
}

// Interpolate origin and direction of two rays. The resulting direction is
// normalized.
func LerpRay(a, b Ray, t float32) Ray {
	return Ray{
		Origin: a.Origin.Lerp(b.Origin, t),
		Dir:    a.Dir.Lerp(b.Dir, t).Normalize(),
	}
}
