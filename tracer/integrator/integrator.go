// Package integrator implements the Monte Carlo path integrator shared by all
// tracers.
package integrator

import (
	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/types"
	"github.com/chewxy/math32"
)

const (
	// The maximum number of bounces before a path is terminated.
	MaxRecursion = 5

	// Bounce rays are offset along the surface normal by this amount.
	SurfaceEpsilon float32 = 0.001
)

// The Intersector interface is implemented by anything that can return the
// closest hit for a ray.
type Intersector interface {
	Intersect(ray types.Ray) scene.HitInfo
}

// A Sampler generates uniformly distributed numbers in [0, 1).
type Sampler interface {
	Float32() float32
}

// Estimate the radiance carried along ray.
//
// Paths that escape the scene contribute black. Paths that reach an emissive
// surface return throughput * albedo * emission. Otherwise the path is
// continued in a direction obtained by blending the mirror reflection with a
// cosine-weighted diffuse sample according to the surface roughness, until
// MaxRecursion bounces have been traced.
func Trace(ray types.Ray, throughput types.Color, world Intersector, depth int, rng Sampler) types.Color {
	hit := world.Intersect(ray)
	if !hit.HasHit {
		return types.Black()
	}

	if hit.Material.IsEmissive() {
		return emitted(hit, throughput)
	}

	if depth >= MaxRecursion {
		return types.Black()
	}

	next, throughput := Scatter(ray, hit, throughput, rng)
	return Trace(next, throughput, world, depth+1, rng)
}

// An iterative version of Trace. Given the same sampler state both functions
// produce identical results.
func Radiance(ray types.Ray, world Intersector, rng Sampler) types.Color {
	throughput := types.White()
	for depth := 0; ; depth++ {
		hit := world.Intersect(ray)
		if !hit.HasHit {
			return types.Black()
		}

		if hit.Material.IsEmissive() {
			return emitted(hit, throughput)
		}

		if depth >= MaxRecursion {
			return types.Black()
		}

		ray, throughput = Scatter(ray, hit, throughput, rng)
	}
}

func emitted(hit scene.HitInfo, throughput types.Color) types.Color {
	return throughput.Mul(hit.Material.Albedo).Scale(hit.Material.Emission)
}

// Generate the bounce ray for a surface hit and update the path throughput.
// Exactly two samples are drawn from rng.
func Scatter(ray types.Ray, hit scene.HitInfo, throughput types.Color, rng Sampler) (types.Ray, types.Color) {
	r1 := rng.Float32()
	r2 := rng.Float32()

	mat := hit.Material
	diffuse := SampleCosineHemisphere(hit.Normal, r1, r2)
	specular := ray.Reflect(hit.Normal).Normalize()

	dir := specular.Lerp(diffuse, mat.Roughness).Normalize()
	origin := hit.Pos.Add(hit.Normal.Mul(SurfaceEpsilon))

	weight := mat.Metallic*hit.Normal.Dot(specular) + (1-mat.Metallic)*hit.Normal.Dot(diffuse)
	return types.NewRay(origin, dir), throughput.Mul(mat.Albedo).Scale(weight)
}

// Map two uniform samples to a cosine-weighted direction in the hemisphere
// around normal.
func SampleCosineHemisphere(normal types.Vec3, r1, r2 float32) types.Vec3 {
	phi := 2 * math32.Pi * r1
	sqrtR2 := math32.Sqrt(r2)

	x := math32.Cos(phi) * sqrtR2
	y := math32.Sin(phi) * sqrtR2
	z := math32.Sqrt(math32.Max(0, 1-r2))

	up := types.Vec3{0, 0, 1}
	if math32.Abs(normal[2]) > 0.999 {
		up = types.Vec3{1, 0, 0}
	}
	tangent := up.Cross(normal).Normalize()
	bitangent := normal.Cross(tangent)

	return tangent.Mul(x).Add(bitangent.Mul(y)).Add(normal.Mul(z)).Normalize()
}
