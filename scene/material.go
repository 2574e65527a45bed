package scene

import "github.com/BouncingElf10/raytracer/types"

// Defines a surface material. Channel values are conventionally in the
// [0, 1] range but this is not enforced.
type Material struct {
	// Diffuse/albedo color.
	Albedo types.Color

	// Blends between a mirror (0) and a fully diffuse (1) bounce direction.
	Roughness float32

	// Blends between the diffuse (0) and specular (1) throughput terms.
	Metallic float32

	// Emitted radiance scaler. Any value > 0 turns the surface into a light.
	Emission float32
}

// Create a new material.
func NewMaterial(albedo types.Color, roughness, metallic, emission float32) Material {
	return Material{
		Albedo:    albedo,
		Roughness: roughness,
		Metallic:  metallic,
		Emission:  emission,
	}
}

// A rough, white, non-emissive material.
func DefaultMaterial() Material {
	return NewMaterial(types.White(), 1, 0, 0)
}

// Returns true if this material emits light.
func (m Material) IsEmissive() bool {
	return m.Emission > 0
}
