package scene

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/BouncingElf10/raytracer/types"
)

// Encoded record sizes in bytes. All records use little-endian std430
// compatible layouts.
const (
	GpuTriangleSize = 80
	GpuSphereSize   = 48
	GpuPlaneSize    = 80
	GpuRaySize      = 32
	CountsSize      = 32

	// Byte offset of the sample slot inside the encoded Counts record.
	CountsSampleOffset = 20
)

// Triangle record: v0, v1, v2 (each padded to 16 bytes), albedo, emission,
// metallic, roughness and 2 words of padding.
type GpuTriangle struct {
	V0, V1, V2 types.Vec3

	Albedo    types.Vec3
	Emission  float32
	Metallic  float32
	Roughness float32
}

// Convert triangle to its GPU record.
func NewGpuTriangle(tri Triangle) GpuTriangle {
	return GpuTriangle{
		V0:        tri.V0,
		V1:        tri.V1,
		V2:        tri.V2,
		Albedo:    colorToVec3(tri.Material.Albedo),
		Emission:  tri.Material.Emission,
		Metallic:  tri.Material.Metallic,
		Roughness: tri.Material.Roughness,
	}
}

// Convert record back to a triangle with the given ID.
func (r GpuTriangle) Triangle(id uint32) Triangle {
	return NewTriangle(id, r.V0, r.V1, r.V2, NewMaterial(vec3ToColor(r.Albedo), r.Roughness, r.Metallic, r.Emission))
}

// Append the binary encoding of the record to b.
func (r GpuTriangle) AppendBinary(b []byte) []byte {
	b = appendVec3(b, r.V0, 0)
	b = appendVec3(b, r.V1, 0)
	b = appendVec3(b, r.V2, 0)
	b = appendVec3(b, r.Albedo, r.Emission)
	b = appendF32(b, r.Metallic)
	b = appendF32(b, r.Roughness)
	return appendU32(appendU32(b, 0), 0)
}

func decodeGpuTriangle(b []byte) GpuTriangle {
	return GpuTriangle{
		V0:        readVec3(b, 0),
		V1:        readVec3(b, 16),
		V2:        readVec3(b, 32),
		Albedo:    readVec3(b, 48),
		Emission:  readF32(b, 60),
		Metallic:  readF32(b, 64),
		Roughness: readF32(b, 68),
	}
}

// Sphere record: center, radius, albedo, emission, metallic, roughness and 2
// words of padding.
type GpuSphere struct {
	Center types.Vec3
	Radius float32

	Albedo    types.Vec3
	Emission  float32
	Metallic  float32
	Roughness float32
}

// Convert sphere to its GPU record.
func NewGpuSphere(s *Sphere) GpuSphere {
	return GpuSphere{
		Center:    s.Center,
		Radius:    s.Radius,
		Albedo:    colorToVec3(s.Material.Albedo),
		Emission:  s.Material.Emission,
		Metallic:  s.Material.Metallic,
		Roughness: s.Material.Roughness,
	}
}

// Convert record back to a sphere.
func (r GpuSphere) Sphere() *Sphere {
	return NewSphere(r.Center, r.Radius, NewMaterial(vec3ToColor(r.Albedo), r.Roughness, r.Metallic, r.Emission))
}

// Append the binary encoding of the record to b.
func (r GpuSphere) AppendBinary(b []byte) []byte {
	b = appendVec3(b, r.Center, r.Radius)
	b = appendVec3(b, r.Albedo, r.Emission)
	b = appendF32(b, r.Metallic)
	b = appendF32(b, r.Roughness)
	return appendU32(appendU32(b, 0), 0)
}

func decodeGpuSphere(b []byte) GpuSphere {
	return GpuSphere{
		Center:    readVec3(b, 0),
		Radius:    readF32(b, 12),
		Albedo:    readVec3(b, 16),
		Emission:  readF32(b, 28),
		Metallic:  readF32(b, 32),
		Roughness: readF32(b, 36),
	}
}

// Plane record: center (16), normal (16), width, length, pad[2], albedo (16),
// emission, metallic, roughness and 1 word of padding.
type GpuPlane struct {
	Center types.Vec3
	Normal types.Vec3
	Width  float32
	Length float32

	Albedo    types.Vec3
	Emission  float32
	Metallic  float32
	Roughness float32
}

// Convert plane to its GPU record.
func NewGpuPlane(p *Plane) GpuPlane {
	return GpuPlane{
		Center:    p.Center,
		Normal:    p.Normal,
		Width:     p.Width,
		Length:    p.Length,
		Albedo:    colorToVec3(p.Material.Albedo),
		Emission:  p.Material.Emission,
		Metallic:  p.Material.Metallic,
		Roughness: p.Material.Roughness,
	}
}

// Convert record back to a plane.
func (r GpuPlane) Plane() *Plane {
	return NewPlane(r.Center, r.Normal, r.Width, r.Length, NewMaterial(vec3ToColor(r.Albedo), r.Roughness, r.Metallic, r.Emission))
}

// Append the binary encoding of the record to b.
func (r GpuPlane) AppendBinary(b []byte) []byte {
	b = appendVec3(b, r.Center, 0)
	b = appendVec3(b, r.Normal, 0)
	b = appendF32(b, r.Width)
	b = appendF32(b, r.Length)
	b = appendU32(appendU32(b, 0), 0)
	b = appendVec3(b, r.Albedo, 0)
	b = appendF32(b, r.Emission)
	b = appendF32(b, r.Metallic)
	b = appendF32(b, r.Roughness)
	return appendU32(b, 0)
}

func decodeGpuPlane(b []byte) GpuPlane {
	return GpuPlane{
		Center:    readVec3(b, 0),
		Normal:    readVec3(b, 16),
		Width:     readF32(b, 32),
		Length:    readF32(b, 36),
		Albedo:    readVec3(b, 48),
		Emission:  readF32(b, 64),
		Metallic:  readF32(b, 68),
		Roughness: readF32(b, 72),
	}
}

// Ray record: origin and direction, each padded to 16 bytes.
type GpuRay struct {
	Origin types.Vec3
	Dir    types.Vec3
}

// Append the binary encoding of the record to b.
func (r GpuRay) AppendBinary(b []byte) []byte {
	return appendVec3(appendVec3(b, r.Origin, 0), r.Dir, 0)
}

func decodeGpuRay(b []byte) GpuRay {
	return GpuRay{Origin: readVec3(b, 0), Dir: readVec3(b, 16)}
}

// The per-frame uniform block shared by all kernel invocations.
type Counts struct {
	Spheres    uint32
	Triangles  uint32
	Planes     uint32
	Width      uint32
	Height     uint32
	Sample     uint32
	BvhNodes   uint32
	BvhIndices uint32
}

// Append the binary encoding of the record to b.
func (c Counts) AppendBinary(b []byte) []byte {
	for _, v := range [8]uint32{c.Spheres, c.Triangles, c.Planes, c.Width, c.Height, c.Sample, c.BvhNodes, c.BvhIndices} {
		b = appendU32(b, v)
	}
	return b
}

// Decode a Counts record.
func DecodeCounts(b []byte) (Counts, error) {
	if len(b) < CountsSize {
		return Counts{}, fmt.Errorf("scene: counts record needs %d bytes; got %d", CountsSize, len(b))
	}
	return Counts{
		Spheres:    readU32(b, 0),
		Triangles:  readU32(b, 4),
		Planes:     readU32(b, 8),
		Width:      readU32(b, 12),
		Height:     readU32(b, 16),
		Sample:     readU32(b, 20),
		BvhNodes:   readU32(b, 24),
		BvhIndices: readU32(b, 28),
	}, nil
}

// Encode the sample slot of a Counts record.
func EncodeSample(sample uint32) []byte {
	return appendU32(nil, sample)
}

type binaryAppender interface {
	AppendBinary([]byte) []byte
}

// Encode a list of records. An empty list is padded with a single zeroed
// record of recordSize bytes so that the resulting buffer is never empty.
func encodeList[T binaryAppender](list []T, recordSize int) []byte {
	if len(list) == 0 {
		return make([]byte, recordSize)
	}
	b := make([]byte, 0, len(list)*recordSize)
	for _, r := range list {
		b = r.AppendBinary(b)
	}
	return b
}

func decodeList[T any](b []byte, recordSize, count int, decode func([]byte) T) ([]T, error) {
	if len(b) < count*recordSize {
		return nil, fmt.Errorf("scene: buffer too small for %d records of %d bytes; got %d bytes", count, recordSize, len(b))
	}
	out := make([]T, count)
	for i := range out {
		out[i] = decode(b[i*recordSize:])
	}
	return out, nil
}

func EncodeBvhNodes(nodes []BvhNode) []byte { return encodeList(nodes, BvhNodeSize) }

func EncodeTriangles(tris []GpuTriangle) []byte { return encodeList(tris, GpuTriangleSize) }

func EncodeSpheres(spheres []GpuSphere) []byte { return encodeList(spheres, GpuSphereSize) }

func EncodePlanes(planes []GpuPlane) []byte { return encodeList(planes, GpuPlaneSize) }

func EncodeRays(rays []GpuRay) []byte { return encodeList(rays, GpuRaySize) }

// Encode the BVH index list. An empty list is padded with a single zero entry.
func EncodeIndices(indices []uint32) []byte {
	if len(indices) == 0 {
		return make([]byte, 4)
	}
	b := make([]byte, 0, 4*len(indices))
	for _, index := range indices {
		b = appendU32(b, index)
	}
	return b
}

func DecodeBvhNodes(b []byte, count int) ([]BvhNode, error) {
	return decodeList(b, BvhNodeSize, count, decodeBvhNode)
}

func DecodeTriangles(b []byte, count int) ([]GpuTriangle, error) {
	return decodeList(b, GpuTriangleSize, count, decodeGpuTriangle)
}

func DecodeSpheres(b []byte, count int) ([]GpuSphere, error) {
	return decodeList(b, GpuSphereSize, count, decodeGpuSphere)
}

func DecodePlanes(b []byte, count int) ([]GpuPlane, error) {
	return decodeList(b, GpuPlaneSize, count, decodeGpuPlane)
}

func DecodeRays(b []byte, count int) ([]GpuRay, error) {
	return decodeList(b, GpuRaySize, count, decodeGpuRay)
}

func DecodeIndices(b []byte, count int) ([]uint32, error) {
	return decodeList(b, 4, count, func(b []byte) uint32 { return readU32(b, 0) })
}

func appendU32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

func appendF32(b []byte, v float32) []byte {
	return appendU32(b, math.Float32bits(v))
}

// Append a vec3 followed by a 4th word (padding or a packed scalar).
func appendVec3(b []byte, v types.Vec3, w float32) []byte {
	return appendF32(appendF32(appendF32(appendF32(b, v[0]), v[1]), v[2]), w)
}

func readU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}

func readF32(b []byte, off int) float32 {
	return math.Float32frombits(readU32(b, off))
}

func readVec3(b []byte, off int) types.Vec3 {
	return types.Vec3{readF32(b, off), readF32(b, off+4), readF32(b, off+8)}
}

func colorToVec3(c types.Color) types.Vec3 {
	return types.Vec3{c.R, c.G, c.B}
}

func vec3ToColor(v types.Vec3) types.Color {
	return types.Color{R: v[0], G: v[1], B: v[2]}
}
