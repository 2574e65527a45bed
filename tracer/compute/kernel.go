package compute

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/tracer/compute/device"
	"github.com/BouncingElf10/raytracer/tracer/integrator"
	"github.com/BouncingElf10/raytracer/types"
	"github.com/chewxy/math32"
	"github.com/gogpu/naga"
)

//go:embed shaders/pathtrace.wgsl
var kernelSource string

// Kernel binding slots. They match the @binding attributes in pathtrace.wgsl.
const (
	BindingSpheres = iota
	BindingTriangles
	BindingPlanes
	BindingCounts
	BindingBvhNodes
	BindingBvhIndices
	BindingRays
	BindingOutput
	BindingRoots
	BindingParams
	numBindings
)

const (
	// Size of the per-dispatch uniform block.
	DispatchParamsSize = 16

	// Each output record is a vec4<f32>.
	OutputRecordSize = 16

	// Maximum BVH traversal depth.
	traversalStackSize = 64

	// Ray direction components smaller than this are clamped before
	// inversion.
	minDirComponent float32 = 1e-8
)

// Per-dispatch parameters.
type DispatchParams struct {
	Seed   uint32
	BlockY uint32
	BlockH uint32
}

// Append the binary encoding of the record to b.
func (p DispatchParams) AppendBinary(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, p.Seed)
	b = binary.LittleEndian.AppendUint32(b, p.BlockY)
	b = binary.LittleEndian.AppendUint32(b, p.BlockH)
	return binary.LittleEndian.AppendUint32(b, 0)
}

// Get the WGSL source of the path tracing kernel.
func KernelSource() string {
	return kernelSource
}

// Compile the path tracing kernel to SPIR-V.
func CompileKernel() ([]uint32, error) {
	spirvBytes, err := naga.Compile(kernelSource)
	if err != nil {
		return nil, fmt.Errorf("compute: failed to compile kernel: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}

	return spirvCode, nil
}

// The host implementation of the path tracing kernel. It reads its inputs
// from device buffers that use the same layout as the WGSL bindings and
// executes one path per work item on the device worker pool.
type Kernel struct {
	device   *device.Device
	bindings [numBindings]*device.Buffer

	// Scene data decoded from the bound buffers.
	counts    scene.Counts
	spheres   []*scene.Sphere
	planes    []*scene.Plane
	triangles []scene.Triangle
	nodes     []scene.BvhNode
	indices   []uint32
	roots     []uint32
}

// Create a kernel that runs on the given device.
func NewKernel(dev *device.Device) *Kernel {
	return &Kernel{device: dev}
}

// Bind buffers to the kernel in binding slot order and decode the scene
// data. SetArgs must be called again whenever the scene buffers change.
func (k *Kernel) SetArgs(args ...*device.Buffer) error {
	if len(args) != numBindings {
		return fmt.Errorf("compute: kernel expects %d arguments; got %d", numBindings, len(args))
	}
	for slot, buf := range args {
		if buf == nil || buf.Size() == 0 {
			return fmt.Errorf("compute: kernel argument %d is not allocated", slot)
		}
	}
	copy(k.bindings[:], args)

	return k.decodeScene()
}

func (k *Kernel) decodeScene() error {
	var err error

	k.counts, err = scene.DecodeCounts(k.bindings[BindingCounts].Bytes())
	if err != nil {
		return err
	}

	spheres, err := scene.DecodeSpheres(k.bindings[BindingSpheres].Bytes(), int(k.counts.Spheres))
	if err != nil {
		return err
	}
	k.spheres = make([]*scene.Sphere, len(spheres))
	for i, s := range spheres {
		k.spheres[i] = s.Sphere()
	}

	planes, err := scene.DecodePlanes(k.bindings[BindingPlanes].Bytes(), int(k.counts.Planes))
	if err != nil {
		return err
	}
	k.planes = make([]*scene.Plane, len(planes))
	for i, p := range planes {
		k.planes[i] = p.Plane()
	}

	triangles, err := scene.DecodeTriangles(k.bindings[BindingTriangles].Bytes(), int(k.counts.Triangles))
	if err != nil {
		return err
	}
	k.triangles = make([]scene.Triangle, len(triangles))
	for i, tri := range triangles {
		k.triangles[i] = tri.Triangle(uint32(i))
	}

	if k.nodes, err = scene.DecodeBvhNodes(k.bindings[BindingBvhNodes].Bytes(), int(k.counts.BvhNodes)); err != nil {
		return err
	}
	if k.indices, err = scene.DecodeIndices(k.bindings[BindingBvhIndices].Bytes(), int(k.counts.BvhIndices)); err != nil {
		return err
	}

	k.roots = nil
	if len(k.nodes) != 0 {
		rootBuf := k.bindings[BindingRoots].Bytes()
		if k.roots, err = scene.DecodeIndices(rootBuf, len(rootBuf)/4); err != nil {
			return err
		}
	}

	return k.validateBvh()
}

// Ensure that traversal never leaves the bound buffers.
func (k *Kernel) validateBvh() error {
	nodeCount := uint32(len(k.nodes))
	for _, root := range k.roots {
		if root >= nodeCount {
			return fmt.Errorf("compute: bvh root %d out of range (%d nodes)", root, nodeCount)
		}
	}
	for index, node := range k.nodes {
		if node.Leaf() {
			if uint64(node.LeftFirst)+uint64(node.RightCount) > uint64(len(k.indices)) {
				return fmt.Errorf("compute: bvh leaf %d references indices [%d, %d) but only %d exist", index, node.LeftFirst, node.LeftFirst+node.RightCount, len(k.indices))
			}
			continue
		}
		if node.LeftFirst >= nodeCount || node.RightCount >= nodeCount {
			return fmt.Errorf("compute: bvh node %d references missing children %d, %d", index, node.LeftFirst, node.RightCount)
		}
	}
	for _, triIndex := range k.indices {
		if triIndex >= uint32(len(k.triangles)) {
			return fmt.Errorf("compute: bvh index %d out of range (%d triangles)", triIndex, len(k.triangles))
		}
	}
	for _, root := range k.roots {
		if err := k.checkTreeDepth(root); err != nil {
			return err
		}
	}
	return nil
}

// Ensure that traversing the tree at root never overflows the traversal
// stack. While visiting an internal node at depth d the stack holds at most d
// pending siblings plus the two children, so internal nodes must not be
// deeper than traversalStackSize-2.
func (k *Kernel) checkTreeDepth(root uint32) error {
	type entry struct {
		node  uint32
		depth int
	}

	pending := []entry{{root, 0}}
	for visited := 0; len(pending) > 0; visited++ {
		if visited >= len(k.nodes) {
			return fmt.Errorf("compute: bvh tree at root %d is not a tree", root)
		}

		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		node := &k.nodes[cur.node]
		if node.Leaf() {
			continue
		}
		if cur.depth > traversalStackSize-2 {
			return fmt.Errorf("compute: bvh tree at root %d exceeds the maximum supported depth of %d", root, traversalStackSize-1)
		}
		pending = append(pending, entry{node.LeftFirst, cur.depth + 1}, entry{node.RightCount, cur.depth + 1})
	}
	return nil
}

// Execute the kernel for the block described by the dispatch parameters
// buffer and wait for it to complete.
func (k *Kernel) Exec() (time.Duration, error) {
	if k.bindings[BindingParams] == nil {
		return 0, fmt.Errorf("compute: kernel arguments not set")
	}

	paramBuf := k.bindings[BindingParams].Bytes()
	countBuf := k.bindings[BindingCounts].Bytes()
	if len(paramBuf) < DispatchParamsSize {
		return 0, fmt.Errorf("compute: dispatch params buffer too small (%d bytes)", len(paramBuf))
	}

	params := DispatchParams{
		Seed:   binary.LittleEndian.Uint32(paramBuf[0:]),
		BlockY: binary.LittleEndian.Uint32(paramBuf[4:]),
		BlockH: binary.LittleEndian.Uint32(paramBuf[8:]),
	}
	counts, err := scene.DecodeCounts(countBuf)
	if err != nil {
		return 0, err
	}

	if params.BlockY >= counts.Height {
		return 0, nil
	}
	blockH := params.BlockH
	if params.BlockY+blockH > counts.Height {
		blockH = counts.Height - params.BlockY
	}

	first := int(params.BlockY * counts.Width)
	pixels := int(blockH * counts.Width)
	rayBuf := k.bindings[BindingRays].Bytes()
	if len(rayBuf) < (first+pixels)*scene.GpuRaySize {
		return 0, fmt.Errorf("compute: ray buffer too small for block at row %d", params.BlockY)
	}
	rays, err := scene.DecodeRays(rayBuf[first*scene.GpuRaySize:], pixels)
	if err != nil {
		return 0, err
	}

	out := k.bindings[BindingOutput].Bytes()
	if len(out) < (first+pixels)*OutputRecordSize {
		return 0, fmt.Errorf("compute: output buffer too small for block at row %d", params.BlockY)
	}

	tick := time.Now()
	err = k.device.Dispatch(params.BlockY, counts.Width, blockH, func(x, y uint32) {
		pixel := y*counts.Width + x
		ray := rays[int(pixel)-first]
		rng := newPixelRand(pixel, counts.Sample, params.Seed)
		radiance := integrator.Radiance(types.NewRay(ray.Origin, ray.Dir), k, rng)
		putVec4(out[pixel*OutputRecordSize:], radiance)
	})
	if err != nil {
		return 0, err
	}

	return time.Since(tick), nil
}

// Find the closest hit along ray. Spheres and planes are tested linearly;
// triangles are reached by traversing every BVH root.
func (k *Kernel) Intersect(ray types.Ray) scene.HitInfo {
	closest := scene.NoHit(ray)
	for _, s := range k.spheres {
		if hit := s.Hit(ray); hit.HasHit && hit.T < closest.T {
			closest = hit
		}
	}
	for _, p := range k.planes {
		if hit := p.Hit(ray); hit.HasHit && hit.T < closest.T {
			closest = hit
		}
	}

	if len(k.nodes) != 0 {
		invDir := types.Vec3{
			safeInverse(ray.Dir[0]),
			safeInverse(ray.Dir[1]),
			safeInverse(ray.Dir[2]),
		}
		for _, root := range k.roots {
			k.traverse(root, ray, invDir, &closest)
		}
	}

	return closest
}

func (k *Kernel) traverse(root uint32, ray types.Ray, invDir types.Vec3, closest *scene.HitInfo) {
	var stack [traversalStackSize]uint32
	stack[0] = root
	top := 1

	for top > 0 {
		top--
		node := &k.nodes[stack[top]]
		if hitNode(node, ray.Origin, invDir) >= closest.T {
			continue
		}

		if node.Leaf() {
			for _, triIndex := range k.indices[node.LeftFirst : node.LeftFirst+node.RightCount] {
				if hit := k.triangles[triIndex].Hit(ray); hit.HasHit && hit.T < closest.T {
					*closest = hit
				}
			}
			continue
		}

		// Never false for trees accepted by checkTreeDepth.
		if top+2 <= traversalStackSize {
			stack[top] = node.RightCount
			stack[top+1] = node.LeftFirst
			top += 2
		}
	}
}

// Slab test against the node bounds. Returns the entry distance or +Inf if
// the box is missed.
func hitNode(node *scene.BvhNode, origin, invDir types.Vec3) float32 {
	tmin := float32(0)
	tmax := math32.Inf(1)
	for axis := 0; axis < 3; axis++ {
		t0 := (node.Min[axis] - origin[axis]) * invDir[axis]
		t1 := (node.Max[axis] - origin[axis]) * invDir[axis]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = math32.Max(tmin, t0)
		tmax = math32.Min(tmax, t1)
	}

	if tmax < tmin {
		return math32.Inf(1)
	}
	return tmin
}

func safeInverse(d float32) float32 {
	if math32.Abs(d) < minDirComponent {
		if d < 0 {
			return -1 / minDirComponent
		}
		return 1 / minDirComponent
	}
	return 1 / d
}

func putVec4(b []byte, c types.Color) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(c.R))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(c.G))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(c.B))
	binary.LittleEndian.PutUint32(b[12:], math.Float32bits(1))
}

// Decode len(out) vec4 output records.
func decodeOutput(b []byte, out []types.Color) {
	for i := range out {
		rec := b[i*OutputRecordSize:]
		out[i] = types.Color{
			R: math.Float32frombits(binary.LittleEndian.Uint32(rec[0:])),
			G: math.Float32frombits(binary.LittleEndian.Uint32(rec[4:])),
			B: math.Float32frombits(binary.LittleEndian.Uint32(rec[8:])),
		}
	}
}
