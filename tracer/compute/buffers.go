package compute

import (
	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/tracer/compute/device"
)

// The device buffers bound to the path tracing kernel.
type bufferSet struct {
	// Scene data
	Spheres    *device.Buffer
	Triangles  *device.Buffer
	Planes     *device.Buffer
	BvhNodes   *device.Buffer
	BvhIndices *device.Buffer
	Roots      *device.Buffer

	// Uniforms
	Counts *device.Buffer
	Params *device.Buffer

	// Frame-sized ray input and radiance output
	Rays   *device.Buffer
	Output *device.Buffer
}

// Allocate new buffer set.
func newBufferSet(dev *device.Device) *bufferSet {
	return &bufferSet{
		Spheres:    dev.Buffer("spheres"),
		Triangles:  dev.Buffer("triangles"),
		Planes:     dev.Buffer("planes"),
		BvhNodes:   dev.Buffer("bvhNodes"),
		BvhIndices: dev.Buffer("bvhIndices"),
		Roots:      dev.Buffer("roots"),
		Counts:     dev.Buffer("counts"),
		Params:     dev.Buffer("params"),
		Rays:       dev.Buffer("rays"),
		Output:     dev.Buffer("output"),
	}
}

// Get the buffers in kernel binding order.
func (bs *bufferSet) Args() []*device.Buffer {
	return []*device.Buffer{
		BindingSpheres:    bs.Spheres,
		BindingTriangles:  bs.Triangles,
		BindingPlanes:     bs.Planes,
		BindingCounts:     bs.Counts,
		BindingBvhNodes:   bs.BvhNodes,
		BindingBvhIndices: bs.BvhIndices,
		BindingRays:       bs.Rays,
		BindingOutput:     bs.Output,
		BindingRoots:      bs.Roots,
		BindingParams:     bs.Params,
	}
}

// Release all buffers.
func (bs *bufferSet) Release() {
	for _, buf := range bs.Args() {
		buf.Release()
	}
}

// Resize frame-related buffers to the given frame dimensions.
func (bs *bufferSet) Resize(frameW, frameH uint32) error {
	pixels := int(frameW * frameH)

	err := bs.Rays.Allocate(pixels * scene.GpuRaySize)
	if err != nil {
		return err
	}
	err = bs.Output.Allocate(pixels * OutputRecordSize)
	if err != nil {
		return err
	}
	if bs.Params.Size() == 0 {
		return bs.Params.Allocate(DispatchParamsSize)
	}
	return nil
}

// Upload scene data to the device buffers. The counts block is written with
// the given frame dimensions and a zero sample index.
func (bs *bufferSet) UploadSceneData(sc *scene.OptimizedScene, frameW, frameH uint32) error {
	targets := []struct {
		buf  *device.Buffer
		data []byte
	}{
		{bs.Spheres, scene.EncodeSpheres(sc.Spheres)},
		{bs.Triangles, scene.EncodeTriangles(sc.Triangles)},
		{bs.Planes, scene.EncodePlanes(sc.Planes)},
		{bs.BvhNodes, scene.EncodeBvhNodes(sc.BvhNodes)},
		{bs.BvhIndices, scene.EncodeIndices(sc.BvhIndices)},
		{bs.Roots, scene.EncodeIndices(sc.MeshRoots)},
		{bs.Counts, sc.Counts(frameW, frameH, 0).AppendBinary(nil)},
	}

	for _, target := range targets {
		err := target.buf.AllocateAndWriteData(target.data)
		if err != nil {
			return err
		}
	}

	return nil
}
