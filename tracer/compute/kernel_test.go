package compute

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/scene/compiler"
	"github.com/BouncingElf10/raytracer/tracer/compute/device"
	"github.com/BouncingElf10/raytracer/tracer/integrator"
	"github.com/BouncingElf10/raytracer/types"
	"github.com/chewxy/math32"
)

func TestCompileKernel(t *testing.T) {
	if !strings.Contains(KernelSource(), "@compute") {
		t.Fatal("expected embedded kernel source to contain a compute entry point")
	}

	spirv, err := CompileKernel()
	if err != nil {
		t.Skipf("Skipping: kernel compilation not supported by this naga release: %v", err)
	}

	if len(spirv) == 0 {
		t.Fatal("SPIR-V output is empty")
	}
	if spirv[0] != 0x07230203 {
		t.Fatalf("invalid SPIR-V magic: 0x%08X, want 0x07230203", spirv[0])
	}
}

func TestKernelIntersectMatchesLinearScan(t *testing.T) {
	sc := compileTestScene(t)
	k, _, release := bindTestKernel(t, sc, 4, 4)
	defer release()

	world := sc.World()
	rng := rand.New(rand.NewSource(42))
	randomIn := func(min, max float32) float32 {
		return min + rng.Float32()*(max-min)
	}

	for i := 0; i < 1000; i++ {
		origin := types.XYZ(randomIn(-2.4, 2.4), randomIn(-2.4, 2.4), randomIn(-2.4, 6))
		dir := types.XYZ(randomIn(-1, 1), randomIn(-1, 1), randomIn(-1, 1)).Normalize()
		if dir.Len() == 0 {
			continue
		}
		ray := types.NewRay(origin, dir)

		expHit := world.Intersect(ray)
		hit := k.Intersect(ray)
		if hit.HasHit != expHit.HasHit {
			t.Fatalf("[ray %d] expected HasHit to be %t; got %t", i, expHit.HasHit, hit.HasHit)
		}
		if !hit.HasHit {
			continue
		}
		if math32.Abs(hit.T-expHit.T) > 1e-4 {
			t.Fatalf("[ray %d] expected hit distance %f; got %f", i, expHit.T, hit.T)
		}
	}
}

func TestKernelSeesLightDirectly(t *testing.T) {
	sc := compileTestScene(t)
	k, bs, release := bindTestKernel(t, sc, 1, 1)
	defer release()

	ray := scene.GpuRay{Origin: types.XYZ(0, 0, 0), Dir: types.XYZ(0, 1, 0)}
	if err := bs.Rays.WriteData(ray.AppendBinary(nil), 0); err != nil {
		t.Fatal(err)
	}
	params := DispatchParams{Seed: 1, BlockY: 0, BlockH: 1}
	if err := bs.Params.WriteData(params.AppendBinary(nil), 0); err != nil {
		t.Fatal(err)
	}

	if _, err := k.Exec(); err != nil {
		t.Fatal(err)
	}

	out := make([]types.Color, 1)
	decodeOutput(bs.Output.Bytes(), out)

	expColor := types.White()
	if out[0] != expColor {
		t.Fatalf("expected light emission %v; got %v", expColor, out[0])
	}
}

func TestKernelExecMatchesSerialIntegrator(t *testing.T) {
	var frameW, frameH uint32 = 16, 12
	var seed, sample uint32 = 7, 3

	sc := compileTestScene(t)
	k, bs, release := bindTestKernel(t, sc, frameW, frameH)
	defer release()

	cam := scene.NewCamera(frameW, frameH)
	cam.SetState(sc.Camera)
	rays := cam.Rays(0, frameH, nil)

	var rayData []byte
	for _, ray := range rays {
		rayData = scene.GpuRay{Origin: ray.Origin, Dir: ray.Dir}.AppendBinary(rayData)
	}
	if err := bs.Rays.WriteData(rayData, 0); err != nil {
		t.Fatal(err)
	}
	if err := bs.Counts.WriteData(scene.EncodeSample(sample), scene.CountsSampleOffset); err != nil {
		t.Fatal(err)
	}

	// Render the bottom half of the frame only
	params := DispatchParams{Seed: seed, BlockY: frameH / 2, BlockH: frameH / 2}
	if err := bs.Params.WriteData(params.AppendBinary(nil), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := k.Exec(); err != nil {
		t.Fatal(err)
	}

	out := make([]types.Color, frameW*frameH)
	decodeOutput(bs.Output.Bytes(), out)

	for pixel := uint32(0); pixel < frameW*frameH; pixel++ {
		var expColor types.Color
		if pixel >= params.BlockY*frameW {
			expColor = integrator.Radiance(rays[pixel], k, newPixelRand(pixel, sample, seed))
		}
		if out[pixel] != expColor {
			t.Fatalf("[pixel %d] expected %v; got %v", pixel, expColor, out[pixel])
		}
		if math32.IsNaN(out[pixel].R) || math32.IsInf(out[pixel].R, 0) {
			t.Fatalf("[pixel %d] non-finite radiance %v", pixel, out[pixel])
		}
	}
}

func TestKernelRejectsCorruptBvh(t *testing.T) {
	sc := compileTestScene(t)
	sc.BvhIndices[0] = uint32(len(sc.Triangles))

	dev := device.New("test", 1)
	defer dev.Close()

	bs := newBufferSet(dev)
	defer bs.Release()
	if err := bs.Resize(1, 1); err != nil {
		t.Fatal(err)
	}
	if err := bs.UploadSceneData(sc, 1, 1); err != nil {
		t.Fatal(err)
	}

	err := NewKernel(dev).SetArgs(bs.Args()...)
	if err == nil {
		t.Fatal("expected an error when binding a bvh with out of range triangle indices")
	}

	err = NewKernel(dev).SetArgs(bs.Spheres)
	if err == nil {
		t.Fatal("expected an error when binding too few arguments")
	}
}

func TestKernelRejectsDeepBvh(t *testing.T) {
	specs := []struct {
		depth  int
		expErr bool
	}{
		{traversalStackSize - 1, false},
		{traversalStackSize, true},
	}

	for specIndex, spec := range specs {
		sc := compileTestScene(t)
		sc.BvhNodes, sc.BvhIndices, sc.MeshRoots = chainBvh(spec.depth)

		dev := device.New("test", 1)
		bs := newBufferSet(dev)
		if err := bs.Resize(1, 1); err != nil {
			t.Fatal(err)
		}
		if err := bs.UploadSceneData(sc, 1, 1); err != nil {
			t.Fatal(err)
		}

		err := NewKernel(dev).SetArgs(bs.Args()...)
		bs.Release()
		dev.Close()

		if spec.expErr && err == nil {
			t.Fatalf("[spec %d] expected an error for a bvh with %d internal levels", specIndex, spec.depth)
		}
		if !spec.expErr && err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", specIndex, err)
		}
	}
}

// Build a degenerate tree with the given number of internal nodes stacked on
// top of each other. Every internal node gets its own leaf as right child.
func chainBvh(internal int) ([]scene.BvhNode, []uint32, []uint32) {
	box := types.NewAABB(types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1))
	nodes := make([]scene.BvhNode, 2*internal+1)
	for index := range nodes {
		nodes[index].SetBBox(box)
		nodes[index].SetLeaf(0, 1)
	}
	for index := 0; index < internal; index++ {
		left := uint32(index + 1)
		if index == internal-1 {
			left = uint32(2 * internal)
		}
		nodes[index].SetChildNodes(left, uint32(internal+index))
	}
	return nodes, []uint32{0}, []uint32{0}
}

func TestPixelRand(t *testing.T) {
	a := newPixelRand(10, 2, 99)
	b := newPixelRand(10, 2, 99)
	c := newPixelRand(11, 2, 99)

	var sum float32
	differs := false
	for i := 0; i < 10000; i++ {
		va, vb, vc := a.Float32(), b.Float32(), c.Float32()
		if va != vb {
			t.Fatalf("[sample %d] expected identical seeds to produce identical sequences", i)
		}
		if va < 0 || va >= 1 {
			t.Fatalf("[sample %d] value %f outside [0, 1)", i, va)
		}
		if va != vc {
			differs = true
		}
		sum += va
	}

	if !differs {
		t.Fatal("expected different pixels to produce different sequences")
	}
	if mean := sum / 10000; mean < 0.45 || mean > 0.55 {
		t.Fatalf("expected mean close to 0.5; got %f", mean)
	}
}

// A unit cube resting on the Cornell box floor.
func cubeMesh() *scene.Mesh {
	corners := [8]types.Vec3{
		{-0.5, 0, -0.5}, {0.5, 0, -0.5}, {0.5, 1, -0.5}, {-0.5, 1, -0.5},
		{-0.5, 0, 0.5}, {0.5, 0, 0.5}, {0.5, 1, 0.5}, {-0.5, 1, 0.5},
	}
	faces := [6][4]int{
		{0, 1, 2, 3}, {5, 4, 7, 6}, {4, 0, 3, 7},
		{1, 5, 6, 2}, {3, 2, 6, 7}, {4, 5, 1, 0},
	}

	mesh := scene.NewMesh("cube")
	for _, indices := range faces {
		var face scene.Face
		for _, index := range indices {
			face.AppendVertex(scene.Vertex{Position: corners[index]})
		}
		mesh.AppendFace(face)
	}
	return mesh
}

func compileTestScene(t *testing.T) *scene.OptimizedScene {
	world := scene.NewCornellBox(cubeMesh())
	if err := world.Add(scene.NewSphere(types.XYZ(-1.2, -1.8, 0.5), 0.7, scene.NewMaterial(types.White(), 0, 1, 0))); err != nil {
		t.Fatal(err)
	}

	sc, err := compiler.Compile(world, compiler.BuildOptions{LeafThreshold: 2})
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

func bindTestKernel(t *testing.T, sc *scene.OptimizedScene, frameW, frameH uint32) (*Kernel, *bufferSet, func()) {
	dev := device.New("test", 3)
	bs := newBufferSet(dev)
	release := func() {
		bs.Release()
		dev.Close()
	}

	if err := bs.Resize(frameW, frameH); err != nil {
		release()
		t.Fatal(err)
	}
	if err := bs.UploadSceneData(sc, frameW, frameH); err != nil {
		release()
		t.Fatal(err)
	}

	k := NewKernel(dev)
	if err := k.SetArgs(bs.Args()...); err != nil {
		release()
		t.Fatal(err)
	}
	return k, bs, release
}
