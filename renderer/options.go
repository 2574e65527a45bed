package renderer

import (
	"image"

	"github.com/BouncingElf10/raytracer/profiler"
)

// Supported values for Options.Device.
const (
	DeviceCPU     = "cpu"
	DeviceCompute = "compute"
	DeviceHybrid  = "hybrid"
)

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Number of samples. A zero value renders until interrupted when
	// passed to Render.
	SamplesPerPixel uint32

	// Seed for the per-pixel random number generators.
	Seed uint32

	// Exposure for tonemapping.
	Exposure float32

	// Device selection: cpu, compute or hybrid (both).
	Device string

	// Number of compute device workers; 0 selects one per logical core.
	Workers int

	// Compile the WGSL kernel before rendering to catch shader errors.
	ValidateKernel bool

	// Receives frame stage timings. Defaults to profiler.Nop.
	Profiler profiler.Observer

	// Invoked after each frame is accumulated. The image is reused by the
	// next frame.
	OnFrame func(img *image.RGBA, samples uint32)
}
