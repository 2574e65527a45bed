package renderer

import (
	"image"

	"github.com/BouncingElf10/raytracer/scene"
)

type Renderer interface {
	// Render the given number of progressive frames and return the
	// accumulated image. If samples is 0 the configured samples per pixel
	// are used.
	Render(samples uint32) (*image.RGBA, error)

	// Modify the camera. Accumulated samples are discarded before the next
	// frame is rendered.
	UpdateCamera(fn func(cam *scene.Camera))

	// Change the frame dimensions. Accumulated samples are discarded before
	// the next frame is rendered.
	Resize(frameW, frameH uint32) error

	// Abort rendering after the in-flight frame completes.
	Interrupt()

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}
