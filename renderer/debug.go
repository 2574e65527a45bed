package renderer

import (
	"image"
	"image/color"

	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/types"
)

// Render the bounding box of every world object. Each pixel takes the color
// of the last object whose box is hit by the pixel's primary ray; pixels that
// miss every box stay black.
func RenderDebugAABB(world *scene.Scene, camera *scene.Camera) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, int(camera.Width), int(camera.Height)))

	boxes := make([]types.AABB, len(world.Objects))
	for index, obj := range world.Objects {
		boxes[index] = obj.BBox()
	}

	for y := uint32(0); y < camera.Height; y++ {
		for x := uint32(0); x < camera.Width; x++ {
			ray := camera.Ray(x, y)
			pixel := color.RGBA{A: 255}
			for index, box := range boxes {
				if box.Hit(ray) {
					pixel = DebugColor(uint32(index))
				}
			}
			img.SetRGBA(int(x), int(y), pixel)
		}
	}

	return img
}

// Get a stable color for the object with the given index.
func DebugColor(index uint32) color.RGBA {
	h := index*2654435761 + 0x9e3779b9
	h ^= h >> 15
	h *= 0x85ebca6b
	h ^= h >> 13

	// Keep every channel away from black so boxes stand out.
	return color.RGBA{
		R: 64 + uint8(h)%192,
		G: 64 + uint8(h>>8)%192,
		B: 64 + uint8(h>>16)%192,
		A: 255,
	}
}
