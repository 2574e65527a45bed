package renderer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/BouncingElf10/raytracer/types"
)

// Accumulator keeps a running per-pixel radiance sum across frames and the
// gamma corrected 8-bit image of the current average.
type Accumulator struct {
	width, height uint32

	// Scale applied to the average before gamma correction. A zero value is
	// treated as 1.
	Exposure float32

	sum     []types.Color
	samples uint32
	img     *image.RGBA
}

// Create an accumulator for a frame of the given dimensions.
func NewAccumulator(width, height uint32) *Accumulator {
	acc := &Accumulator{}
	acc.Resize(width, height)
	return acc
}

// Add one sample per pixel and refresh the display image.
func (a *Accumulator) Accumulate(frame []types.Color) error {
	if len(frame) != len(a.sum) {
		return fmt.Errorf("renderer: accumulator expected %d samples; got %d", len(a.sum), len(frame))
	}

	exposure := a.Exposure
	if exposure == 0 {
		exposure = 1
	}

	scale := exposure / float32(a.samples+1)
	for index, c := range frame {
		a.sum[index] = a.sum[index].Add(c)
		r, g, b := a.sum[index].Scale(scale).Gamma().RGBA8()
		a.img.Pix[index*4+0] = r
		a.img.Pix[index*4+1] = g
		a.img.Pix[index*4+2] = b
		a.img.Pix[index*4+3] = 255
	}
	a.samples++

	return nil
}

// Get the average radiance for pixel (x, y).
func (a *Accumulator) Average(x, y uint32) types.Color {
	if a.samples == 0 {
		return types.Black()
	}
	return a.sum[y*a.width+x].Scale(1 / float32(a.samples))
}

// Get the number of accumulated samples.
func (a *Accumulator) Samples() uint32 {
	return a.samples
}

// Get the display image. The returned image is updated in place by
// subsequent calls to Accumulate.
func (a *Accumulator) Image() *image.RGBA {
	return a.img
}

// Clear all accumulated samples.
func (a *Accumulator) Reset() {
	for index := range a.sum {
		a.sum[index] = types.Black()
	}
	for index := 0; index < len(a.img.Pix); index += 4 {
		a.img.Pix[index+0] = 0
		a.img.Pix[index+1] = 0
		a.img.Pix[index+2] = 0
		a.img.Pix[index+3] = 255
	}
	a.samples = 0
}

// Allocate zero-filled buffers for a new frame size.
func (a *Accumulator) Resize(width, height uint32) {
	a.width, a.height = width, height
	a.sum = make([]types.Color, width*height)
	a.img = image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	a.samples = 0
	a.Reset()
}

// Get the display color for pixel (x, y).
func (a *Accumulator) At(x, y uint32) color.RGBA {
	return a.img.RGBAAt(int(x), int(y))
}
