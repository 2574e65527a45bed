package types

import "github.com/chewxy/math32"

// A linear RGB color.
type Color struct {
	R, G, B float32
}

func Black() Color {
	return Color{}
}

func White() Color {
	return Color{1, 1, 1}
}

// Add a color.
func (c Color) Add(c2 Color) Color {
	return Color{c.R + c2.R, c.G + c2.G, c.B + c2.B}
}

// Modulate by another color.
func (c Color) Mul(c2 Color) Color {
	return Color{c.R * c2.R, c.G * c2.G, c.B * c2.B}
}

// Scale all channels.
func (c Color) Scale(s float32) Color {
	return Color{c.R * s, c.G * s, c.B * s}
}

// Apply a gamma 2 curve (sqrt per channel). Negative channels clamp to 0.
func (c Color) Gamma() Color {
	return Color{
		math32.Sqrt(math32.Max(c.R, 0)),
		math32.Sqrt(math32.Max(c.G, 0)),
		math32.Sqrt(math32.Max(c.B, 0)),
	}
}

// Quantize to 8 bits per channel.
func (c Color) RGBA8() (r, g, b uint8) {
	return quantize(c.R), quantize(c.G), quantize(c.B)
}

// Check if all channels are exactly zero.
func (c Color) IsBlack() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

func quantize(v float32) uint8 {
	if v <= 0 || v != v {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}
