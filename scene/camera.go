package scene

import (
	"fmt"

	"github.com/BouncingElf10/raytracer/types"
	"github.com/chewxy/math32"
)

const (
	DefaultFrameW uint32 = 800
	DefaultFrameH uint32 = 600

	// Vertical field of view in degrees.
	DefaultFOV float32 = 90

	// Pitch is clamped to this range (degrees) to avoid flipping over the poles.
	maxPitch float32 = 89
)

type CameraDirection uint8

const (
	Forward CameraDirection = iota
	Backward
	Left
	Right
	Up
	Down
)

// Parse a camera direction name.
func ParseCameraDirection(name string) (CameraDirection, error) {
	switch name {
	case "forward":
		return Forward, nil
	case "backward":
		return Backward, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return Forward, fmt.Errorf("camera: unknown direction %q", name)
}

// The serializable camera state.
type CameraState struct {
	Position types.Vec3
	Forward  types.Vec3
	Yaw      float32
	Pitch    float32
	FOV      float32
}

// A pinhole camera generating one primary ray per pixel.
type Camera struct {
	Width  uint32
	Height uint32

	Position types.Vec3
	Forward  types.Vec3

	// Orientation angles in degrees.
	Yaw   float32
	Pitch float32

	// Vertical field of view in degrees.
	FOV float32
}

// Create a camera at (0, 0, 5) looking down the -Z axis.
func NewCamera(width, height uint32) *Camera {
	return &Camera{
		Width:    width,
		Height:   height,
		Position: types.Vec3{0, 0, 5},
		Forward:  types.Vec3{0, 0, -1},
		Yaw:      -90,
		FOV:      DefaultFOV,
	}
}

// Update frame dimensions.
func (c *Camera) Resize(width, height uint32) {
	c.Width = width
	c.Height = height
}

// Get camera basis vectors.
func (c *Camera) Basis() (forward, right, up types.Vec3) {
	forward = c.Forward.Normalize()
	right = types.Vec3{0, 1, 0}.Cross(forward).Normalize()
	up = forward.Cross(right)
	return forward, right, up
}

// Generate the primary ray through the center of pixel (x, y).
func (c *Camera) Ray(x, y uint32) types.Ray {
	tanHalfFov := math32.Tan(types.Radians(c.FOV) * 0.5)
	aspect := float32(c.Width) / float32(c.Height)

	ndcX := (float32(x) + 0.5) / float32(c.Width)
	ndcY := (float32(y) + 0.5) / float32(c.Height)

	screenX := (2*ndcX - 1) * aspect * tanHalfFov
	screenY := (1 - 2*ndcY) * tanHalfFov

	forward, right, up := c.Basis()
	dir := forward.Add(right.Mul(screenX)).Add(up.Mul(screenY)).Normalize()

	return types.NewRay(c.Position, dir)
}

// Generate primary rays for rows [blockY, blockY+blockH) into out.
func (c *Camera) Rays(blockY, blockH uint32, out []types.Ray) []types.Ray {
	for y := blockY; y < blockY+blockH && y < c.Height; y++ {
		for x := uint32(0); x < c.Width; x++ {
			out = append(out, c.Ray(x, y))
		}
	}
	return out
}

// Move camera along the given direction. Up and down movements use the world
// Y axis.
func (c *Camera) Move(dir CameraDirection, dist float32) {
	forward, right, _ := c.Basis()
	worldUp := types.Vec3{0, 1, 0}

	var delta types.Vec3
	switch dir {
	case Forward:
		delta = forward.Mul(dist)
	case Backward:
		delta = forward.Mul(-dist)
	case Left:
		delta = right.Mul(-dist)
	case Right:
		delta = right.Mul(dist)
	case Up:
		delta = worldUp.Mul(dist)
	case Down:
		delta = worldUp.Mul(-dist)
	}
	c.Position = c.Position.Add(delta)
}

// Rotate camera by the given yaw/pitch deltas (degrees).
func (c *Camera) Rotate(yawDelta, pitchDelta float32) {
	c.Yaw += yawDelta
	c.Pitch += pitchDelta
	if c.Pitch > maxPitch {
		c.Pitch = maxPitch
	} else if c.Pitch < -maxPitch {
		c.Pitch = -maxPitch
	}

	yaw := types.Radians(c.Yaw)
	pitch := types.Radians(c.Pitch)
	c.Forward = types.Vec3{
		math32.Cos(yaw) * math32.Cos(pitch),
		math32.Sin(pitch),
		math32.Sin(yaw) * math32.Cos(pitch),
	}.Normalize()
}

// Get camera state.
func (c *Camera) State() CameraState {
	return CameraState{
		Position: c.Position,
		Forward:  c.Forward,
		Yaw:      c.Yaw,
		Pitch:    c.Pitch,
		FOV:      c.FOV,
	}
}

// Restore camera state.
func (c *Camera) SetState(state CameraState) {
	c.Position = state.Position
	c.Forward = state.Forward
	c.Yaw = state.Yaw
	c.Pitch = state.Pitch
	c.FOV = state.FOV
	if c.FOV == 0 {
		c.FOV = DefaultFOV
	}
}
