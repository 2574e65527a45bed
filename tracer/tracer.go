package tracer

import (
	"errors"
	"time"

	"github.com/BouncingElf10/raytracer/types"
)

var (
	ErrNoSceneData = errors.New("tracer: no scene data uploaded")
	ErrNotReady    = errors.New("tracer: not initialized")
	ErrBadBlock    = errors.New("tracer: block request does not fit the frame")
	ErrBadUpdate   = errors.New("tracer: unsupported update type")
)

type UpdateType uint8

const (
	// Data is a *scene.OptimizedScene.
	UpdateScene UpdateType = iota

	// Data is a scene.CameraState.
	UpdateCamera

	// Data is a [2]uint32 with the new frame width and height.
	UpdateFrameDims
)

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// Frame dimensions.
	FrameW uint32
	FrameH uint32

	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// The index of the accumulated sample this block contributes to.
	Sample uint32

	// A random seed value for the tracer's random number generator.
	Seed uint32

	// Primary rays for the entire frame in row-major order.
	Rays []types.Ray

	// The frame-sized output buffer. Tracers only write the rows that
	// belong to their block.
	Out []types.Color

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Check that the request buffers cover the block.
func (r *BlockRequest) Validate() error {
	frameLen := int(r.FrameW) * int(r.FrameH)
	if r.BlockY+r.BlockH > r.FrameH || len(r.Rays) < frameLen || len(r.Out) < frameLen {
		return ErrBadBlock
	}
	return nil
}

// Tracer statistics.
type Stats struct {
	// The rendered block height
	BlockH uint32

	// The time for rendering the last block.
	RenderTime time.Duration

	// The time spent applying pending updates before the last block.
	UpdateTime time.Duration
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Get the tracer's computation speed estimate relative to the other
	// tracers.
	Speed() uint32

	// Initialize the tracer. On failure any partially allocated resources
	// are released.
	Init(frameW, frameH uint32) error

	// Shutdown and cleanup tracer.
	Close()

	// Enqueue block request.
	Enqueue(BlockRequest)

	// Append a change to the tracer's update buffer. Changes are applied
	// before the next block is processed.
	Update(UpdateType, interface{})

	// Retrieve last frame statistics.
	Stats() *Stats
}
