package renderer

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/BouncingElf10/raytracer/log"
	"github.com/BouncingElf10/raytracer/profiler"
	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/tracer"
	"github.com/BouncingElf10/raytracer/tracer/compute"
	"github.com/BouncingElf10/raytracer/tracer/compute/device"
	"github.com/BouncingElf10/raytracer/tracer/cpu"
	"github.com/BouncingElf10/raytracer/types"
)

// Profiler tags for the frame stages.
const (
	ProfileGenerateRays = "generate rays"
	ProfileRenderFrame  = "render frame"
	ProfileAccumulate   = "accumulate"
)

// The default renderer splits each frame into blocks, renders them in
// parallel on the attached tracers and accumulates the results.
type defaultRenderer struct {
	logger log.Logger

	sync.Mutex

	// Scene and camera.
	sc           *scene.OptimizedScene
	camera       *scene.Camera
	cameraDirty  bool
	raysUpToDate bool

	// Frame dimensions requested by Resize; applied before the next frame.
	pendingDims *[2]uint32

	// Tracer pool and block scheduler.
	tracers          []tracer.Tracer
	scheduler        tracer.BlockScheduler
	blockAssignments []uint32

	// Render options
	options  Options
	profiler profiler.Observer

	// Frame buffers
	rays        []types.Ray
	frame       []types.Color
	accumulator *Accumulator

	// Channels for receiving block completions
	doneChan chan uint32
	errChan  chan error

	interruptOnce sync.Once
	interruptChan chan struct{}

	stats FrameStats
}

// Create a new default renderer using the specified block scheduler. The
// tracers are selected by opts.Device.
func NewDefault(sc *scene.OptimizedScene, scheduler tracer.BlockScheduler, opts Options) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return nil, fmt.Errorf("renderer: invalid frame dimensions %dx%d", opts.FrameW, opts.FrameH)
	}
	if opts.Profiler == nil {
		opts.Profiler = profiler.Nop
	}
	if opts.Device == "" {
		opts.Device = DeviceCompute
	}

	if opts.ValidateKernel {
		spirv, err := compute.CompileKernel()
		if err != nil {
			return nil, err
		}
		log.New("renderer").Infof("validated kernel (%d SPIR-V words)", len(spirv))
	}

	tracers, err := createTracers(opts)
	if err != nil {
		return nil, err
	}

	r, err := newRenderer(sc, scheduler, tracers, opts)
	if err != nil {
		for _, tr := range tracers {
			tr.Close()
		}
		return nil, err
	}
	return r, nil
}

func createTracers(opts Options) ([]tracer.Tracer, error) {
	switch opts.Device {
	case DeviceCPU:
		return []tracer.Tracer{cpu.NewTracer("cpu-0")}, nil
	case DeviceCompute:
		return []tracer.Tracer{compute.NewTracer("compute-0", device.Probe(opts.Workers))}, nil
	case DeviceHybrid:
		return []tracer.Tracer{
			compute.NewTracer("compute-0", device.Probe(opts.Workers)),
			cpu.NewTracer("cpu-0"),
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, opts.Device)
}

// Create a renderer that uses the given tracers. Tracers that fail to
// initialize are closed and skipped; the renderer takes ownership of the rest.
func newRenderer(sc *scene.OptimizedScene, scheduler tracer.BlockScheduler, tracers []tracer.Tracer, opts Options) (*defaultRenderer, error) {
	if opts.Profiler == nil {
		opts.Profiler = profiler.Nop
	}

	camera := scene.NewCamera(opts.FrameW, opts.FrameH)
	camera.SetState(sc.Camera)

	r := &defaultRenderer{
		logger:        log.New("renderer"),
		sc:            sc,
		camera:        camera,
		scheduler:     scheduler,
		options:       opts,
		profiler:      opts.Profiler,
		frame:         make([]types.Color, opts.FrameW*opts.FrameH),
		accumulator:   NewAccumulator(opts.FrameW, opts.FrameH),
		interruptChan: make(chan struct{}),
	}
	r.accumulator.Exposure = opts.Exposure

	start := time.Now()
	for _, tr := range tracers {
		err := tr.Init(opts.FrameW, opts.FrameH)
		if err != nil {
			r.logger.Warningf("skipping tracer %s due to init error: %s", tr.Id(), err.Error())
			tr.Close()
			continue
		}
		tr.Update(tracer.UpdateScene, sc)
		r.tracers = append(r.tracers, tr)
		r.logger.Infof(`attached tracer "%s"`, tr.Id())
	}
	if len(r.tracers) == 0 {
		return nil, ErrNoTracers
	}
	r.logger.Noticef("setup %d tracers in %d ms", len(r.tracers), time.Since(start).Nanoseconds()/1e6)

	r.doneChan = make(chan uint32, len(r.tracers))
	r.errChan = make(chan error, len(r.tracers))
	r.stats.Tracers = make([]TracerStat, len(r.tracers))

	return r, nil
}

// Render the given number of progressive frames.
func (r *defaultRenderer) Render(samples uint32) (*image.RGBA, error) {
	if samples == 0 {
		samples = r.options.SamplesPerPixel
	}

	for frame := uint32(0); samples == 0 || frame < samples; frame++ {
		select {
		case <-r.interruptChan:
			return r.accumulator.Image(), ErrInterrupted
		default:
		}

		err := r.renderFrame()
		if err != nil {
			return nil, err
		}

		if r.options.OnFrame != nil {
			r.options.OnFrame(r.accumulator.Image(), r.accumulator.Samples())
		}
	}

	return r.accumulator.Image(), nil
}

// Modify the camera. Accumulation is reset only if the camera state changed.
func (r *defaultRenderer) UpdateCamera(fn func(cam *scene.Camera)) {
	r.Lock()
	defer r.Unlock()

	before := r.camera.State()
	fn(r.camera)
	if r.camera.State() != before {
		r.cameraDirty = true
	}
}

// Change the frame dimensions. The new size takes effect at the start of the
// next frame and discards all accumulated samples.
func (r *defaultRenderer) Resize(frameW, frameH uint32) error {
	if frameW == 0 || frameH == 0 {
		return fmt.Errorf("renderer: invalid frame dimensions %dx%d", frameW, frameH)
	}

	r.Lock()
	defer r.Unlock()

	r.pendingDims = &[2]uint32{frameW, frameH}
	return nil
}

// Abort rendering.
func (r *defaultRenderer) Interrupt() {
	r.interruptOnce.Do(func() {
		close(r.interruptChan)
	})
}

// Shutdown renderer and any attached tracer.
func (r *defaultRenderer) Close() {
	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Get last frame statistics.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}

// Regenerate primary rays if the camera changed since the last frame.
func (r *defaultRenderer) syncCamera() {
	r.Lock()
	defer r.Unlock()

	if r.pendingDims != nil {
		r.applyResize(*r.pendingDims)
		r.pendingDims = nil
	}

	if r.raysUpToDate && !r.cameraDirty {
		return
	}

	r.profiler.Start(ProfileGenerateRays)
	r.rays = r.camera.Rays(0, r.options.FrameH, r.rays[:0])
	r.profiler.Stop(ProfileGenerateRays)

	if r.cameraDirty {
		state := r.camera.State()
		for _, tr := range r.tracers {
			tr.Update(tracer.UpdateCamera, state)
		}
		r.accumulator.Reset()
		r.logger.Debug("camera moved; resetting accumulated samples")
	}

	r.raysUpToDate = true
	r.cameraDirty = false
}

// Reallocate frame buffers for new frame dimensions. Must be called while
// holding r.Lock().
func (r *defaultRenderer) applyResize(dims [2]uint32) {
	if dims[0] == r.options.FrameW && dims[1] == r.options.FrameH {
		return
	}

	r.options.FrameW, r.options.FrameH = dims[0], dims[1]
	r.camera.Resize(dims[0], dims[1])
	r.frame = make([]types.Color, dims[0]*dims[1])
	r.rays = nil
	r.raysUpToDate = false
	r.accumulator.Resize(dims[0], dims[1])

	for _, tr := range r.tracers {
		tr.Update(tracer.UpdateFrameDims, dims)
	}
	r.logger.Noticef("resized frame to %dx%d", dims[0], dims[1])
}

// Render one frame and add it to the accumulator.
func (r *defaultRenderer) renderFrame() error {
	if len(r.tracers) == 0 {
		return ErrNoTracers
	}

	r.syncCamera()

	r.profiler.Start(ProfileRenderFrame)
	start := time.Now()
	sample := r.accumulator.Samples()

	r.blockAssignments = r.scheduler.Schedule(r.tracers, r.options.FrameH)
	var blockY uint32
	pending := 0
	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		if blockH == 0 {
			continue
		}

		tr.Enqueue(tracer.BlockRequest{
			FrameW:   r.options.FrameW,
			FrameH:   r.options.FrameH,
			BlockY:   blockY,
			BlockH:   blockH,
			Sample:   sample,
			Seed:     r.options.Seed,
			Rays:     r.rays,
			Out:      r.frame,
			DoneChan: r.doneChan,
			ErrChan:  r.errChan,
		})
		blockY += blockH
		pending++
	}

	// Wait for all tracers to finish so that no tracer writes to the frame
	// buffer after we return.
	var err error
	for ; pending > 0; pending-- {
		select {
		case <-r.doneChan:
		case blockErr := <-r.errChan:
			if err == nil {
				err = blockErr
			}
		}
	}
	r.profiler.Stop(ProfileRenderFrame)
	if err != nil {
		return err
	}

	r.profiler.Start(ProfileAccumulate)
	err = r.accumulator.Accumulate(r.frame)
	r.profiler.Stop(ProfileAccumulate)
	if err != nil {
		return err
	}

	r.updateStats(time.Since(start))
	return nil
}

func (r *defaultRenderer) updateStats(renderTime time.Duration) {
	r.stats.RenderTime = renderTime
	r.stats.Samples = r.accumulator.Samples()
	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		stat := TracerStat{
			Id:           tr.Id(),
			BlockH:       blockH,
			FramePercent: 100.0 * float32(blockH) / float32(r.options.FrameH),
		}
		if blockH != 0 {
			stat.RenderTime = tr.Stats().RenderTime
		}
		r.stats.Tracers[idx] = stat
	}
}
