package compute

import (
	"fmt"
	"sync"
	"time"

	"github.com/BouncingElf10/raytracer/log"
	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/tracer"
	"github.com/BouncingElf10/raytracer/tracer/compute/device"
)

type computeTracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The device associated with this tracer instance.
	device *device.Device

	// The path tracing kernel and its buffers.
	kernel  *Kernel
	buffers *bufferSet

	// The tracer id.
	id string

	// A buffer for queuing updates. Updates are grouped by type and
	// latest updates always overwrite the previous ones.
	updateMu     sync.Mutex
	updateBuffer map[tracer.UpdateType]interface{}

	// A channel for receiving block requests from the renderer.
	blockReqChan chan tracer.BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered block.
	stats *tracer.Stats

	// Device speed estimate.
	speed uint32

	// The uploaded scene data.
	sceneData *scene.OptimizedScene

	// Current frame dimensions.
	frameW, frameH uint32

	// Host-side staging buffers.
	rayData    []byte
	outputData []byte
}

// Create a new compute tracer that runs on the given device. The tracer
// takes ownership of the device and closes it when the tracer is closed.
func NewTracer(id string, dev *device.Device) tracer.Tracer {
	loggerName := fmt.Sprintf("compute tracer (%s)", dev.Name)

	return &computeTracer{
		logger:       log.New(loggerName),
		device:       dev,
		id:           id,
		blockReqChan: make(chan tracer.BlockRequest, 1),
		updateBuffer: make(map[tracer.UpdateType]interface{}),
		stats:        &tracer.Stats{},
		speed:        dev.Speed,
	}
}

// Get tracer id.
func (tr *computeTracer) Id() string {
	return tr.id
}

// Get the computation speed estimate (number of device workers).
func (tr *computeTracer) Speed() uint32 {
	return tr.speed
}

// Initialize tracer
func (tr *computeTracer) Init(frameW, frameH uint32) error {
	tr.Lock()
	defer tr.Unlock()

	if tr.device == nil {
		return tracer.ErrNotReady
	}

	tr.kernel = NewKernel(tr.device)
	tr.buffers = newBufferSet(tr.device)
	err := tr.resize(frameW, frameH)
	if err != nil {
		tr.cleanup()
		return err
	}

	// Start worker
	if tr.closeChan == nil {
		tr.startWorker()
	}

	tr.logger.Debugf("initialized with %d workers for %dx%d frames", tr.device.Workers, frameW, frameH)
	return nil
}

// Shutdown and cleanup tracer.
func (tr *computeTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	tr.cleanup()
}

// Cleanup tracer. This method is meant to be called while holding tr.Lock()
func (tr *computeTracer) cleanup() {
	// If the worker is running shut it down
	if tr.closeChan != nil {
		tr.closeChan <- struct{}{}

		// wait for worker to ack close and shutdown channel
		<-tr.closeChan
		tr.wg.Wait()
		close(tr.closeChan)
		tr.closeChan = nil
	}

	// Cleanup allocated resources
	if tr.buffers != nil {
		tr.buffers.Release()
		tr.buffers = nil
	}
	tr.kernel = nil

	// Shutdown device
	if tr.device != nil {
		tr.device.Close()
		tr.device = nil
	}

	tr.sceneData = nil
}

// Enqueue block request.
func (tr *computeTracer) Enqueue(blockReq tracer.BlockRequest) {
	select {
	case tr.blockReqChan <- blockReq:
	default:
		// drop the request if worker is busy
		tr.logger.Error("request processor did not receive block request")
		blockReq.ErrChan <- fmt.Errorf("compute tracer (%s): block request dropped", tr.id)
	}
}

// Append a change to the tracer's update buffer.
func (tr *computeTracer) Update(updateType tracer.UpdateType, data interface{}) {
	tr.updateMu.Lock()
	tr.updateBuffer[updateType] = data
	tr.updateMu.Unlock()
}

// Retrieve last frame statistics.
func (tr *computeTracer) Stats() *tracer.Stats {
	return tr.stats
}

// Upload scene data.
func (tr *computeTracer) uploadSceneData(sc *scene.OptimizedScene) error {
	start := time.Now()
	err := tr.buffers.UploadSceneData(sc, tr.frameW, tr.frameH)
	if err != nil {
		return err
	}

	err = tr.kernel.SetArgs(tr.buffers.Args()...)
	if err != nil {
		return err
	}

	tr.sceneData = sc
	tr.logger.Debugf("uploaded %d triangles, %d spheres, %d planes and %d bvh nodes in %d ms",
		len(sc.Triangles), len(sc.Spheres), len(sc.Planes), len(sc.BvhNodes), time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Reallocate frame buffers and refresh the frame dimensions stored in the
// counts block.
func (tr *computeTracer) resize(frameW, frameH uint32) error {
	err := tr.buffers.Resize(frameW, frameH)
	if err != nil {
		return err
	}

	tr.frameW, tr.frameH = frameW, frameH
	if tr.sceneData != nil {
		return tr.uploadSceneData(tr.sceneData)
	}
	return nil
}

// Commit queued changes.
func (tr *computeTracer) commitUpdates() error {
	tr.updateMu.Lock()
	pending := tr.updateBuffer
	tr.updateBuffer = make(map[tracer.UpdateType]interface{})
	tr.updateMu.Unlock()

	// Frame dimensions must be applied before the scene so that the
	// counts block is written once.
	if data, ok := pending[tracer.UpdateFrameDims]; ok {
		dims, ok := data.([2]uint32)
		if !ok {
			return tracer.ErrBadUpdate
		}
		if err := tr.resize(dims[0], dims[1]); err != nil {
			return err
		}
	}

	for updateType, data := range pending {
		var err error
		switch updateType {
		case tracer.UpdateFrameDims:
		case tracer.UpdateScene:
			sc, ok := data.(*scene.OptimizedScene)
			if !ok || sc == nil {
				return tracer.ErrBadUpdate
			}
			err = tr.uploadSceneData(sc)
		case tracer.UpdateCamera:
			// Primary rays arrive with each block request.
			if _, ok := data.(scene.CameraState); !ok {
				return tracer.ErrBadUpdate
			}
		default:
			return tracer.ErrBadUpdate
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// Spawn a go-routine to process block render requests.
func (tr *computeTracer) startWorker() {
	// Worker already running
	if tr.closeChan != nil {
		return
	}

	tr.closeChan = make(chan struct{})
	readyChan := make(chan struct{})
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		var blockReq tracer.BlockRequest
		var startTime time.Time
		var err error
		close(readyChan)
		for {
			select {
			case blockReq = <-tr.blockReqChan:
				startTime = time.Now()

				// Apply any pending changes
				tr.updateMu.Lock()
				hasUpdates := len(tr.updateBuffer) != 0
				tr.updateMu.Unlock()
				if hasUpdates {
					err = tr.commitUpdates()
					if err != nil {
						blockReq.ErrChan <- err
						continue
					}
					tr.stats.UpdateTime = time.Since(startTime)
				}

				// Render block and reply with our completion status
				err = tr.renderBlock(&blockReq)
				if err != nil {
					blockReq.ErrChan <- err
					continue
				}

				// Update stats
				tr.stats.BlockH = blockReq.BlockH
				tr.stats.RenderTime = time.Since(startTime)

				blockReq.DoneChan <- blockReq.BlockH
			case <-tr.closeChan:
				// Ack close
				tr.closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Render block.
func (tr *computeTracer) renderBlock(blockReq *tracer.BlockRequest) error {
	if tr.sceneData == nil {
		return tracer.ErrNoSceneData
	}

	err := blockReq.Validate()
	if err != nil {
		return err
	}

	if blockReq.FrameW != tr.frameW || blockReq.FrameH != tr.frameH {
		err = tr.resize(blockReq.FrameW, blockReq.FrameH)
		if err != nil {
			return err
		}
	}

	if blockReq.BlockH == 0 {
		return nil
	}

	first := int(blockReq.BlockY * blockReq.FrameW)
	pixels := int(blockReq.BlockH * blockReq.FrameW)

	// Upload block rays
	tr.rayData = tr.rayData[:0]
	for _, ray := range blockReq.Rays[first : first+pixels] {
		tr.rayData = scene.GpuRay{Origin: ray.Origin, Dir: ray.Dir}.AppendBinary(tr.rayData)
	}
	err = tr.buffers.Rays.WriteData(tr.rayData, first*scene.GpuRaySize)
	if err != nil {
		return err
	}

	// Rewrite the sample slot and the dispatch parameters
	err = tr.buffers.Counts.WriteData(scene.EncodeSample(blockReq.Sample), scene.CountsSampleOffset)
	if err != nil {
		return err
	}
	params := DispatchParams{Seed: blockReq.Seed, BlockY: blockReq.BlockY, BlockH: blockReq.BlockH}
	err = tr.buffers.Params.WriteData(params.AppendBinary(nil), 0)
	if err != nil {
		return err
	}

	_, err = tr.kernel.Exec()
	if err != nil {
		return err
	}

	// Read back radiance
	size := pixels * OutputRecordSize
	if cap(tr.outputData) < size {
		tr.outputData = make([]byte, size)
	}
	tr.outputData = tr.outputData[:size]
	err = tr.buffers.Output.ReadData(first*OutputRecordSize, 0, size, tr.outputData)
	if err != nil {
		return err
	}
	decodeOutput(tr.outputData, blockReq.Out[first:first+pixels])

	return nil
}
