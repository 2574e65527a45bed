// Package cpu implements a single-threaded reference tracer that intersects
// rays against the scene with a linear scan.
package cpu

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/BouncingElf10/raytracer/log"
	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/tracer"
	"github.com/BouncingElf10/raytracer/tracer/integrator"
	"github.com/BouncingElf10/raytracer/types"
)

type cpuTracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The tracer id.
	id string

	// Pending updates; latest updates overwrite previous ones.
	updateMu     sync.Mutex
	updateBuffer map[tracer.UpdateType]interface{}

	blockReqChan chan tracer.BlockRequest
	closeChan    chan struct{}

	stats *tracer.Stats

	// The scene objects reconstructed from the uploaded compiled scene.
	world *scene.Scene

	frameW, frameH uint32
	rng            *rand.Rand
}

// Create a new cpu tracer.
func NewTracer(id string) tracer.Tracer {
	return &cpuTracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		updateBuffer: make(map[tracer.UpdateType]interface{}),
		blockReqChan: make(chan tracer.BlockRequest, 1),
		stats:        &tracer.Stats{},
		rng:          rand.New(rand.NewSource(1)),
	}
}

func (tr *cpuTracer) Id() string {
	return tr.id
}

// The cpu tracer processes one pixel at a time.
func (tr *cpuTracer) Speed() uint32 {
	return 1
}

func (tr *cpuTracer) Init(frameW, frameH uint32) error {
	tr.Lock()
	defer tr.Unlock()

	if frameW == 0 || frameH == 0 {
		return fmt.Errorf("cpu tracer (%s): invalid frame dimensions %dx%d", tr.id, frameW, frameH)
	}

	tr.frameW, tr.frameH = frameW, frameH
	tr.startWorker()
	return nil
}

func (tr *cpuTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	if tr.closeChan != nil {
		tr.closeChan <- struct{}{}
		<-tr.closeChan
		tr.wg.Wait()
		close(tr.closeChan)
		tr.closeChan = nil
	}
	tr.world = nil
}

func (tr *cpuTracer) Enqueue(blockReq tracer.BlockRequest) {
	select {
	case tr.blockReqChan <- blockReq:
	default:
		tr.logger.Error("request processor did not receive block request")
		blockReq.ErrChan <- fmt.Errorf("cpu tracer (%s): block request dropped", tr.id)
	}
}

func (tr *cpuTracer) Update(updateType tracer.UpdateType, data interface{}) {
	tr.updateMu.Lock()
	tr.updateBuffer[updateType] = data
	tr.updateMu.Unlock()
}

func (tr *cpuTracer) Stats() *tracer.Stats {
	return tr.stats
}

func (tr *cpuTracer) commitUpdates() error {
	tr.updateMu.Lock()
	pending := tr.updateBuffer
	tr.updateBuffer = make(map[tracer.UpdateType]interface{})
	tr.updateMu.Unlock()

	for updateType, data := range pending {
		switch updateType {
		case tracer.UpdateScene:
			sc, ok := data.(*scene.OptimizedScene)
			if !ok || sc == nil {
				return tracer.ErrBadUpdate
			}
			tr.world = sc.World()
		case tracer.UpdateCamera:
			state, ok := data.(scene.CameraState)
			if !ok {
				return tracer.ErrBadUpdate
			}
			if tr.world != nil {
				tr.world.Camera.SetState(state)
			}
		case tracer.UpdateFrameDims:
			dims, ok := data.([2]uint32)
			if !ok {
				return tracer.ErrBadUpdate
			}
			tr.frameW, tr.frameH = dims[0], dims[1]
		default:
			return tracer.ErrBadUpdate
		}
	}
	return nil
}

func (tr *cpuTracer) startWorker() {
	if tr.closeChan != nil {
		return
	}

	tr.closeChan = make(chan struct{})
	readyChan := make(chan struct{})
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		close(readyChan)
		for {
			select {
			case blockReq := <-tr.blockReqChan:
				startTime := time.Now()

				tr.updateMu.Lock()
				hasUpdates := len(tr.updateBuffer) != 0
				tr.updateMu.Unlock()
				if hasUpdates {
					if err := tr.commitUpdates(); err != nil {
						blockReq.ErrChan <- err
						continue
					}
					tr.stats.UpdateTime = time.Since(startTime)
				}

				if err := tr.renderBlock(&blockReq); err != nil {
					blockReq.ErrChan <- err
					continue
				}

				tr.stats.BlockH = blockReq.BlockH
				tr.stats.RenderTime = time.Since(startTime)
				blockReq.DoneChan <- blockReq.BlockH
			case <-tr.closeChan:
				tr.closeChan <- struct{}{}
				return
			}
		}
	}()

	<-readyChan
}

// Trace one path per pixel of the block. The generator is reseeded for each
// block so the output only depends on the request.
func (tr *cpuTracer) renderBlock(blockReq *tracer.BlockRequest) error {
	if tr.world == nil {
		return tracer.ErrNoSceneData
	}
	if err := blockReq.Validate(); err != nil {
		return err
	}

	tr.rng.Seed(blockSeed(blockReq.Seed, blockReq.Sample, blockReq.BlockY))

	first := blockReq.BlockY * blockReq.FrameW
	last := first + blockReq.BlockH*blockReq.FrameW
	for pixel := first; pixel < last; pixel++ {
		blockReq.Out[pixel] = integrator.Trace(blockReq.Rays[pixel], types.White(), tr.world, 0, tr.rng)
	}
	return nil
}

// Derive the generator seed for a block. For a fixed block row every
// (seed, sample) pair maps to a distinct value.
func blockSeed(seed, sample, blockY uint32) int64 {
	x := uint64(seed)<<32 | uint64(sample)
	return int64(mix64(x ^ mix64(uint64(blockY)+1)))
}

// The splitmix64 finalizer; a bijection on uint64.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
