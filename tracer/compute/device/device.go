package device

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/cpu"
)

// Work items are grouped into square workgroups of this size. A workgroup is
// the unit of work handed to a worker goroutine.
const WorkgroupSize = 8

var ErrDeviceClosed = errors.New("device: device is closed")

// A Device executes data-parallel kernels on a pool of worker goroutines.
// Kernels exchange data with the host through named byte buffers that use
// the same layout as GPU storage buffers.
type Device struct {
	Name string

	// Number of worker goroutines.
	Workers int

	// Speed estimate relative to a single worker.
	Speed uint32

	// Dispatch holds a read lock; Close waits for in-flight dispatches.
	mu        sync.RWMutex
	workQueue chan func()
	wg        sync.WaitGroup
	closed    bool
}

// Create a device with the given number of workers. A non-positive worker
// count selects one worker per logical CPU.
func New(name string, workers int) *Device {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	d := &Device{
		Name:      name,
		Workers:   workers,
		Speed:     uint32(workers),
		workQueue: make(chan func(), workers*2),
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer d.wg.Done()
			for work := range d.workQueue {
				work()
			}
		}()
	}

	return d
}

// Create a device for the host CPU. If workers is non-positive the worker
// count is set to the number of logical cores reported by the OS.
func Probe(workers int) *Device {
	if workers <= 0 {
		if count, err := cpu.Counts(true); err == nil && count > 0 {
			workers = count
		}
	}

	name := "cpu"
	if info, err := cpu.Info(); err == nil && len(info) > 0 && info[0].ModelName != "" {
		name = info[0].ModelName
	}

	return New(name, workers)
}

// Implements Stringer.
func (d *Device) String() string {
	return fmt.Sprintf("%s (%d workers)", d.Name, d.Workers)
}

// Create an empty buffer.
func (d *Device) Buffer(name string) *Buffer {
	return &Buffer{
		device: d,
		name:   name,
	}
}

// Run fn once for every work item in the width x height grid whose first row
// is originY. The grid is split into WorkgroupSize x WorkgroupSize workgroups
// that are processed concurrently. Dispatch blocks until all work items have
// completed.
func (d *Device) Dispatch(originY, width, height uint32, fn func(x, y uint32)) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDeviceClosed
	}

	var pending sync.WaitGroup
	for gy := uint32(0); gy < height; gy += WorkgroupSize {
		for gx := uint32(0); gx < width; gx += WorkgroupSize {
			x0, y0 := gx, gy
			pending.Add(1)
			d.workQueue <- func() {
				defer pending.Done()
				for y := y0; y < y0+WorkgroupSize && y < height; y++ {
					for x := x0; x < x0+WorkgroupSize && x < width; x++ {
						fn(x, originY+y)
					}
				}
			}
		}
	}
	pending.Wait()

	return nil
}

// Shut down the device. Close blocks until any in-flight dispatch completes.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	close(d.workQueue)
	d.wg.Wait()
}
