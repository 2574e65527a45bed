// Package profiler records named timings for the stages of a frame.
package profiler

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
)

// The Observer interface is implemented by anything that can time tagged
// sections of code.
type Observer interface {
	Start(tag string)
	Stop(tag string)
}

type nopObserver struct{}

func (nopObserver) Start(string) {}
func (nopObserver) Stop(string)  {}

// An Observer that discards all timings.
var Nop Observer = nopObserver{}

// Profiler keeps the last measured duration for every tag. Tags are reported
// in the order they were first started.
type Profiler struct {
	mu      sync.Mutex
	started map[string]time.Time
	times   map[string]time.Duration
	order   []string
}

// Create a new profiler.
func New() *Profiler {
	return &Profiler{
		started: make(map[string]time.Time),
		times:   make(map[string]time.Duration),
	}
}

// Start timing tag. Restarting a running tag resets its start time.
func (p *Profiler) Start(tag string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, seen := p.started[tag]; !seen {
		if _, timed := p.times[tag]; !timed {
			p.order = append(p.order, tag)
		}
	}
	p.started[tag] = time.Now()
}

// Stop timing tag and record the elapsed time. Stopping a tag that was never
// started is a no-op.
func (p *Profiler) Stop(tag string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start, ok := p.started[tag]
	if !ok {
		return
	}
	p.times[tag] = time.Since(start)
	delete(p.started, tag)
}

// Get the last recorded duration for tag or 0 if tag has never been stopped.
func (p *Profiler) Elapsed(tag string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.times[tag]
}

// Get the tags with a recorded duration in the order they were first
// started.
func (p *Profiler) Tags() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	tags := make([]string, 0, len(p.order))
	for _, tag := range p.order {
		if _, ok := p.times[tag]; ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Render the recorded timings as a table.
func (p *Profiler) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Stage", "Time"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, tag := range p.Tags() {
		table.Append([]string{tag, fmt.Sprintf("%d ms", p.Elapsed(tag).Nanoseconds()/1e6)})
	}

	table.Render()
	return buf.String()
}
