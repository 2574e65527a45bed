package cmd

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/BouncingElf10/raytracer/profiler"
	"github.com/BouncingElf10/raytracer/renderer"
	"github.com/BouncingElf10/raytracer/tracer"
	"github.com/urfave/cli"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Map render flags to renderer options.
func renderOptions(ctx *cli.Context) renderer.Options {
	return renderer.Options{
		FrameW:          uint32(ctx.Int("width")),
		FrameH:          uint32(ctx.Int("height")),
		SamplesPerPixel: uint32(ctx.Int("spp")),
		Seed:            uint32(ctx.Int("seed")),
		Exposure:        float32(ctx.Float64("exposure")),
		Device:          ctx.String("device"),
		Workers:         ctx.Int("workers"),
		ValidateKernel:  ctx.Bool("validate-kernel"),
	}
}

// Select a block scheduler for the device mix. Hybrid rendering benefits from
// rebalancing based on measured block times.
func blockScheduler(opts renderer.Options) tracer.BlockScheduler {
	if opts.Device == renderer.DeviceHybrid {
		return tracer.PerfectScheduler()
	}
	return tracer.NaiveScheduler()
}

// Interrupt r when the process receives an interrupt signal. The returned
// function stops listening for signals.
func interruptOnSignal(r renderer.Renderer) func() {
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		select {
		case <-sigChan:
			logger.Notice("interrupt received; stopping after the current frame")
			r.Interrupt()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	opts := renderOptions(ctx)
	var prof *profiler.Profiler
	if ctx.Bool("profile") {
		prof = profiler.New()
		opts.Profiler = prof
	}

	// Load scene
	sc, _, err := loadScene(ctx)
	if err != nil {
		return err
	}

	// Create renderer
	r, err := renderer.NewDefault(sc, blockScheduler(opts), opts)
	if err != nil {
		return err
	}
	defer r.Close()

	stopSignals := interruptOnSignal(r)
	defer stopSignals()

	logger.Noticef("rendering %dx%d frame with %d spp", opts.FrameW, opts.FrameH, opts.SamplesPerPixel)
	start := time.Now()
	img, err := r.Render(0)
	switch {
	case err == renderer.ErrInterrupted:
		logger.Warningf("render interrupted after %d samples", r.Stats().Samples)
	case err != nil:
		return err
	}
	logger.Noticef("rendered frame in %d ms", time.Since(start).Nanoseconds()/1e6)

	// Display stats
	logger.Noticef("frame statistics\n%s", r.Stats().Table())
	if prof != nil {
		logger.Noticef("profile\n%s", prof.Table())
	}

	return saveImage(ctx.String("out"), img)
}

// Render continuously and stream frames to websocket clients. Clients can
// move the camera which restarts accumulation.
func RenderPreview(ctx *cli.Context) error {
	setupLogging(ctx)

	opts := renderOptions(ctx)
	sc, _, err := loadScene(ctx)
	if err != nil {
		return err
	}

	var preview *renderer.PreviewServer
	opts.OnFrame = func(img *image.RGBA, samples uint32) {
		preview.Publish(img, samples)
	}

	r, err := renderer.NewDefault(sc, blockScheduler(opts), opts)
	if err != nil {
		return err
	}
	defer r.Close()

	preview = renderer.NewPreviewServer(r)
	defer preview.Close()

	srv := &http.Server{
		Addr:    ctx.String("addr"),
		Handler: preview.Handler(),
	}
	srvErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != http.ErrServerClosed {
			logger.Errorf("preview server: %s", err.Error())
			r.Interrupt()
		}
		srvErr <- err
	}()
	logger.Noticef("streaming frames on ws://%s/ws", srv.Addr)

	stopSignals := interruptOnSignal(r)
	defer stopSignals()

	_, err = r.Render(0)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if err != nil && err != renderer.ErrInterrupted {
		return err
	}
	if serveErr := <-srvErr; serveErr != nil && serveErr != http.ErrServerClosed {
		return serveErr
	}

	logger.Noticef("preview stopped after %d samples", r.Stats().Samples)
	return nil
}

// Encode img using the format implied by the file extension.
func saveImage(imgFile string, img image.Image) error {
	var encode func(f *os.File, img image.Image) error
	switch strings.ToLower(filepath.Ext(imgFile)) {
	case ".png":
		encode = func(f *os.File, img image.Image) error { return png.Encode(f, img) }
	case ".bmp":
		encode = func(f *os.File, img image.Image) error { return bmp.Encode(f, img) }
	case ".tif", ".tiff":
		encode = func(f *os.File, img image.Image) error { return tiff.Encode(f, img, nil) }
	default:
		return fmt.Errorf("unsupported image format %q", filepath.Ext(imgFile))
	}

	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	if err = encode(f, img); err != nil {
		return fmt.Errorf("error encoding %s: %s", imgFile, err.Error())
	}
	logger.Noticef("wrote frame to %s in %d ms", imgFile, time.Since(start).Nanoseconds()/1e6)
	return nil
}
