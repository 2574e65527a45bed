package cmd

import (
	"time"

	"github.com/BouncingElf10/raytracer/renderer"
	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/scene/reader"
	"github.com/urfave/cli"
)

// Render the bounding boxes of all scene objects.
func DebugAABB(ctx *cli.Context) error {
	setupLogging(ctx)

	var (
		sceneFile = ctx.Args().First()
		world     *scene.Scene
		err       error
	)
	if reader.IsCompiled(sceneFile) {
		var sc *scene.OptimizedScene
		if sc, err = reader.ReadOptimizedScene(sceneFile); err != nil {
			return err
		}
		world = sc.World()
	} else if world, err = reader.ReadScene(sceneFile); err != nil {
		return err
	}

	camera := scene.NewCamera(uint32(ctx.Int("width")), uint32(ctx.Int("height")))
	if world.Camera != nil {
		camera.SetState(world.Camera.State())
	}

	start := time.Now()
	img := renderer.RenderDebugAABB(world, camera)
	logger.Noticef("rendered bounding boxes for %d objects in %d ms", len(world.Objects), time.Since(start).Nanoseconds()/1e6)

	return saveImage(ctx.String("out"), img)
}
