package cmd

import (
	"errors"
	"strings"

	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/scene/compiler"
	"github.com/BouncingElf10/raytracer/scene/reader"
	"github.com/BouncingElf10/raytracer/scene/writer"
	"github.com/urfave/cli"
)

// Load a compiled scene from the first command argument. Compiled zip
// archives are read as-is; wavefront files (or no argument at all) are
// placed in a Cornell box and compiled using the leaf-size flag.
func loadScene(ctx *cli.Context) (*scene.OptimizedScene, []compiler.TreeStats, error) {
	sceneFile := ctx.Args().First()
	if reader.IsCompiled(sceneFile) {
		sc, err := reader.ReadOptimizedScene(sceneFile)
		return sc, nil, err
	}

	if sceneFile == "" {
		logger.Notice("no scene file specified; rendering an empty cornell box")
	}
	world, err := reader.ReadScene(sceneFile)
	if err != nil {
		return nil, nil, err
	}

	var trees []compiler.TreeStats
	opts := compiler.BuildOptions{
		LeafThreshold: ctx.Int("leaf-size"),
		OnTreeBuilt: func(name string, stats compiler.BuildStats) {
			trees = append(trees, compiler.TreeStats{Name: name, BuildStats: stats})
		},
	}
	sc, err := compiler.Compile(world, opts)
	if err != nil {
		return nil, nil, err
	}
	return sc, trees, nil
}

// Compile scene to binary format.
func CompileScene(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return errors.New("missing scene file argument")
	}

	leafSize := ctx.Int("leaf-size")
	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)
		if !strings.HasSuffix(sceneFile, ".obj") {
			logger.Warningf("skipping unsupported file %s", sceneFile)
			continue
		}

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		world, err := reader.ReadScene(sceneFile)
		if err != nil {
			return err
		}

		var trees []compiler.TreeStats
		sc, err := compiler.Compile(world, compiler.BuildOptions{
			LeafThreshold: leafSize,
			OnTreeBuilt: func(name string, stats compiler.BuildStats) {
				trees = append(trees, compiler.TreeStats{Name: name, BuildStats: stats})
			},
		})
		if err != nil {
			return err
		}

		// Display compiled scene info
		logger.Noticef("scene information:\n%s", sc.Stats())
		logger.Noticef("bvh statistics:\n%s", compiler.FormatStats(trees))

		zipFile := strings.TrimSuffix(sceneFile, ".obj") + ".zip"
		err = writer.WriteScene(sc, zipFile)
		if err != nil {
			return err
		}
		logger.Noticef("wrote compiled scene to %s", zipFile)
	}

	return nil
}

// Display compiled scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	sc, trees, err := loadScene(ctx)
	if err != nil {
		return err
	}

	logger.Noticef("scene information:\n%s", sc.Stats())
	if len(trees) != 0 {
		logger.Noticef("bvh statistics:\n%s", compiler.FormatStats(trees))
	}

	return nil
}
