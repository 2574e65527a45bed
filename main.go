package main

import (
	"os"

	"github.com/BouncingElf10/raytracer/cmd"
	"github.com/BouncingElf10/raytracer/log"
	"github.com/BouncingElf10/raytracer/renderer"
	"github.com/BouncingElf10/raytracer/scene/compiler"
	"github.com/urfave/cli"
)

func leafSizeFlag() cli.Flag {
	return cli.IntFlag{
		Name:  "leaf-size",
		Value: compiler.DefaultLeafThreshold,
		Usage: "maximum number of triangles per BVH leaf",
	}
}

func frameFlags(width, height int) []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: width,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: height,
			Usage: "frame height",
		},
	}
}

func renderFlags(spp int) []cli.Flag {
	return append(frameFlags(800, 600),
		cli.IntFlag{
			Name:  "spp",
			Value: spp,
			Usage: "samples per pixel; 0 renders until interrupted",
		},
		cli.Float64Flag{
			Name:  "exposure",
			Value: 1.0,
			Usage: "camera exposure for tone-mapping",
		},
		cli.StringFlag{
			Name:  "device",
			Value: renderer.DeviceCompute,
			Usage: "render device: cpu, compute or hybrid",
		},
		cli.IntFlag{
			Name:  "workers",
			Value: 0,
			Usage: "number of compute device workers; 0 uses all logical cores",
		},
		cli.IntFlag{
			Name:  "seed",
			Value: 1,
			Usage: "random seed",
		},
		cli.BoolFlag{
			Name:  "validate-kernel",
			Usage: "compile the WGSL kernel before rendering",
		},
		leafSizeFlag(),
	)
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "raytracer"
	app.Usage = "render scenes using progressive BVH path tracing"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render scene to an image",
			Description: `
Render a wavefront obj file placed inside a Cornell box or a compiled scene zip
archive. If no scene file is specified an empty Cornell box is rendered.

The output format (png, bmp or tiff) is selected by the output file extension.`,
			ArgsUsage: "[scene_file]",
			Flags: append(renderFlags(16),
				cli.BoolFlag{
					Name:  "profile",
					Usage: "display a breakdown of frame stage timings",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			),
			Action: cmd.RenderFrame,
		},
		{
			Name:  "preview",
			Usage: "render continuously and stream frames over a websocket",
			Description: `
Frames are streamed from the /ws endpoint as binary messages containing a
12-byte header (width, height and sample count as little-endian uint32 values)
followed by the snappy-compressed RGBA pixels.

Clients can send JSON commands to move the camera:
  {"move": "forward|backward|left|right|up|down"}
  {"yaw": 1.5, "pitch": -2}
  {"resize": [1024, 768]}`,
			ArgsUsage: "[scene_file]",
			Flags: append(renderFlags(0),
				cli.StringFlag{
					Name:  "addr",
					Value: "localhost:8080",
					Usage: "address for the preview server",
				},
			),
			Action: cmd.RenderPreview,
		},
		{
			Name:  "compile",
			Usage: "compile wavefront obj files into a binary compressed format",
			Description: `
Parse a mesh from a wavefront obj file, place it inside a Cornell box, build a
BVH tree to optimize ray intersection tests and package scene elements in a
GPU-friendly format.

The optimized scene data is then written to a zip archive which can be supplied
as an argument to the render command.`,
			ArgsUsage: "scene_file1.obj scene_file2.obj ...",
			Flags:     []cli.Flag{leafSizeFlag()},
			Action:    cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "display scene and BVH statistics",
			ArgsUsage: "scene_file",
			Flags:     []cli.Flag{leafSizeFlag()},
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:      "debug-aabb",
			Usage:     "render the bounding box of every scene object",
			ArgsUsage: "[scene_file]",
			Flags: append(frameFlags(800, 600),
				cli.StringFlag{
					Name:  "out, o",
					Value: "aabb.png",
					Usage: "image filename for the rendered frame",
				},
			),
			Action: cmd.DebugAABB,
		},
		{
			Name:  "kernel",
			Usage: "compile the WGSL path tracing kernel to SPIR-V",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Value: "pathtrace.spv",
					Usage: "SPIR-V output file; leave empty to only validate the kernel",
				},
				cli.BoolFlag{
					Name:  "wgsl",
					Usage: "print the WGSL source instead of compiling it",
				},
			},
			Action: cmd.CompileKernel,
		},
		{
			Name:   "list-devices",
			Usage:  "list available render devices",
			Action: cmd.ListDevices,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.New("raytracer").Errorf("error: %s", err.Error())
		os.Exit(1)
	}
}
