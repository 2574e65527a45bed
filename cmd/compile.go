package cmd

import (
	"encoding/binary"
	"os"

	"github.com/BouncingElf10/raytracer/tracer/compute"
	"github.com/urfave/cli"
)

// Compile the path tracing kernel to SPIR-V.
func CompileKernel(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.Bool("wgsl") {
		_, err := os.Stdout.WriteString(compute.KernelSource())
		return err
	}

	words, err := compute.CompileKernel()
	if err != nil {
		return err
	}
	logger.Noticef("compiled kernel to %d SPIR-V words", len(words))

	outFile := ctx.String("out")
	if outFile == "" {
		return nil
	}

	spirv := make([]byte, 4*len(words))
	for index, word := range words {
		binary.LittleEndian.PutUint32(spirv[index*4:], word)
	}
	if err = os.WriteFile(outFile, spirv, 0644); err != nil {
		return err
	}
	logger.Noticef("wrote kernel to %s", outFile)
	return nil
}
