package writer

import (
	"io"

	"github.com/BouncingElf10/raytracer/scene"
)

// The Writer interface is implemented by all scene writers.
type Writer interface {
	// Write scene definition to a stream.
	Write(*scene.OptimizedScene, io.Writer) error
}

// Write compiled scene to a zip file.
func WriteScene(sc *scene.OptimizedScene, filename string) error {
	return newZipSceneWriter().WriteFile(sc, filename)
}
