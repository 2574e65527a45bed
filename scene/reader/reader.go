package reader

import (
	"fmt"
	"strings"

	"github.com/BouncingElf10/raytracer/scene"
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*Resource) (*scene.Scene, error)
}

// Read scene from file. Wavefront objects are placed inside a Cornell box,
// zip files are treated as compiled scenes and an empty filename yields an
// empty Cornell box.
func ReadScene(filename string) (*scene.Scene, error) {
	if filename == "" {
		return scene.NewCornellBox(nil), nil
	}

	var reader Reader
	switch {
	case strings.HasSuffix(filename, ".obj"):
		reader = newWavefrontReader()
	case strings.HasSuffix(filename, ".zip"):
		reader = newZipSceneReader()
	default:
		return nil, fmt.Errorf("readScene: unsupported file format")
	}

	res, err := NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return reader.Read(res)
}

// Read a wavefront object file into a mesh.
func ReadMesh(filename string) (*scene.Mesh, error) {
	res, err := NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return newWavefrontReader().ReadMesh(res)
}

// Read a compiled scene from a zip file.
func ReadOptimizedScene(filename string) (*scene.OptimizedScene, error) {
	res, err := NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return newZipSceneReader().ReadOptimized(res)
}

// Returns true if the filename refers to a compiled scene.
func IsCompiled(filename string) bool {
	return strings.HasSuffix(filename, ".zip")
}
