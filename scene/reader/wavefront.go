package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BouncingElf10/raytracer/log"
	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/types"
)

type wavefrontSceneReader struct {
	logger log.Logger

	// The mesh being populated.
	mesh *scene.Mesh

	// List of vertices and normals.
	vertexList []types.Vec3
	normalList []types.Vec3

	// Number of unsupported directives that were skipped.
	skipped int
}

// Create a new wavefront object reader.
func newWavefrontReader() *wavefrontSceneReader {
	return &wavefrontSceneReader{
		logger:     log.New("wavefront reader"),
		vertexList: make([]types.Vec3, 0),
		normalList: make([]types.Vec3, 0),
	}
}

// Read a wavefront object and place it inside a Cornell box.
func (r *wavefrontSceneReader) Read(res *Resource) (*scene.Scene, error) {
	mesh, err := r.ReadMesh(res)
	if err != nil {
		return nil, err
	}
	return scene.NewCornellBox(mesh), nil
}

// Parse a wavefront object into a mesh.
func (r *wavefrontSceneReader) ReadMesh(res *Resource) (*scene.Mesh, error) {
	r.logger.Noticef(`parsing mesh from "%s"`, res.Path())
	start := time.Now()

	r.mesh = scene.NewMesh(strings.TrimSuffix(res.Name(), ".obj"))
	err := r.parse(res)
	if err != nil {
		return nil, err
	}

	if r.skipped != 0 {
		r.logger.Infof("skipped %d unsupported directives", r.skipped)
	}
	r.logger.Noticef(
		"parsed %d vertices, %d normals and %d faces in %d ms",
		len(r.vertexList), len(r.normalList), len(r.mesh.Faces),
		time.Since(start).Nanoseconds()/1e6,
	)
	return r.mesh, nil
}

// Generate an error message that includes the file and line.
func (r *wavefrontSceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)
	if file != "" {
		return fmt.Errorf("[%s: %d] error: %s", file, line, msg)
	}
	return fmt.Errorf("error: %s", msg)
}

// Parse wavefront object format. Only vertex, normal and face directives are
// interpreted; everything else is skipped.
func (r *wavefrontSceneReader) parse(res *Resource) error {
	var lineNum int = 0

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if commentStart := strings.IndexByte(line, '#'); commentStart != -1 {
			line = line[:commentStart]
		}
		lineTokens := strings.Fields(line)
		if len(lineTokens) == 0 {
			continue
		}

		switch lineTokens[0] {
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.normalList = append(r.normalList, v)
		case "o", "g":
			if len(lineTokens) >= 2 && r.mesh.Name == "" {
				r.mesh.Name = lineTokens[1]
			}
		case "f":
			face, err := r.parseFace(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.mesh.AppendFace(face)
		default:
			r.skipped++
		}
	}

	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err.Error())
	}
	return nil
}

// Parse face definition. Each face argument defines a vertex and is comprised
// of 1, 2 or 3 indices separated by a slash character. The following formats
// are supported:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Indices start from 1 and may be negative to indicate an offset off the end
// of the vertex/normal list. UV indices are ignored. Faces may contain any
// number of vertices; they are triangulated when the mesh is compiled.
func (r *wavefrontSceneReader) parseFace(lineTokens []string) (scene.Face, error) {
	var face scene.Face
	face.Material = scene.DefaultMaterial()

	for arg := 1; arg < len(lineTokens); arg++ {
		vTokens := strings.Split(lineTokens[arg], "/")
		if len(vTokens) > 3 {
			return face, fmt.Errorf("face argument %d contains too many indices", arg-1)
		}

		// Faces must at least define a vertex coord
		if vTokens[0] == "" {
			return face, fmt.Errorf("face argument %d does not include a vertex index", arg-1)
		}

		var vertex scene.Vertex
		vOffset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList))
		if err != nil {
			return face, fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg-1, err.Error())
		}
		vertex.Position = r.vertexList[vOffset]

		// Parse normal coords if specified
		if len(vTokens) == 3 && vTokens[2] != "" {
			vOffset, err = selectFaceCoordIndex(vTokens[2], len(r.normalList))
			if err != nil {
				return face, fmt.Errorf("could not parse normal coord for face argument %d: %s", arg-1, err.Error())
			}
			vertex.Normal = r.normalList[vOffset]
		}

		face.AppendVertex(vertex)
	}

	return face, nil
}

// Given an index for a face coord type (vertex, normal) calculate the proper
// offset into the coord list. Wavefront format can also use negative indices
// to reference elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int = 0
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = int(index - 1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf("unsupported syntax for '%s'; expected 3 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
