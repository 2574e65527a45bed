package scene

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// An OptimizedScene contains the flattened GPU records generated by the
// scene compiler. Triangles are stored in world triangle buffer order so
// that BvhIndices can refer to them by position.
type OptimizedScene struct {
	Spheres   []GpuSphere
	Triangles []GpuTriangle
	Planes    []GpuPlane

	BvhNodes   []BvhNode
	BvhIndices []uint32

	// Root node index for each BVH tree stored in BvhNodes. The first tree
	// always starts at node 0.
	MeshRoots []uint32

	// The scene camera.
	Camera CameraState
}

// Build the uniform counts block for a frame.
func (sc *OptimizedScene) Counts(width, height, sample uint32) Counts {
	return Counts{
		Spheres:    uint32(len(sc.Spheres)),
		Triangles:  uint32(len(sc.Triangles)),
		Planes:     uint32(len(sc.Planes)),
		Width:      width,
		Height:     height,
		Sample:     sample,
		BvhNodes:   uint32(len(sc.BvhNodes)),
		BvhIndices: uint32(len(sc.BvhIndices)),
	}
}

// Rebuild an object list from the compiled records. Triangles are added as
// loose objects with their world buffer index as ID.
func (sc *OptimizedScene) World() *Scene {
	world := NewScene()
	for _, s := range sc.Spheres {
		world.Objects = append(world.Objects, s.Sphere())
	}
	for _, p := range sc.Planes {
		world.Objects = append(world.Objects, p.Plane())
	}
	for index, tri := range sc.Triangles {
		world.Objects = append(world.Objects, tri.Triangle(uint32(index)))
	}
	world.Camera.SetState(sc.Camera)
	return world
}

// Build a tabular representation of scene statistics.
func (sc *OptimizedScene) Stats() string {
	var (
		sphereBytes   = len(sc.Spheres) * GpuSphereSize
		triangleBytes = len(sc.Triangles) * GpuTriangleSize
		planeBytes    = len(sc.Planes) * GpuPlaneSize
		nodeBytes     = len(sc.BvhNodes) * BvhNodeSize
		indexBytes    = len(sc.BvhIndices) * 4
	)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count", "Size"})
	table.Append([]string{"Geometry", "---", "", fmtSize(sphereBytes, triangleBytes, planeBytes)})
	table.Append([]string{"", "Spheres", fmt.Sprint(len(sc.Spheres)), fmtSize(sphereBytes)})
	table.Append([]string{"", "Triangles", fmt.Sprint(len(sc.Triangles)), fmtSize(triangleBytes)})
	table.Append([]string{"", "Planes", fmt.Sprint(len(sc.Planes)), fmtSize(planeBytes)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"BVH", "---", fmt.Sprint(len(sc.MeshRoots)), fmtSize(nodeBytes, indexBytes)})
	table.Append([]string{"", "Nodes", fmt.Sprint(len(sc.BvhNodes)), fmtSize(nodeBytes)})
	table.Append([]string{"", "Indices", fmt.Sprint(len(sc.BvhIndices)), fmtSize(indexBytes)})
	table.SetFooter([]string{"Total", " ", " ", strings.TrimLeft(fmtSize(sphereBytes, triangleBytes, planeBytes, nodeBytes, indexBytes), " ")})

	table.Render()
	return buf.String()
}

// Sum a set of byte counts and return back a formatted value with the
// appropriate byte/kb/mb unit.
func fmtSize(sizes ...int) string {
	var totalBytes float32
	for _, size := range sizes {
		totalBytes += float32(size)
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
