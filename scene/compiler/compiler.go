package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/BouncingElf10/raytracer/log"
	"github.com/BouncingElf10/raytracer/scene"
	"github.com/olekukonko/tablewriter"
)

var (
	ErrNilScene   = errors.New("compiler: nil scene")
	ErrEmptyScene = errors.New("compiler: scene has no objects")
)

const looseTrianglesTree = "loose triangles"

type sceneCompiler struct {
	world          *scene.Scene
	opts           BuildOptions
	optimizedScene *scene.OptimizedScene
	logger         log.Logger
}

// Compile a world into a GPU-friendly optimized scene. Each mesh (and the set
// of loose triangles, if any) gets its own BVH tree; all trees share a single
// node and index list.
func Compile(world *scene.Scene, opts BuildOptions) (*scene.OptimizedScene, error) {
	if world == nil {
		return nil, ErrNilScene
	}
	if len(world.Objects) == 0 {
		return nil, ErrEmptyScene
	}

	compiler := &sceneCompiler{
		world:          world,
		opts:           opts,
		optimizedScene: &scene.OptimizedScene{},
		logger:         log.New("scene compiler"),
	}

	start := time.Now()
	compiler.logger.Noticef("compiling scene")

	compiler.exportPrimitives()

	err := compiler.partitionGeometry()
	if err != nil {
		return nil, err
	}

	compiler.setupCamera()

	compiler.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return compiler.optimizedScene, nil
}

// Export spheres and planes.
func (sc *sceneCompiler) exportPrimitives() {
	for _, sphere := range sc.world.Spheres() {
		sc.optimizedScene.Spheres = append(sc.optimizedScene.Spheres, scene.NewGpuSphere(sphere))
	}
	for _, plane := range sc.world.Planes() {
		sc.optimizedScene.Planes = append(sc.optimizedScene.Planes, scene.NewGpuPlane(plane))
	}
	sc.logger.Infof("exported %d spheres and %d planes", len(sc.optimizedScene.Spheres), len(sc.optimizedScene.Planes))
}

// Build the world triangle buffer and generate one BVH tree per mesh plus an
// additional tree for any loose triangles.
func (sc *sceneCompiler) partitionGeometry() error {
	start := time.Now()
	sc.logger.Notice("partitioning geometry")

	world := sc.world.Triangles()
	if uint64(len(world)) > uint64(^uint32(0)) {
		return fmt.Errorf("compiler: too many triangles (%d)", len(world))
	}

	type span struct {
		name        string
		first, last int
	}
	var spans []span
	offset := 0
	for index, mesh := range sc.world.Meshes() {
		count := len(mesh.Triangles(0))
		name := mesh.Name
		if name == "" {
			name = fmt.Sprintf("mesh %d", index)
		}
		spans = append(spans, span{name, offset, offset + count})
		offset += count
	}
	if offset < len(world) {
		spans = append(spans, span{looseTrianglesTree, offset, len(world)})
	}

	out := sc.optimizedScene
	out.Triangles = make([]scene.GpuTriangle, len(world))
	for index, tri := range world {
		out.Triangles[index] = scene.NewGpuTriangle(tri)
	}

	for _, s := range spans {
		if s.first == s.last {
			sc.logger.Warningf("skipping %q: no triangles", s.name)
			continue
		}

		root, stats := BuildBVHWithStats(world[s.first:s.last], sc.opts)
		tree := Flatten(root, world)
		if tree.Misses != 0 {
			sc.logger.Warningf("%q: %d leaf triangles missing from the world triangle buffer", s.name, tree.Misses)
		}

		var rootIndex uint32
		out.BvhNodes, out.BvhIndices, rootIndex = appendTree(out.BvhNodes, out.BvhIndices, tree)
		out.MeshRoots = append(out.MeshRoots, rootIndex)

		sc.logger.Infof("%q: %d triangles, %d nodes, max depth %d", s.name, stats.Triangles, stats.Nodes, stats.MaxDepth)
		if sc.opts.OnTreeBuilt != nil {
			sc.opts.OnTreeBuilt(s.name, stats)
		}
	}

	sc.logger.Noticef("partitioned %d triangles into %d BVH trees in %d ms", len(world), len(out.MeshRoots), time.Since(start).Nanoseconds()/1e6)
	return nil
}

func (sc *sceneCompiler) setupCamera() {
	if sc.world.Camera == nil {
		sc.logger.Warning("scene has no camera; using defaults")
		sc.optimizedScene.Camera = scene.NewCamera(scene.DefaultFrameW, scene.DefaultFrameH).State()
		return
	}
	sc.optimizedScene.Camera = sc.world.Camera.State()
}

// A named set of BVH build statistics.
type TreeStats struct {
	Name string
	BuildStats
}

// Build a tabular representation of BVH build statistics.
func FormatStats(trees []TreeStats) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Tree", "Triangles", "Nodes", "Leaves", "Max depth", "Median splits", "Build time"})

	var total BuildStats
	for _, tree := range trees {
		table.Append([]string{
			tree.Name,
			fmt.Sprint(tree.Triangles),
			fmt.Sprint(tree.Nodes),
			fmt.Sprint(tree.Leaves),
			fmt.Sprint(tree.MaxDepth),
			fmt.Sprint(tree.MedianSplits),
			fmt.Sprintf("%d ms", tree.BuildTime.Nanoseconds()/1e6),
		})
		total.Triangles += tree.Triangles
		total.Nodes += tree.Nodes
		total.Leaves += tree.Leaves
		total.BuildTime += tree.BuildTime
	}
	table.SetFooter([]string{
		"Total",
		fmt.Sprint(total.Triangles),
		fmt.Sprint(total.Nodes),
		fmt.Sprint(total.Leaves),
		" ",
		" ",
		fmt.Sprintf("%d ms", total.BuildTime.Nanoseconds()/1e6),
	})

	table.Render()
	return buf.String()
}
