package compiler

import (
	"sort"
	"time"

	"github.com/BouncingElf10/raytracer/log"
	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/types"
)

// Sets with at most this many triangles become leaves unless overridden via
// BuildOptions.
const DefaultLeafThreshold = 20

// Options for the BVH builder.
type BuildOptions struct {
	// The maximum number of triangles stored in a leaf. Values <= 0 select
	// DefaultLeafThreshold.
	LeafThreshold int

	// An optional callback invoked after each tree is built.
	OnTreeBuilt func(name string, stats BuildStats)
}

func (o BuildOptions) leafThreshold() int {
	if o.LeafThreshold <= 0 {
		return DefaultLeafThreshold
	}
	return o.LeafThreshold
}

// Statistics collected while building a BVH tree.
type BuildStats struct {
	Nodes     int
	Internal  int
	Leaves    int
	MaxDepth  int
	Triangles int

	// Number of splits that fell back to a median cut because the mean
	// split left one side empty.
	MedianSplits int

	BuildTime time.Duration
}

type bvhBuilder struct {
	logger        log.Logger
	leafThreshold int
	stats         BuildStats
}

// Construct a BVH from a set of triangles.
//
// Each set is split at the mean of its triangle centroids along the longest
// axis of its bounding box; triangles whose centroid component is less than
// the mean go left, the rest go right. If that leaves one side empty (e.g.
// all centroids coincide) the set is sorted by centroid and cut in half
// instead, so the build always terminates.
//
// Sets with at most opts.LeafThreshold triangles become leaves. Internal
// nodes store the bounding box of their input set.
func BuildBVH(tris []scene.Triangle, opts BuildOptions) Node {
	root, _ := BuildBVHWithStats(tris, opts)
	return root
}

// Construct a BVH and return the collected build statistics.
func BuildBVHWithStats(tris []scene.Triangle, opts BuildOptions) (Node, BuildStats) {
	builder := &bvhBuilder{
		logger:        log.New("bvhBuilder"),
		leafThreshold: opts.leafThreshold(),
		stats: BuildStats{
			Triangles: len(tris),
		},
	}

	start := time.Now()
	work := make([]scene.Triangle, len(tris))
	copy(work, tris)
	root := builder.partition(work, 0)
	builder.stats.BuildTime = time.Since(start)

	builder.logger.Debugf(
		"BVH tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d",
		builder.stats.BuildTime.Nanoseconds()/1e6,
		builder.stats.MaxDepth, builder.stats.Nodes, builder.stats.Leaves,
	)
	return root, builder.stats
}

// Triangulate mesh starting at firstID and build a BVH for its triangles.
// The generated triangles are also returned.
func BuildMeshBVH(mesh *scene.Mesh, firstID uint32, opts BuildOptions) (Node, []scene.Triangle) {
	tris := mesh.Triangles(firstID)
	return BuildBVH(tris, opts), tris
}

func (b *bvhBuilder) partition(workList []scene.Triangle, depth int) Node {
	if depth > b.stats.MaxDepth {
		b.stats.MaxDepth = depth
	}
	b.stats.Nodes++

	box := types.EmptyAABB()
	for _, tri := range workList {
		box = box.Union(tri.BBox())
	}

	// Do we have enough items for partitioning? If not create a leaf
	if len(workList) <= b.leafThreshold {
		b.stats.Leaves++
		return &LeafNode{Box: box, Triangles: workList}
	}

	axis := box.BiggestAxis()
	var mean float32
	for _, tri := range workList {
		mean += tri.Centroid().Component(axis)
	}
	mean /= float32(len(workList))

	left := make([]scene.Triangle, 0, len(workList)/2)
	right := make([]scene.Triangle, 0, len(workList)/2)
	for _, tri := range workList {
		if tri.Centroid().Component(axis) < mean {
			left = append(left, tri)
		} else {
			right = append(right, tri)
		}
	}

	if len(left) == 0 || len(right) == 0 {
		left, right = medianSplit(workList, axis)
		b.stats.MedianSplits++
	}

	b.stats.Internal++
	return &InternalNode{
		Box:   box,
		Left:  b.partition(left, depth+1),
		Right: b.partition(right, depth+1),
	}
}

// Sort triangles by centroid along axis (ties resolved by ID) and cut the
// list in half.
func medianSplit(workList []scene.Triangle, axis types.Axis) (left, right []scene.Triangle) {
	sorted := make([]scene.Triangle, len(workList))
	copy(sorted, workList)
	sort.SliceStable(sorted, func(i, j int) bool {
		ci := sorted[i].Centroid().Component(axis)
		cj := sorted[j].Centroid().Component(axis)
		if ci != cj {
			return ci < cj
		}
		return sorted[i].ID < sorted[j].ID
	})

	mid := len(sorted) / 2
	return sorted[:mid], sorted[mid:]
}
