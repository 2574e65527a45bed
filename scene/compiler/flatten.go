package compiler

import (
	"github.com/BouncingElf10/raytracer/scene"
)

// A BVH tree flattened into GPU records. Leaves point into Indices which in
// turn holds positions in the world triangle buffer.
type FlatBVH struct {
	Nodes   []scene.BvhNode
	Indices []uint32

	// Number of leaf triangles that could not be found in the world
	// triangle buffer. These triangles are skipped.
	Misses int
}

type flattener struct {
	lookup map[uint32]uint32
	out    FlatBVH
}

// Flatten a BVH tree into a pre-ordered node list with the root at index 0.
// Leaf triangles are resolved to their position in world by ID.
func Flatten(root Node, world []scene.Triangle) FlatBVH {
	f := &flattener{
		lookup: make(map[uint32]uint32, len(world)),
	}
	for index, tri := range world {
		if _, exists := f.lookup[tri.ID]; !exists {
			f.lookup[tri.ID] = uint32(index)
		}
	}

	if root != nil {
		f.flatten(root)
	}
	return f.out
}

func (f *flattener) flatten(node Node) uint32 {
	// Reserve a slot so that the parent precedes its children.
	nodeIndex := uint32(len(f.out.Nodes))
	f.out.Nodes = append(f.out.Nodes, scene.BvhNode{})

	var flat scene.BvhNode
	flat.SetBBox(node.BBox())

	switch n := node.(type) {
	case *LeafNode:
		first := uint32(len(f.out.Indices))
		for _, tri := range n.Triangles {
			index, found := f.lookup[tri.ID]
			if !found {
				f.out.Misses++
				continue
			}
			f.out.Indices = append(f.out.Indices, index)
		}
		flat.SetLeaf(first, uint32(len(f.out.Indices))-first)
	case *InternalNode:
		left := f.flatten(n.Left)
		right := f.flatten(n.Right)
		flat.SetChildNodes(left, right)
	}

	f.out.Nodes[nodeIndex] = flat
	return nodeIndex
}

// Append tree to the node and index lists relocating its node and index
// references. Returns the updated lists and the root index of the appended
// tree.
func appendTree(nodes []scene.BvhNode, indices []uint32, tree FlatBVH) ([]scene.BvhNode, []uint32, uint32) {
	nodeBase := uint32(len(nodes))
	indexBase := uint32(len(indices))
	for _, node := range tree.Nodes {
		nodes = append(nodes, node.Offset(nodeBase, indexBase))
	}
	indices = append(indices, tree.Indices...)
	return nodes, indices, nodeBase
}
