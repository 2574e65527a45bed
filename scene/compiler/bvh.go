package compiler

import (
	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/types"
)

// A Node is either an *InternalNode or a *LeafNode.
type Node interface {
	// Get the node bounding box.
	BBox() types.AABB

	isNode()
}

// An internal BVH node with exactly two children.
type InternalNode struct {
	Box         types.AABB
	Left, Right Node
}

func (n *InternalNode) BBox() types.AABB { return n.Box }
func (*InternalNode) isNode()            {}

// A BVH leaf owning a set of triangles.
type LeafNode struct {
	Box       types.AABB
	Triangles []scene.Triangle
}

func (n *LeafNode) BBox() types.AABB { return n.Box }
func (*LeafNode) isNode()            {}

// Visit every node of the tree in pre-order.
func Walk(node Node, fn func(node Node, depth int)) {
	walk(node, 0, fn)
}

func walk(node Node, depth int, fn func(Node, int)) {
	if node == nil {
		return
	}
	fn(node, depth)
	if in, ok := node.(*InternalNode); ok {
		walk(in.Left, depth+1, fn)
		walk(in.Right, depth+1, fn)
	}
}

// Visit every leaf of the tree from left to right.
func Leaves(node Node, fn func(leaf *LeafNode)) {
	Walk(node, func(node Node, _ int) {
		if leaf, ok := node.(*LeafNode); ok {
			fn(leaf)
		}
	})
}
