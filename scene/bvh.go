package scene

import "github.com/BouncingElf10/raytracer/types"

// Size of an encoded BvhNode in bytes.
const BvhNodeSize = 48

// A flattened BVH node. The meaning of LeftFirst and RightCount depends on
// the node type:
//
// - For internal nodes they contain the indices of the left and right child
//   nodes.
// - For leaves, LeftFirst points to the first entry in the BVH index list and
//   RightCount contains the number of entries that belong to the leaf.
//
// The encoded layout is min (12) + pad (4) + max (12) + pad (4) + left_first,
// right_count, is_leaf, pad (16).
type BvhNode struct {
	Min types.Vec3
	Max types.Vec3

	LeftFirst  uint32
	RightCount uint32
	IsLeaf     uint32
}

// Set bounding box.
func (n *BvhNode) SetBBox(box types.AABB) {
	n.Min = box.Min
	n.Max = box.Max
}

// Get bounding box.
func (n *BvhNode) BBox() types.AABB {
	return types.NewAABB(n.Min, n.Max)
}

// Set left and right child node indices.
func (n *BvhNode) SetChildNodes(left, right uint32) {
	n.LeftFirst = left
	n.RightCount = right
	n.IsLeaf = 0
}

// Set index list offset and count.
func (n *BvhNode) SetLeaf(first, count uint32) {
	n.LeftFirst = first
	n.RightCount = count
	n.IsLeaf = 1
}

// Returns true if this is a leaf node.
func (n *BvhNode) Leaf() bool {
	return n.IsLeaf != 0
}

// Relocate node so it can be appended to a node list that already contains
// nodeBase nodes and an index list that already contains indexBase entries.
func (n BvhNode) Offset(nodeBase, indexBase uint32) BvhNode {
	if n.IsLeaf != 0 {
		n.LeftFirst += indexBase
	} else {
		n.LeftFirst += nodeBase
		n.RightCount += nodeBase
	}
	return n
}

// Append the binary encoding of the node to b.
func (n BvhNode) AppendBinary(b []byte) []byte {
	b = appendVec3(b, n.Min, 0)
	b = appendVec3(b, n.Max, 0)
	b = appendU32(b, n.LeftFirst)
	b = appendU32(b, n.RightCount)
	b = appendU32(b, n.IsLeaf)
	return appendU32(b, 0)
}

func decodeBvhNode(b []byte) BvhNode {
	return BvhNode{
		Min:        readVec3(b, 0),
		Max:        readVec3(b, 16),
		LeftFirst:  readU32(b, 32),
		RightCount: readU32(b, 36),
		IsLeaf:     readU32(b, 40),
	}
}
