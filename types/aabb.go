package types

import "github.com/chewxy/math32"

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis
)

func (a Axis) String() string {
	switch a {
	case XAxis:
		return "X"
	case YAxis:
		return "Y"
	}
	return "Z"
}

// An axis-aligned bounding box defined by its min and max corners.
type AABB struct {
	Min Vec3
	Max Vec3
}

// Create a new AABB. The corners are not validated.
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// Create an inverted AABB that can be grown with Extend or Union.
func EmptyAABB() AABB {
	return AABB{
		Min: Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
		Max: Vec3{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
	}
}

// Grow the box so that it includes point p.
func (b AABB) Extend(p Vec3) AABB {
	return AABB{Min: MinVec3(b.Min, p), Max: MaxVec3(b.Max, p)}
}

// Grow the box so that it includes box o.
func (b AABB) Union(o AABB) AABB {
	return AABB{Min: MinVec3(b.Min, o.Min), Max: MaxVec3(b.Max, o.Max)}
}

// Get the box extents along each axis.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Get the box center.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Returns the axis with the largest extent. Ties are resolved in X, Y, Z
// order: X wins over an equally long Y and Y wins over an equally long Z.
func (b AABB) BiggestAxis() Axis {
	size := b.Size()
	if size[0] > size[1] && size[0] > size[2] {
		return XAxis
	} else if size[1] > size[2] {
		return YAxis
	}
	return ZAxis
}

// Check whether point p lies inside or on the box. A small tolerance absorbs
// float rounding from transformed geometry.
func (b AABB) Contains(p Vec3) bool {
	const eps = 1e-4
	for axis := 0; axis < 3; axis++ {
		if p[axis] < b.Min[axis]-eps || p[axis] > b.Max[axis]+eps {
			return false
		}
	}
	return true
}

// Check whether box o lies inside or on the box.
func (b AABB) ContainsBox(o AABB) bool {
	return b.Contains(o.Min) && b.Contains(o.Max)
}

// Slab test. Returns true if the ray intersects the box at t >= 0.
//
// Axes with a zero direction component are handled explicitly: the ray either
// stays inside the slab forever or never enters it. Letting the division
// produce ±Inf works too, except when the origin sits exactly on a slab plane
// where 0*Inf would yield NaN.
func (b AABB) Hit(ray Ray) bool {
	tmin := math32.Inf(-1)
	tmax := math32.Inf(1)

	for axis := 0; axis < 3; axis++ {
		o := ray.Origin[axis]
		d := ray.Dir[axis]
		if d == 0 {
			if o < b.Min[axis] || o > b.Max[axis] {
				return false
			}
			continue
		}

		invD := 1.0 / d
		t0 := (b.Min[axis] - o) * invD
		t1 := (b.Max[axis] - o) * invD
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = math32.Max(tmin, t0)
		tmax = math32.Min(tmax, t1)
	}

	return tmax >= math32.Max(tmin, 0)
}

// Get the 12 box edges as point pairs.
func (b AABB) Edges() [12][2]Vec3 {
	min, max := b.Min, b.Max

	v000 := Vec3{min[0], min[1], min[2]}
	v001 := Vec3{min[0], min[1], max[2]}
	v010 := Vec3{min[0], max[1], min[2]}
	v011 := Vec3{min[0], max[1], max[2]}
	v100 := Vec3{max[0], min[1], min[2]}
	v101 := Vec3{max[0], min[1], max[2]}
	v110 := Vec3{max[0], max[1], min[2]}
	v111 := Vec3{max[0], max[1], max[2]}

	return [12][2]Vec3{
		{v000, v001}, {v001, v011}, {v011, v010}, {v010, v000},
		{v100, v101}, {v101, v111}, {v111, v110}, {v110, v100},
		{v000, v100}, {v001, v101}, {v010, v110}, {v011, v111},
	}
}
