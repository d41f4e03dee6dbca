package aabox

import (
	"math"

	"row-major.net/harpoon/affinetransform"
	"row-major.net/harpoon/ray"
	"row-major.net/harpoon/vmath/vec3"
)

type AABox struct {
	X, Y, Z ray.Span
}

// AccumZeroAABox is the empty box.  It is the identity for MinContainingAABox.
func AccumZeroAABox() AABox {
	return AABox{
		X: ray.EmptySpan(),
		Y: ray.EmptySpan(),
		Z: ray.EmptySpan(),
	}
}

// FromPoints returns the smallest box containing both points, in any order.
func FromPoints(a, b vec3.T) AABox {
	return AABox{
		X: ray.Span{Lo: math.Min(a[0], b[0]), Hi: math.Max(a[0], b[0])},
		Y: ray.Span{Lo: math.Min(a[1], b[1]), Hi: math.Max(a[1], b[1])},
		Z: ray.Span{Lo: math.Min(a[2], b[2]), Hi: math.Max(a[2], b[2])},
	}
}

func MinContainingAABox(a, b AABox) AABox {
	return AABox{
		X: ray.MinContainingSpan(a.X, b.X),
		Y: ray.MinContainingSpan(a.Y, b.Y),
		Z: ray.MinContainingSpan(a.Z, b.Z),
	}
}

func GrowAABoxToPoint(a AABox, p vec3.T) AABox {
	return MinContainingAABox(a, FromPoints(p, p))
}

func (a AABox) Axis(i int) ray.Span {
	switch i {
	case 0:
		return a.X
	case 1:
		return a.Y
	default:
		return a.Z
	}
}

func (a AABox) IsEmpty() bool {
	return a.X.Lo > a.X.Hi || a.Y.Lo > a.Y.Hi || a.Z.Lo > a.Z.Hi
}

func (a AABox) IsFinite() bool {
	return a.X.IsFinite() && a.Y.IsFinite() && a.Z.IsFinite()
}

func (a AABox) Min() vec3.T {
	return vec3.T{a.X.Lo, a.Y.Lo, a.Z.Lo}
}

func (a AABox) Max() vec3.T {
	return vec3.T{a.X.Hi, a.Y.Hi, a.Z.Hi}
}

func (a AABox) Centroid() vec3.T {
	return vec3.T{
		0.5 * (a.X.Lo + a.X.Hi),
		0.5 * (a.Y.Lo + a.Y.Hi),
		0.5 * (a.Z.Lo + a.Z.Hi),
	}
}

// LongestAxis returns the index of the axis with the largest extent.
func (a AABox) LongestAxis() int {
	x, y, z := a.X.Size(), a.Y.Size(), a.Z.Size()
	if x > y {
		if x > z {
			return 0
		}
		return 2
	}
	if y > z {
		return 1
	}
	return 2
}

// Pad widens any axis thinner than delta to exactly delta, so that flat
// primitives still have a volume for the slab test to hit.
func (a AABox) Pad(delta float64) AABox {
	pad := func(s ray.Span) ray.Span {
		if s.Size() < delta {
			return s.Expand(delta - s.Size())
		}
		return s
	}
	return AABox{
		X: pad(a.X),
		Y: pad(a.Y),
		Z: pad(a.Z),
	}
}

func (a AABox) SurfaceArea() float64 {
	xLen := a.X.Hi - a.X.Lo
	yLen := a.Y.Hi - a.Y.Lo
	zLen := a.Z.Hi - a.Z.Lo
	return 2 * (xLen*yLen + xLen*zLen + yLen*zLen)
}

func (a AABox) Transform(t affinetransform.AffineTransform) AABox {
	result := AccumZeroAABox()
	for _, x := range []float64{a.X.Lo, a.X.Hi} {
		for _, y := range []float64{a.Y.Lo, a.Y.Hi} {
			for _, z := range []float64{a.Z.Lo, a.Z.Hi} {
				result = GrowAABoxToPoint(result, affinetransform.TransformPoint(t, vec3.T{x, y, z}))
			}
		}
	}
	return result
}

// SlabTester intersects one ray against many boxes, computing the inverse
// slope once.
type SlabTester struct {
	r   ray.Ray
	inv vec3.T
}

func NewSlabTester(r ray.Ray) SlabTester {
	return SlabTester{
		r:   r,
		inv: vec3.T{1 / r.Slope[0], 1 / r.Slope[1], 1 / r.Slope[2]},
	}
}

// Test intersects the ray with the box, restricted to the parameter span.  It
// returns the overlapping parameter span, or a NaN span on a miss.
//
// A zero slope component gives infinite slab bounds, which either cover
// everything or nothing.  The 0*Inf NaN produced when the origin lies exactly
// on a slab plane is treated as not constraining that axis.
func (s SlabTester) Test(b AABox, span ray.Span) ray.Span {
	if b.IsEmpty() {
		return ray.NaNSpan()
	}
	cover := span
	for i := 0; i < 3; i++ {
		axis := b.Axis(i)
		t0 := (axis.Lo - s.r.Point[i]) * s.inv[i]
		t1 := (axis.Hi - s.r.Point[i]) * s.inv[i]
		if t1 < t0 {
			t0, t1 = t1, t0
		}
		if t0 > cover.Lo {
			cover.Lo = t0
		}
		if t1 < cover.Hi {
			cover.Hi = t1
		}
		if cover.Hi < cover.Lo {
			return ray.NaNSpan()
		}
	}
	return cover
}

func RayTestAABox(r ray.Ray, span ray.Span, b AABox) ray.Span {
	return NewSlabTester(r).Test(b, span)
}
