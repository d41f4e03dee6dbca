package ray

import (
	"math"

	"row-major.net/harpoon/affinetransform"
	"row-major.net/harpoon/vmath/vec3"
)

// Span is a closed interval of ray parameters (or of coordinates, when used by
// bounding boxes).
type Span struct {
	Lo, Hi float64
}

func NaNSpan() Span {
	return Span{math.NaN(), math.NaN()}
}

// EmptySpan contains nothing, and is the identity for MinContainingSpan.
func EmptySpan() Span {
	return Span{math.Inf(1), math.Inf(-1)}
}

func UniverseSpan() Span {
	return Span{math.Inf(-1), math.Inf(1)}
}

func SpanOverlaps(a, b Span) bool {
	return !(a.Lo > b.Hi || a.Hi <= b.Lo)
}

func MinContainingSpan(a, b Span) Span {
	min := a.Lo
	if b.Lo < a.Lo {
		min = b.Lo
	}

	max := a.Hi
	if b.Hi > a.Hi {
		max = b.Hi
	}

	return Span{min, max}
}

func (s Span) IsFinite() bool {
	return !math.IsInf(s.Lo, 0) && !math.IsInf(s.Hi, 0)
}

func (s Span) IsNaN() bool {
	return math.IsNaN(s.Lo) || math.IsNaN(s.Hi)
}

func (s Span) Size() float64 {
	return s.Hi - s.Lo
}

func (s Span) Contains(x float64) bool {
	return s.Lo <= x && x <= s.Hi
}

// Surrounds is Contains with open ends.
func (s Span) Surrounds(x float64) bool {
	return s.Lo < x && x < s.Hi
}

func (s Span) Clamp(x float64) float64 {
	if x < s.Lo {
		return s.Lo
	}
	if x > s.Hi {
		return s.Hi
	}
	return x
}

// Expand pads both ends by delta/2.
func (s Span) Expand(delta float64) Span {
	return Span{s.Lo - delta/2, s.Hi + delta/2}
}

// Ray is the parametric line Point + t*Slope.  Slope is not required to be of
// unit length.  Time selects the instant within the shutter interval at which
// moving geometry is sampled.
type Ray struct {
	Point vec3.T
	Slope vec3.T
	Time  float64
}

func (r *Ray) Eval(t float64) vec3.T {
	return vec3.T{
		r.Point[0] + t*r.Slope[0],
		r.Point[1] + t*r.Slope[1],
		r.Point[2] + t*r.Slope[2],
	}
}

// Transform maps the ray into another frame.  The slope is deliberately not
// renormalized, so a parameter t names the same physical point in both frames.
func (r *Ray) Transform(a affinetransform.AffineTransform) Ray {
	return Ray{
		Point: affinetransform.TransformPoint(a, r.Point),
		Slope: affinetransform.TransformVector(a, r.Slope),
		Time:  r.Time,
	}
}
