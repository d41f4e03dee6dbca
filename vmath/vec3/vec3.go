package vec3

import (
	"math"
	"math/rand"
)

// T is used interchangeably as a point, a direction, and an RGB color.
type T [3]float64

func (v T) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func (v T) NormSquared() float64 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

// NearZero reports whether every component is within 1e-8 of zero.
func (v T) NearZero() bool {
	const s = 1e-8
	return math.Abs(v[0]) < s && math.Abs(v[1]) < s && math.Abs(v[2]) < s
}

// NormalizeOK scales v to unit length.  A zero-length (or non-finite) input
// has no direction; the zero vector and false are returned for it.
func NormalizeOK(v T) (T, bool) {
	l := v.Norm()
	if l == 0 || math.IsInf(l, 0) || math.IsNaN(l) {
		return T{}, false
	}
	return T{
		v[0] / l,
		v[1] / l,
		v[2] / l,
	}, true
}

// Normalize is NormalizeOK without the flag.
func Normalize(v T) T {
	n, _ := NormalizeOK(v)
	return n
}

func AddVV(a, b T) T {
	return T{
		a[0] + b[0],
		a[1] + b[1],
		a[2] + b[2],
	}
}

func SubVV(a, b T) T {
	return T{
		a[0] - b[0],
		a[1] - b[1],
		a[2] - b[2],
	}
}

// MulVV is the elementwise product, used to attenuate colors.
func MulVV(a, b T) T {
	return T{
		a[0] * b[0],
		a[1] * b[1],
		a[2] * b[2],
	}
}

func MulVS(a T, b float64) T {
	return T{
		a[0] * b,
		a[1] * b,
		a[2] * b,
	}
}

func DivVS(a T, b float64) T {
	return T{
		a[0] / b,
		a[1] / b,
		a[2] / b,
	}
}

func Neg(a T) T {
	return T{-a[0], -a[1], -a[2]}
}

func IProd(a, b T) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func CProd(a, b T) T {
	return T{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Lerp blends from a (t=0) to b (t=1).
func Lerp(t float64, a, b T) T {
	return AddVV(MulVS(a, 1-t), MulVS(b, t))
}

func Reflect(a, n T) T {
	return SubVV(a, MulVS(n, 2*IProd(a, n)))
}

// Refract bends the unit vector uv through a surface with unit normal n facing
// against uv.  etaRatio is the ratio of the incident index over the
// transmitted index.  The caller is responsible for detecting total internal
// reflection beforehand.
func Refract(uv, n T, etaRatio float64) T {
	cosTheta := math.Min(-IProd(uv, n), 1.0)
	perp := MulVS(AddVV(uv, MulVS(n, cosTheta)), etaRatio)
	parallel := MulVS(n, -math.Sqrt(math.Abs(1.0-perp.NormSquared())))
	return AddVV(perp, parallel)
}

func RandomInRange(lo, hi float64, rng *rand.Rand) T {
	return T{
		lo + (hi-lo)*rng.Float64(),
		lo + (hi-lo)*rng.Float64(),
		lo + (hi-lo)*rng.Float64(),
	}
}

// UnitBallDistribution returns a point uniformly distributed inside the unit
// ball.
func UnitBallDistribution(rng *rand.Rand) T {
	result := T{}
	for {
		result[0] = 2 * (rng.Float64() - 0.5)
		result[1] = 2 * (rng.Float64() - 0.5)
		result[2] = 2 * (rng.Float64() - 0.5)
		if result.NormSquared() < 1.0 {
			return result
		}
	}
}

// UniformUnitDistribution returns a direction uniformly distributed on the
// unit sphere.
func UniformUnitDistribution(rng *rand.Rand) T {
	result := T{}
	for {
		result[0] = 2 * (rng.Float64() - 0.5)
		result[1] = 2 * (rng.Float64() - 0.5)
		result[2] = 2 * (rng.Float64() - 0.5)
		normSquared := result.NormSquared()
		// Tiny candidates lose too much precision when normalized.
		if normSquared <= 1.0 && normSquared > 1e-160 {
			break
		}
	}
	return Normalize(result)
}

// UnitDiskDistribution returns a point uniformly distributed in the unit disk
// of the z=0 plane.
func UnitDiskDistribution(rng *rand.Rand) T {
	for {
		p := T{2*rng.Float64() - 1, 2*rng.Float64() - 1, 0}
		if p.NormSquared() < 1.0 {
			return p
		}
	}
}

func HemisphereUnitVec3Distribution(normal T, rng *rand.Rand) T {
	candidate := UniformUnitDistribution(rng)
	if IProd(candidate, normal) < 0.0 {
		candidate = Neg(candidate)
	}
	return candidate
}

// CosineUnitVec3Distribution returns a direction in the hemisphere around the
// unit vector normal, with density proportional to the cosine against normal.
// Offsetting a point on the unit sphere by the normal gives that density
// directly; the degenerate antipodal case falls back to the normal.
func CosineUnitVec3Distribution(normal T, rng *rand.Rand) T {
	dir, ok := NormalizeOK(AddVV(normal, UniformUnitDistribution(rng)))
	if !ok || dir.NearZero() {
		return normal
	}
	return dir
}
