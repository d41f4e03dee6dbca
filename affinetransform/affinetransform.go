package affinetransform

import (
	"row-major.net/harpoon/vmath/mat33"
	"row-major.net/harpoon/vmath/vec3"
)

// AffineTransform maps x to Linear*x + Offset.
type AffineTransform struct {
	Linear mat33.T
	Offset vec3.T
}

func Identity() AffineTransform {
	return AffineTransform{
		Linear: mat33.Identity(),
		Offset: vec3.T{0.0, 0.0, 0.0},
	}
}

func Scale(s float64) AffineTransform {
	return AffineTransform{
		Linear: mat33.T{s, 0.0, 0.0, 0.0, s, 0.0, 0.0, 0.0, s},
		Offset: vec3.T{0.0, 0.0, 0.0},
	}
}

func Translate(x vec3.T) AffineTransform {
	result := Identity()
	result.Offset = x
	return result
}

// Rotate rotates about the given axis through the origin.
func Rotate(axis int, degrees float64) AffineTransform {
	return AffineTransform{
		Linear: mat33.Rotation(axis, degrees),
	}
}

// Compose returns the transform that applies b, then a.
func Compose(a, b AffineTransform) AffineTransform {
	return AffineTransform{
		Linear: mat33.MulMM(a.Linear, b.Linear),
		Offset: vec3.AddVV(a.Offset, mat33.MulMV(a.Linear, b.Offset)),
	}
}

func (t AffineTransform) Invert() AffineTransform {
	inv := mat33.Inverse(t.Linear)
	return AffineTransform{
		Linear: inv,
		Offset: vec3.Neg(mat33.MulMV(inv, t.Offset)),
	}
}

// NormalTransformMat is the inverse transpose of the linear part, which maps
// surface normals consistently with TransformPoint.
func (t AffineTransform) NormalTransformMat() mat33.T {
	return mat33.Transpose(mat33.Inverse(t.Linear))
}

func TransformPoint(a AffineTransform, b vec3.T) vec3.T {
	return vec3.AddVV(mat33.MulMV(a.Linear, b), a.Offset)
}

func TransformVector(a AffineTransform, b vec3.T) vec3.T {
	return mat33.MulMV(a.Linear, b)
}
