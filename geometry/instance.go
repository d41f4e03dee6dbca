package geometry

import (
	"math/rand"

	"row-major.net/harpoon/aabox"
	"row-major.net/harpoon/affinetransform"
	"row-major.net/harpoon/hit"
	"row-major.net/harpoon/ray"
	"row-major.net/harpoon/vmath/mat33"
	"row-major.net/harpoon/vmath/vec3"
)

// Transformed places an object, modeled in its own frame, into the world.
type Transformed struct {
	Object hit.Hittable

	// The transform that takes model space to world space.
	ModelToWorld affinetransform.AffineTransform

	// The transform that takes a ray from world space to model space.
	WorldToModel affinetransform.AffineTransform

	// The linear map that takes normal vectors from model space to world space.
	ModelToWorldNormals mat33.T
}

func NewTransformed(obj hit.Hittable, modelToWorld affinetransform.AffineTransform) *Transformed {
	return &Transformed{
		Object:              obj,
		ModelToWorld:        modelToWorld,
		WorldToModel:        modelToWorld.Invert(),
		ModelToWorldNormals: modelToWorld.NormalTransformMat(),
	}
}

// Translate moves obj by offset.
func Translate(obj hit.Hittable, offset vec3.T) *Transformed {
	return NewTransformed(obj, affinetransform.Translate(offset))
}

// Rotate turns obj about a world axis through the origin.
func Rotate(obj hit.Hittable, axis int, degrees float64) *Transformed {
	return NewTransformed(obj, affinetransform.Rotate(axis, degrees))
}

func (x *Transformed) Bounds(time0, time1 float64) aabox.AABox {
	b := x.Object.Bounds(time0, time1)
	if b.IsEmpty() {
		return b
	}
	return b.Transform(x.ModelToWorld)
}

func (x *Transformed) RayHit(r ray.Ray, span ray.Span, rng *rand.Rand) (hit.Record, bool) {
	mdlRay := r.Transform(x.WorldToModel)

	rec, ok := x.Object.RayHit(mdlRay, span, rng)
	if !ok {
		return hit.Record{}, false
	}

	// The ray parameter is shared between frames, so T carries over.  The
	// inverse transpose preserves the sign of N against the ray, so FrontFace
	// does too.
	rec.P = affinetransform.TransformPoint(x.ModelToWorld, rec.P)
	if n, ok := vec3.NormalizeOK(mat33.MulMV(x.ModelToWorldNormals, rec.N)); ok {
		rec.N = n
	}
	return rec, true
}

func (x *Transformed) Materials() []hit.Material {
	return hit.Materials(x.Object)
}

// FlipFace turns an object inside out: the side it considers outward is
// swapped.  Normals still face the incoming ray.
type FlipFace struct {
	Object hit.Hittable
}

func (f *FlipFace) Bounds(time0, time1 float64) aabox.AABox {
	return f.Object.Bounds(time0, time1)
}

func (f *FlipFace) RayHit(r ray.Ray, span ray.Span, rng *rand.Rand) (hit.Record, bool) {
	rec, ok := f.Object.RayHit(r, span, rng)
	if !ok {
		return hit.Record{}, false
	}
	rec.FrontFace = !rec.FrontFace
	return rec, true
}

func (f *FlipFace) Materials() []hit.Material {
	return hit.Materials(f.Object)
}
