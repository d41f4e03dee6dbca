package hit

import (
	"math/rand"

	"row-major.net/harpoon/aabox"
	"row-major.net/harpoon/ray"
	"row-major.net/harpoon/vmath/vec2"
	"row-major.net/harpoon/vmath/vec3"
)

// Record describes one ray/surface intersection.  Records are transient: they
// live for a single shading computation.
type Record struct {
	T  float64
	P  vec3.T
	N  vec3.T
	UV vec2.T

	// FrontFace is set when the ray arrived from the outward side.  N always
	// points against the ray.
	FrontFace bool

	Material Material
}

// SetFaceNormal orients N against the ray.  outward must be unit length.
func (rec *Record) SetFaceNormal(r ray.Ray, outward vec3.T) {
	rec.FrontFace = vec3.IProd(r.Slope, outward) < 0
	if rec.FrontFace {
		rec.N = outward
	} else {
		rec.N = vec3.Neg(outward)
	}
}

// Material decides how light leaves a surface.
type Material interface {
	// Scatter returns the attenuation and the continuation ray, or ok=false if
	// the incoming light is absorbed.
	Scatter(in ray.Ray, rec *Record, rng *rand.Rand) (attenuation vec3.T, scattered ray.Ray, ok bool)

	// Emitted is the light given off by the surface itself.
	Emitted(uv vec2.T, p vec3.T) vec3.T
}

// Hittable is anything a ray can be intersected with.
type Hittable interface {
	// Bounds covers the object for every instant in [time0, time1].
	Bounds(time0, time1 float64) aabox.AABox

	// RayHit returns the nearest intersection with parameter inside span.
	// Participating media draw from rng.
	RayHit(r ray.Ray, span ray.Span, rng *rand.Rand) (Record, bool)
}

// List is an unaccelerated collection of Hittables.  It finds the nearest hit
// by testing every member.
type List []Hittable

func (l List) Bounds(time0, time1 float64) aabox.AABox {
	result := aabox.AccumZeroAABox()
	for _, h := range l {
		result = aabox.MinContainingAABox(result, h.Bounds(time0, time1))
	}
	return result
}

func (l List) RayHit(r ray.Ray, span ray.Span, rng *rand.Rand) (Record, bool) {
	closest := Record{}
	found := false
	for _, h := range l {
		if rec, ok := h.RayHit(r, span, rng); ok {
			span.Hi = rec.T
			closest = rec
			found = true
		}
	}
	return closest, found
}

func (l List) Materials() []Material {
	var ms []Material
	for _, h := range l {
		ms = append(ms, Materials(h)...)
	}
	return ms
}

// MaterialLister is implemented by objects that can report every material
// their hit records may carry.
type MaterialLister interface {
	Materials() []Material
}

// Materials returns the materials o may hand out.  Objects that do not
// implement MaterialLister report none.  A nil object reports a single nil
// material, since nothing it returns could be shaded.
func Materials(o Hittable) []Material {
	if o == nil {
		return []Material{nil}
	}
	if ml, ok := o.(MaterialLister); ok {
		return ml.Materials()
	}
	return nil
}
