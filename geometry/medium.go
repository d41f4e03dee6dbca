package geometry

import (
	"math"
	"math/rand"

	"row-major.net/harpoon/aabox"
	"row-major.net/harpoon/hit"
	"row-major.net/harpoon/ray"
	"row-major.net/harpoon/vmath/vec3"
)

// ConstantMedium fills a closed boundary with a participating medium of
// uniform density, like smoke or fog.  Phase is the material handed out at
// scattering events, normally material.Isotropic.
type ConstantMedium struct {
	Boundary hit.Hittable
	Density  float64
	Phase    hit.Material
}

func NewConstantMedium(boundary hit.Hittable, density float64, phase hit.Material) *ConstantMedium {
	return &ConstantMedium{
		Boundary: boundary,
		Density:  density,
		Phase:    phase,
	}
}

func (m *ConstantMedium) Bounds(time0, time1 float64) aabox.AABox {
	return m.Boundary.Bounds(time0, time1)
}

// boundaryEpsilon separates the entry hit from the exit query.
const boundaryEpsilon = 0.0001

func (m *ConstantMedium) RayHit(r ray.Ray, span ray.Span, rng *rand.Rand) (hit.Record, bool) {
	if m.Density <= 0 || math.IsInf(m.Density, 0) || math.IsNaN(m.Density) {
		return hit.Record{}, false
	}

	enter, ok := m.Boundary.RayHit(r, ray.UniverseSpan(), rng)
	if !ok {
		return hit.Record{}, false
	}
	exit, ok := m.Boundary.RayHit(r, ray.Span{Lo: enter.T + boundaryEpsilon, Hi: math.Inf(1)}, rng)
	if !ok {
		return hit.Record{}, false
	}

	t0 := math.Max(enter.T, span.Lo)
	t1 := math.Min(exit.T, span.Hi)
	if t0 >= t1 {
		return hit.Record{}, false
	}
	if t0 < 0 {
		t0 = 0
	}

	rayLength := r.Slope.Norm()
	distanceInsideBoundary := (t1 - t0) * rayLength

	// 1-Float64 lies in (0, 1], keeping the logarithm finite.
	hitDistance := -math.Log(1-rng.Float64()) / m.Density
	if hitDistance > distanceInsideBoundary {
		return hit.Record{}, false
	}

	t := t0 + hitDistance/rayLength
	return hit.Record{
		T: t,
		P: r.Eval(t),

		// Isotropic scattering ignores both.
		N:         vec3.T{1, 0, 0},
		FrontFace: true,

		Material: m.Phase,
	}, true
}

// Materials reports only Phase; the boundary's own materials never reach a
// hit record.
func (m *ConstantMedium) Materials() []hit.Material {
	if m.Boundary == nil {
		return []hit.Material{nil}
	}
	return []hit.Material{m.Phase}
}
