package geometry

import (
	"math"
	"math/rand"

	"row-major.net/harpoon/aabox"
	"row-major.net/harpoon/hit"
	"row-major.net/harpoon/ray"
	"row-major.net/harpoon/vmath/vec2"
	"row-major.net/harpoon/vmath/vec3"
)

// planar holds the plane of a figure spanned by edges U and V from corner Q,
// and the vector W that maps a point in the plane to its (alpha, beta)
// coordinates along U and V.
type planar struct {
	Q, U, V vec3.T

	normal vec3.T
	d      float64
	w      vec3.T

	// degenerate is set when U and V are parallel or zero.
	degenerate bool
}

func newPlanar(q, u, v vec3.T) planar {
	p := planar{Q: q, U: u, V: v}
	n := vec3.CProd(u, v)
	normal, ok := vec3.NormalizeOK(n)
	if !ok {
		p.degenerate = true
		return p
	}
	p.normal = normal
	p.d = vec3.IProd(normal, q)
	p.w = vec3.DivVS(n, n.NormSquared())
	return p
}

func (p *planar) bounds() aabox.AABox {
	return aabox.MinContainingAABox(
		aabox.FromPoints(p.Q, vec3.AddVV(vec3.AddVV(p.Q, p.U), p.V)),
		aabox.FromPoints(vec3.AddVV(p.Q, p.U), vec3.AddVV(p.Q, p.V)),
	).Pad(rectThickness)
}

// planeHit intersects r with the plane and returns the hit parameter and the
// plane coordinates of the hit point.
func (p *planar) planeHit(r ray.Ray, span ray.Span) (t float64, point vec3.T, alpha, beta float64, ok bool) {
	if p.degenerate {
		return 0, vec3.T{}, 0, 0, false
	}

	denom := vec3.IProd(p.normal, r.Slope)
	if math.Abs(denom) < 1e-8 {
		return 0, vec3.T{}, 0, 0, false
	}

	t = (p.d - vec3.IProd(p.normal, r.Point)) / denom
	if !span.Surrounds(t) {
		return 0, vec3.T{}, 0, 0, false
	}

	point = r.Eval(t)
	rel := vec3.SubVV(point, p.Q)
	alpha = vec3.IProd(p.w, vec3.CProd(rel, p.V))
	beta = vec3.IProd(p.w, vec3.CProd(p.U, rel))
	return t, point, alpha, beta, true
}

func (p *planar) record(r ray.Ray, t float64, point vec3.T, alpha, beta float64, m hit.Material) hit.Record {
	rec := hit.Record{
		T:        t,
		P:        point,
		UV:       vec2.T{alpha, beta},
		Material: m,
	}
	rec.SetFaceNormal(r, p.normal)
	return rec
}

// Quad is a parallelogram with corner Q and edges U and V.  Its outward
// normal is along U x V, and UV runs from (0, 0) at Q to (1, 1) at Q+U+V.
type Quad struct {
	planar
	Material hit.Material
}

func NewQuad(q, u, v vec3.T, m hit.Material) *Quad {
	return &Quad{planar: newPlanar(q, u, v), Material: m}
}

func (qd *Quad) Bounds(time0, time1 float64) aabox.AABox {
	return qd.bounds()
}

func (qd *Quad) RayHit(r ray.Ray, span ray.Span, rng *rand.Rand) (hit.Record, bool) {
	t, p, alpha, beta, ok := qd.planeHit(r, span)
	if !ok {
		return hit.Record{}, false
	}
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return hit.Record{}, false
	}
	return qd.record(r, t, p, alpha, beta, qd.Material), true
}

func (qd *Quad) Materials() []hit.Material {
	return []hit.Material{qd.Material}
}

// Triangle has corners Q, Q+U and Q+V.  Hits exactly on an edge are misses.
type Triangle struct {
	planar
	Material hit.Material
}

func NewTriangle(q, u, v vec3.T, m hit.Material) *Triangle {
	return &Triangle{planar: newPlanar(q, u, v), Material: m}
}

func (tr *Triangle) Bounds(time0, time1 float64) aabox.AABox {
	return tr.bounds()
}

func (tr *Triangle) RayHit(r ray.Ray, span ray.Span, rng *rand.Rand) (hit.Record, bool) {
	t, p, alpha, beta, ok := tr.planeHit(r, span)
	if !ok {
		return hit.Record{}, false
	}
	if alpha <= 0 || beta <= 0 || alpha+beta >= 1 {
		return hit.Record{}, false
	}
	return tr.record(r, t, p, alpha, beta, tr.Material), true
}

func (tr *Triangle) Materials() []hit.Material {
	return []hit.Material{tr.Material}
}
