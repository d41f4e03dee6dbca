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

// Sphere is a stationary sphere.
type Sphere struct {
	Center   vec3.T
	Radius   float64
	Material hit.Material
}

func NewSphere(center vec3.T, radius float64, m hit.Material) *Sphere {
	return &Sphere{
		Center:   center,
		Radius:   math.Abs(radius),
		Material: m,
	}
}

func (s *Sphere) Bounds(time0, time1 float64) aabox.AABox {
	rv := vec3.T{s.Radius, s.Radius, s.Radius}
	return aabox.FromPoints(vec3.SubVV(s.Center, rv), vec3.AddVV(s.Center, rv))
}

func (s *Sphere) RayHit(r ray.Ray, span ray.Span, rng *rand.Rand) (hit.Record, bool) {
	return sphereHit(s.Center, s.Radius, s.Material, r, span)
}

func (s *Sphere) Materials() []hit.Material {
	return []hit.Material{s.Material}
}

// MovingSphere moves linearly from Center0 at Time0 to Center1 at Time1.
type MovingSphere struct {
	Center0, Center1 vec3.T
	Time0, Time1     float64
	Radius           float64
	Material         hit.Material
}

func NewMovingSphere(center0, center1 vec3.T, time0, time1, radius float64, m hit.Material) *MovingSphere {
	return &MovingSphere{
		Center0:  center0,
		Center1:  center1,
		Time0:    time0,
		Time1:    time1,
		Radius:   math.Abs(radius),
		Material: m,
	}
}

func (s *MovingSphere) Center(time float64) vec3.T {
	if s.Time1 == s.Time0 {
		return s.Center0
	}
	return vec3.Lerp((time-s.Time0)/(s.Time1-s.Time0), s.Center0, s.Center1)
}

func (s *MovingSphere) Bounds(time0, time1 float64) aabox.AABox {
	rv := vec3.T{s.Radius, s.Radius, s.Radius}
	c0 := s.Center(time0)
	c1 := s.Center(time1)
	return aabox.MinContainingAABox(
		aabox.FromPoints(vec3.SubVV(c0, rv), vec3.AddVV(c0, rv)),
		aabox.FromPoints(vec3.SubVV(c1, rv), vec3.AddVV(c1, rv)),
	)
}

func (s *MovingSphere) RayHit(r ray.Ray, span ray.Span, rng *rand.Rand) (hit.Record, bool) {
	return sphereHit(s.Center(r.Time), s.Radius, s.Material, r, span)
}

func (s *MovingSphere) Materials() []hit.Material {
	return []hit.Material{s.Material}
}

// sphereHit reports no hit for a sphere without a positive radius; it would
// have no well defined normal.
func sphereHit(center vec3.T, radius float64, m hit.Material, r ray.Ray, span ray.Span) (hit.Record, bool) {
	if !(radius > 0) {
		return hit.Record{}, false
	}
	oc := vec3.SubVV(center, r.Point)
	a := r.Slope.NormSquared()
	if a == 0 {
		return hit.Record{}, false
	}
	h := vec3.IProd(r.Slope, oc)
	c := oc.NormSquared() - radius*radius

	discriminant := h*h - a*c
	if discriminant < 0 {
		return hit.Record{}, false
	}
	sqrtd := math.Sqrt(discriminant)

	// Take the nearer root that lies in the acceptable range.
	root := (h - sqrtd) / a
	if !span.Surrounds(root) {
		root = (h + sqrtd) / a
		if !span.Surrounds(root) {
			return hit.Record{}, false
		}
	}

	rec := hit.Record{
		T:        root,
		P:        r.Eval(root),
		Material: m,
	}
	outward := vec3.DivVS(vec3.SubVV(rec.P, center), radius)
	rec.SetFaceNormal(r, outward)
	rec.UV = sphereUV(outward)
	return rec, true
}

// sphereUV maps a point on the unit sphere to u in [0,1] (angle around Y from
// X=-1) and v in [0,1] (angle from Y=-1 to Y=+1).
func sphereUV(p vec3.T) vec2.T {
	theta := math.Acos(math.Max(-1, math.Min(1, -p[1])))
	phi := math.Atan2(-p[2], p[0]) + math.Pi
	return vec2.T{phi / (2 * math.Pi), theta / math.Pi}
}

const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
)

// rectThickness pads a rect's box along its fixed axis.
const rectThickness = 0.0001

// Rect is an axis-aligned rectangle lying in the plane where the Axis
// coordinate equals K.  It spans [A0, A1] on its first free axis and [B0, B1]
// on its second; the free axes are (X, Y) for Z, (X, Z) for Y, and (Y, Z) for
// X.  Its outward normal points along +Axis.
type Rect struct {
	Axis           int
	A0, A1, B0, B1 float64
	K              float64
	Material       hit.Material
}

func NewXYRect(x0, x1, y0, y1, k float64, m hit.Material) *Rect {
	return &Rect{Axis: AxisZ, A0: x0, A1: x1, B0: y0, B1: y1, K: k, Material: m}
}

func NewXZRect(x0, x1, z0, z1, k float64, m hit.Material) *Rect {
	return &Rect{Axis: AxisY, A0: x0, A1: x1, B0: z0, B1: z1, K: k, Material: m}
}

func NewYZRect(y0, y1, z0, z1, k float64, m hit.Material) *Rect {
	return &Rect{Axis: AxisX, A0: y0, A1: y1, B0: z0, B1: z1, K: k, Material: m}
}

func (rc *Rect) freeAxes() (int, int) {
	switch rc.Axis {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisX, AxisZ
	default:
		return AxisX, AxisY
	}
}

func (rc *Rect) Bounds(time0, time1 float64) aabox.AABox {
	a, b := rc.freeAxes()
	lo, hi := vec3.T{}, vec3.T{}
	lo[a], hi[a] = rc.A0, rc.A1
	lo[b], hi[b] = rc.B0, rc.B1
	lo[rc.Axis], hi[rc.Axis] = rc.K, rc.K
	return aabox.FromPoints(lo, hi).Pad(rectThickness)
}

func (rc *Rect) RayHit(r ray.Ray, span ray.Span, rng *rand.Rand) (hit.Record, bool) {
	// A rect with no area has no well defined UV.
	if !(rc.A1 > rc.A0) || !(rc.B1 > rc.B0) {
		return hit.Record{}, false
	}

	k := rc.Axis
	if math.Abs(r.Slope[k]) < 1e-8 {
		return hit.Record{}, false
	}

	t := (rc.K - r.Point[k]) / r.Slope[k]
	if !span.Surrounds(t) {
		return hit.Record{}, false
	}

	a, b := rc.freeAxes()
	p := r.Eval(t)
	if p[a] < rc.A0 || p[a] > rc.A1 || p[b] < rc.B0 || p[b] > rc.B1 {
		return hit.Record{}, false
	}

	rec := hit.Record{
		T: t,
		P: p,
		UV: vec2.T{
			(p[a] - rc.A0) / (rc.A1 - rc.A0),
			(p[b] - rc.B0) / (rc.B1 - rc.B0),
		},
		Material: rc.Material,
	}
	// Land exactly on the plane, rounding in Eval notwithstanding.
	rec.P[k] = rc.K

	outward := vec3.T{}
	outward[k] = 1
	rec.SetFaceNormal(r, outward)
	return rec, true
}

func (rc *Rect) Materials() []hit.Material {
	return []hit.Material{rc.Material}
}

// Box is a closed axis-aligned box made of six rects, with outward facing
// normals on every side.
type Box struct {
	Min, Max vec3.T
	sides    hit.List
}

func NewBox(p0, p1 vec3.T, m hit.Material) *Box {
	bb := aabox.FromPoints(p0, p1)
	lo, hi := bb.Min(), bb.Max()

	return &Box{
		Min: lo,
		Max: hi,
		sides: hit.List{
			NewXYRect(lo[0], hi[0], lo[1], hi[1], hi[2], m),
			&FlipFace{Object: NewXYRect(lo[0], hi[0], lo[1], hi[1], lo[2], m)},
			NewXZRect(lo[0], hi[0], lo[2], hi[2], hi[1], m),
			&FlipFace{Object: NewXZRect(lo[0], hi[0], lo[2], hi[2], lo[1], m)},
			NewYZRect(lo[1], hi[1], lo[2], hi[2], hi[0], m),
			&FlipFace{Object: NewYZRect(lo[1], hi[1], lo[2], hi[2], lo[0], m)},
		},
	}
}

func (bx *Box) Bounds(time0, time1 float64) aabox.AABox {
	return aabox.FromPoints(bx.Min, bx.Max).Pad(rectThickness)
}

func (bx *Box) RayHit(r ray.Ray, span ray.Span, rng *rand.Rand) (hit.Record, bool) {
	return bx.sides.RayHit(r, span, rng)
}

func (bx *Box) Materials() []hit.Material {
	return bx.sides.Materials()
}
