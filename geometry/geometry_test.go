package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"row-major.net/harpoon/hit"
	"row-major.net/harpoon/ray"
	"row-major.net/harpoon/vmath/vec2"
	"row-major.net/harpoon/vmath/vec3"
)

// tagMaterial lets tests tell surfaces apart.
type tagMaterial struct {
	Name string
}

func (m *tagMaterial) Scatter(in ray.Ray, rec *hit.Record, rng *rand.Rand) (vec3.T, ray.Ray, bool) {
	return vec3.T{}, ray.Ray{}, false
}

func (m *tagMaterial) Emitted(uv vec2.T, p vec3.T) vec3.T {
	return vec3.T{}
}

var (
	approx     = cmpopts.EquateApprox(0, 1e-9)
	ignoreUV   = cmpopts.IgnoreFields(hit.Record{}, "UV")
	forward    = ray.Span{Lo: 0.001, Hi: math.Inf(1)}
	testRecord = cmp.Options{approx, ignoreUV}
)

func TestSphereRayHit(t *testing.T) {
	m := &tagMaterial{Name: "sphere"}
	s := NewSphere(vec3.T{0, 0, -5}, 1, m)

	testCases := []struct {
		desc string
		r    ray.Ray
		span ray.Span
		want hit.Record
		miss bool
	}{
		{
			desc: "nearest root from outside",
			r:    ray.Ray{Slope: vec3.T{0, 0, -1}},
			span: forward,
			want: hit.Record{T: 4, P: vec3.T{0, 0, -4}, N: vec3.T{0, 0, 1}, FrontFace: true, Material: m},
		},
		{
			desc: "unnormalized slope",
			r:    ray.Ray{Slope: vec3.T{0, 0, -2}},
			span: forward,
			want: hit.Record{T: 2, P: vec3.T{0, 0, -4}, N: vec3.T{0, 0, 1}, FrontFace: true, Material: m},
		},
		{
			desc: "far root from inside",
			r:    ray.Ray{Point: vec3.T{0, 0, -5}, Slope: vec3.T{0, 0, -1}},
			span: forward,
			want: hit.Record{T: 1, P: vec3.T{0, 0, -6}, N: vec3.T{0, 0, 1}, FrontFace: false, Material: m},
		},
		{
			desc: "near root excluded by span",
			r:    ray.Ray{Slope: vec3.T{0, 0, -1}},
			span: ray.Span{Lo: 4.5, Hi: math.Inf(1)},
			want: hit.Record{T: 6, P: vec3.T{0, 0, -6}, N: vec3.T{0, 0, 1}, FrontFace: false, Material: m},
		},
		{
			desc: "span ends before the sphere",
			r:    ray.Ray{Slope: vec3.T{0, 0, -1}},
			span: ray.Span{Lo: 0.001, Hi: 3.5},
			miss: true,
		},
		{
			desc: "pointing away",
			r:    ray.Ray{Slope: vec3.T{0, 0, 1}},
			span: forward,
			miss: true,
		},
		{
			desc: "passing beside",
			r:    ray.Ray{Point: vec3.T{0, 1.5, 0}, Slope: vec3.T{0, 0, -1}},
			span: forward,
			miss: true,
		},
		{
			desc: "zero slope",
			r:    ray.Ray{},
			span: forward,
			miss: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, ok := s.RayHit(tc.r, tc.span, nil)
			if tc.miss {
				if ok {
					t.Fatalf("Expected a miss, got %+v", got)
				}
				return
			}
			if !ok {
				t.Fatalf("Expected a hit")
			}
			if diff := cmp.Diff(got, tc.want, testRecord); diff != "" {
				t.Errorf("Bad hit record; diff (-got +want)\n%s", diff)
			}
		})
	}
}

func TestSphereUVRange(t *testing.T) {
	s := NewSphere(vec3.T{}, 1, nil)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		dir := vec3.UniformUnitDistribution(rng)
		rec, ok := s.RayHit(ray.Ray{Point: vec3.MulVS(dir, 3), Slope: vec3.Neg(dir)}, forward, rng)
		if !ok {
			t.Fatalf("Ray aimed at the center missed")
		}
		if rec.UV[0] < 0 || rec.UV[0] > 1 || rec.UV[1] < 0 || rec.UV[1] > 1 {
			t.Fatalf("UV %v out of range", rec.UV)
		}
	}

	// The north pole is v=1.
	rec, _ := s.RayHit(ray.Ray{Point: vec3.T{0, 3, 0}, Slope: vec3.T{0, -1, 0}}, forward, rng)
	if math.Abs(rec.UV[1]-1) > 1e-9 {
		t.Errorf("UV at the north pole is %v, want v=1", rec.UV)
	}
}

func TestMovingSphere(t *testing.T) {
	s := NewMovingSphere(vec3.T{0, 0, -5}, vec3.T{0, 2, -5}, 0, 1, 1, nil)

	r := ray.Ray{Point: vec3.T{0, 2, 0}, Slope: vec3.T{0, 0, -1}, Time: 1}
	rec, ok := s.RayHit(r, forward, nil)
	if !ok {
		t.Fatalf("Ray at time 1 missed the moved sphere")
	}
	if diff := cmp.Diff(rec.T, 4.0, approx); diff != "" {
		t.Errorf("Bad T; diff (-got +want)\n%s", diff)
	}

	r.Time = 0
	if _, ok := s.RayHit(r, forward, nil); ok {
		t.Errorf("Ray at time 0 hit the sphere before it moved there")
	}

	got := s.Bounds(0, 1)
	want := NewSphere(vec3.T{0, 0, -5}, 1, nil).Bounds(0, 0)
	want.Y.Hi = 3
	if diff := cmp.Diff(got, want, approx); diff != "" {
		t.Errorf("Bounds do not cover the motion; diff (-got +want)\n%s", diff)
	}
}

func TestRectRayHit(t *testing.T) {
	m := &tagMaterial{Name: "rect"}
	rc := NewXYRect(-1, 1, -1, 1, -2, m)

	got, ok := rc.RayHit(ray.Ray{Point: vec3.T{0.5, 0.5, 0}, Slope: vec3.T{0, 0, -1}}, forward, nil)
	if !ok {
		t.Fatalf("Expected a hit")
	}
	want := hit.Record{
		T:         2,
		P:         vec3.T{0.5, 0.5, -2},
		N:         vec3.T{0, 0, 1},
		UV:        vec2.T{0.75, 0.75},
		FrontFace: true,
		Material:  m,
	}
	if diff := cmp.Diff(got, want, approx); diff != "" {
		t.Errorf("Bad hit record; diff (-got +want)\n%s", diff)
	}

	if _, ok := rc.RayHit(ray.Ray{Point: vec3.T{0, 0, -2}, Slope: vec3.T{1, 0, 0}}, forward, nil); ok {
		t.Errorf("Ray parallel to the rect hit it")
	}
	if _, ok := rc.RayHit(ray.Ray{Point: vec3.T{1.5, 0, 0}, Slope: vec3.T{0, 0, -1}}, forward, nil); ok {
		t.Errorf("Ray outside the rect's extent hit it")
	}

	// From behind, the normal still faces the ray.
	got, ok = rc.RayHit(ray.Ray{Point: vec3.T{0, 0, -4}, Slope: vec3.T{0, 0, 1}}, forward, nil)
	if !ok {
		t.Fatalf("Expected a hit from behind")
	}
	if got.FrontFace || got.N != (vec3.T{0, 0, -1}) {
		t.Errorf("From behind got FrontFace=%v N=%v, want false and (0,0,-1)", got.FrontFace, got.N)
	}
}

func TestRectBoundsArePadded(t *testing.T) {
	b := NewXZRect(0, 1, 0, 1, 3, nil).Bounds(0, 1)
	if b.Y.Size() <= 0 {
		t.Errorf("Rect bounds have no thickness: %+v", b)
	}
}

func TestBoxFacesPointOutward(t *testing.T) {
	bx := NewBox(vec3.T{-1, -1, -1}, vec3.T{1, 1, 1}, nil)

	testCases := []struct {
		desc      string
		r         ray.Ray
		wantT     float64
		wantFront bool
	}{
		{
			desc:      "enter through max z",
			r:         ray.Ray{Point: vec3.T{0, 0, 5}, Slope: vec3.T{0, 0, -1}},
			wantT:     4,
			wantFront: true,
		},
		{
			desc:      "enter through min z",
			r:         ray.Ray{Point: vec3.T{0, 0, -5}, Slope: vec3.T{0, 0, 1}},
			wantT:     4,
			wantFront: true,
		},
		{
			desc:      "enter through min x",
			r:         ray.Ray{Point: vec3.T{-5, 0.2, 0.3}, Slope: vec3.T{1, 0, 0}},
			wantT:     4,
			wantFront: true,
		},
		{
			desc:      "leave through max z",
			r:         ray.Ray{Point: vec3.T{0, 0, 0}, Slope: vec3.T{0, 0, 1}},
			wantT:     1,
			wantFront: false,
		},
		{
			desc:      "leave through min y",
			r:         ray.Ray{Point: vec3.T{0, 0, 0}, Slope: vec3.T{0, -1, 0}},
			wantT:     1,
			wantFront: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, ok := bx.RayHit(tc.r, forward, nil)
			if !ok {
				t.Fatalf("Expected a hit")
			}
			if diff := cmp.Diff(got.T, tc.wantT, approx); diff != "" {
				t.Errorf("Bad T; diff (-got +want)\n%s", diff)
			}
			if got.FrontFace != tc.wantFront {
				t.Errorf("FrontFace = %v, want %v", got.FrontFace, tc.wantFront)
			}
			if vec3.IProd(got.N, tc.r.Slope) >= 0 {
				t.Errorf("Normal %v does not face the ray", got.N)
			}
		})
	}
}

func TestTranslate(t *testing.T) {
	m := &tagMaterial{Name: "moved"}
	obj := Translate(NewSphere(vec3.T{}, 1, m), vec3.T{0, 0, -5})

	got, ok := obj.RayHit(ray.Ray{Slope: vec3.T{0, 0, -1}}, forward, nil)
	if !ok {
		t.Fatalf("Expected a hit")
	}
	want := hit.Record{T: 4, P: vec3.T{0, 0, -4}, N: vec3.T{0, 0, 1}, FrontFace: true, Material: m}
	if diff := cmp.Diff(got, want, testRecord); diff != "" {
		t.Errorf("Bad hit record; diff (-got +want)\n%s", diff)
	}
}

func TestRotate(t *testing.T) {
	// A rect facing +z at z=-2, turned a quarter about y, faces +x at x=-2.
	obj := Rotate(NewXYRect(-1, 1, -1, 1, -2, nil), AxisY, 90)

	got, ok := obj.RayHit(ray.Ray{Slope: vec3.T{-1, 0, 0}}, forward, nil)
	if !ok {
		t.Fatalf("Expected a hit")
	}
	want := hit.Record{T: 2, P: vec3.T{-2, 0, 0}, N: vec3.T{1, 0, 0}, FrontFace: true}
	if diff := cmp.Diff(got, want, testRecord); diff != "" {
		t.Errorf("Bad hit record; diff (-got +want)\n%s", diff)
	}

	if _, ok := obj.RayHit(ray.Ray{Slope: vec3.T{0, 0, -1}}, forward, nil); ok {
		t.Errorf("Ray hit the rect where it used to be")
	}

	b := obj.Bounds(0, 1)
	if !b.X.Contains(-2) || b.X.Size() > 0.001 {
		t.Errorf("Bounds X = %+v, want a thin slab around -2", b.X)
	}
}

func TestFlipFace(t *testing.T) {
	inner := NewSphere(vec3.T{0, 0, -5}, 1, nil)
	r := ray.Ray{Slope: vec3.T{0, 0, -1}}

	plain, _ := inner.RayHit(r, forward, nil)
	flipped, ok := (&FlipFace{Object: inner}).RayHit(r, forward, nil)
	if !ok {
		t.Fatalf("Expected a hit")
	}
	if flipped.FrontFace == plain.FrontFace {
		t.Errorf("FlipFace left FrontFace at %v", flipped.FrontFace)
	}
	if diff := cmp.Diff(flipped.N, plain.N); diff != "" {
		t.Errorf("FlipFace changed the normal; diff (-got +want)\n%s", diff)
	}
}

func TestConstantMedium(t *testing.T) {
	phase := &tagMaterial{Name: "phase"}
	boundary := NewSphere(vec3.T{0, 0, -5}, 1, nil)
	rng := rand.New(rand.NewSource(3))
	r := ray.Ray{Slope: vec3.T{0, 0, -1}}

	for _, density := range []float64{0, -1, math.Inf(1)} {
		if _, ok := NewConstantMedium(boundary, density, phase).RayHit(r, forward, rng); ok {
			t.Errorf("Medium with density %v scattered", density)
		}
	}

	for i := 0; i < 100; i++ {
		if _, ok := NewConstantMedium(boundary, 1e-12, phase).RayHit(r, forward, rng); ok {
			t.Fatalf("Nearly transparent medium scattered")
		}
	}

	thick := NewConstantMedium(boundary, 1e9, phase)
	for i := 0; i < 100; i++ {
		rec, ok := thick.RayHit(r, forward, rng)
		if !ok {
			t.Fatalf("Dense medium let the ray through")
		}
		if rec.T < 4 || rec.T > 4.001 {
			t.Fatalf("Dense medium scattered at T=%v, want just past the boundary at 4", rec.T)
		}
		if rec.Material != hit.Material(phase) {
			t.Fatalf("Scattering event did not carry the phase material")
		}
	}

	// From inside the boundary, scattering starts at the span's low end.
	inside := ray.Ray{Point: vec3.T{0, 0, -5}, Slope: vec3.T{0, 0, -1}}
	rec, ok := thick.RayHit(inside, forward, rng)
	if !ok {
		t.Fatalf("Dense medium let the ray out")
	}
	if rec.T < forward.Lo || rec.T > 0.01 {
		t.Errorf("Scattered at T=%v from inside, want just past %v", rec.T, forward.Lo)
	}

	if _, ok := thick.RayHit(ray.Ray{Slope: vec3.T{0, 0, 1}}, forward, rng); ok {
		t.Errorf("Medium behind the ray scattered it")
	}
}

func TestDegenerateShapesMiss(t *testing.T) {
	m := &tagMaterial{Name: "degenerate"}
	down := ray.Ray{Slope: vec3.T{0, 0, -1}}

	testCases := []struct {
		desc string
		obj  hit.Hittable
	}{
		{"zero radius sphere", NewSphere(vec3.T{0, 0, -2}, 0, m)},
		{"NaN radius sphere", NewSphere(vec3.T{0, 0, -2}, math.NaN(), m)},
		{"zero radius moving sphere", NewMovingSphere(vec3.T{0, 0, -2}, vec3.T{0, 0, -2}, 0, 1, 0, m)},
		{"rect with no width", NewXYRect(0, 0, -1, 1, -2, m)},
		{"rect with no height", NewXYRect(-1, 1, 0, 0, -2, m)},
		{"reversed rect", NewXYRect(1, -1, -1, 1, -2, m)},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			if got, ok := tc.obj.RayHit(down, forward, nil); ok {
				t.Errorf("Expected a miss, got %+v", got)
			}
		})
	}
}

func TestMaterials(t *testing.T) {
	m := &tagMaterial{Name: "m"}
	phase := &tagMaterial{Name: "phase"}

	testCases := []struct {
		desc string
		obj  hit.Hittable
		want []hit.Material
	}{
		{"sphere", NewSphere(vec3.T{}, 1, m), []hit.Material{m}},
		{"box", NewBox(vec3.T{}, vec3.T{1, 1, 1}, m), []hit.Material{m, m, m, m, m, m}},
		{"rotated quad", Rotate(NewQuad(vec3.T{}, vec3.T{1, 0, 0}, vec3.T{0, 1, 0}, m), AxisX, 10), []hit.Material{m}},
		{"flipped triangle", &FlipFace{Object: NewTriangle(vec3.T{}, vec3.T{1, 0, 0}, vec3.T{0, 1, 0}, m)}, []hit.Material{m}},
		{"medium", NewConstantMedium(NewSphere(vec3.T{}, 1, m), 1, phase), []hit.Material{phase}},
		{"medium without boundary", NewConstantMedium(nil, 1, phase), []hit.Material{nil}},
		{"wrapped nothing", Translate(nil, vec3.T{}), []hit.Material{nil}},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			if diff := cmp.Diff(hit.Materials(tc.obj), tc.want); diff != "" {
				t.Errorf("Bad materials; diff (-got +want)\n%s", diff)
			}
		})
	}
}
