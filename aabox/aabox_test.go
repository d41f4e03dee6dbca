package aabox

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"row-major.net/harpoon/affinetransform"
	"row-major.net/harpoon/ray"
	"row-major.net/harpoon/vmath/vec3"
)

func unitBox() AABox {
	return FromPoints(vec3.T{-1, -1, -1}, vec3.T{1, 1, 1})
}

func TestRayTestAABox(t *testing.T) {
	fwd := ray.Span{Lo: 0, Hi: math.Inf(1)}

	testCases := []struct {
		desc string
		r    ray.Ray
		span ray.Span
		box  AABox
		want ray.Span
		miss bool
	}{
		{
			desc: "straight through",
			r:    ray.Ray{Point: vec3.T{0, 0, -5}, Slope: vec3.T{0, 0, 1}},
			span: fwd,
			box:  unitBox(),
			want: ray.Span{Lo: 4, Hi: 6},
		},
		{
			desc: "diagonal",
			r:    ray.Ray{Point: vec3.T{-3, -3, -3}, Slope: vec3.T{1, 1, 1}},
			span: fwd,
			box:  unitBox(),
			want: ray.Span{Lo: 2, Hi: 4},
		},
		{
			desc: "origin inside",
			r:    ray.Ray{Point: vec3.T{0, 0, 0}, Slope: vec3.T{0, 0, 1}},
			span: fwd,
			box:  unitBox(),
			want: ray.Span{Lo: 0, Hi: 1},
		},
		{
			desc: "pointing away",
			r:    ray.Ray{Point: vec3.T{0, 0, -5}, Slope: vec3.T{0, 0, -1}},
			span: fwd,
			box:  unitBox(),
			miss: true,
		},
		{
			desc: "zero slope outside the slab",
			r:    ray.Ray{Point: vec3.T{0, 5, -5}, Slope: vec3.T{0, 0, 1}},
			span: fwd,
			box:  unitBox(),
			miss: true,
		},
		{
			desc: "zero slope on the slab plane",
			r:    ray.Ray{Point: vec3.T{0, 1, -5}, Slope: vec3.T{0, 0, 1}},
			span: fwd,
			box:  unitBox(),
			want: ray.Span{Lo: 4, Hi: 6},
		},
		{
			desc: "span ends before the box",
			r:    ray.Ray{Point: vec3.T{0, 0, -5}, Slope: vec3.T{0, 0, 1}},
			span: ray.Span{Lo: 0, Hi: 3},
			box:  unitBox(),
			miss: true,
		},
		{
			desc: "empty box",
			r:    ray.Ray{Point: vec3.T{0, 0, 0}, Slope: vec3.T{0, 0, 1}},
			span: ray.UniverseSpan(),
			box:  AccumZeroAABox(),
			miss: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got := RayTestAABox(tc.r, tc.span, tc.box)
			if tc.miss {
				if !got.IsNaN() {
					t.Fatalf("Expected a miss, got %v", got)
				}
				return
			}
			if diff := cmp.Diff(got, tc.want, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("Bad span; diff (-got +want)\n%s", diff)
			}
		})
	}
}

func TestPadThickensFlatBoxes(t *testing.T) {
	flat := FromPoints(vec3.T{0, 0, 2}, vec3.T{1, 1, 2})
	got := flat.Pad(0.0001)
	want := AABox{
		X: ray.Span{Lo: 0, Hi: 1},
		Y: ray.Span{Lo: 0, Hi: 1},
		Z: ray.Span{Lo: 2 - 0.00005, Hi: 2 + 0.00005},
	}
	if diff := cmp.Diff(got, want, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Bad padding; diff (-got +want)\n%s", diff)
	}
}

func TestTransformCoversRotatedCorners(t *testing.T) {
	box := FromPoints(vec3.T{0, 0, 0}, vec3.T{2, 1, 1})
	got := box.Transform(affinetransform.Rotate(2, 90))
	want := FromPoints(vec3.T{-1, 0, 0}, vec3.T{0, 2, 1})
	if diff := cmp.Diff(got, want, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Bad transformed box; diff (-got +want)\n%s", diff)
	}
}

func TestLongestAxisAndCentroid(t *testing.T) {
	box := FromPoints(vec3.T{0, 0, 0}, vec3.T{1, 4, 2})
	if got := box.LongestAxis(); got != 1 {
		t.Errorf("LongestAxis() = %d, want 1", got)
	}
	if diff := cmp.Diff(box.Centroid(), vec3.T{0.5, 2, 1}); diff != "" {
		t.Errorf("Bad centroid; diff (-got +want)\n%s", diff)
	}
}
