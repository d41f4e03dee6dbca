package affinetransform

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"row-major.net/harpoon/vmath/vec3"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestComposeAppliesRightFirst(t *testing.T) {
	tr := Compose(Translate(vec3.T{1, 0, 0}), Rotate(2, 90))

	// Rotate (1, 0, 0) to (0, 1, 0), then move it to (1, 1, 0).
	got := TransformPoint(tr, vec3.T{1, 0, 0})
	if diff := cmp.Diff(got, vec3.T{1, 1, 0}, approx); diff != "" {
		t.Errorf("Bad composed transform; diff (-got +want)\n%s", diff)
	}
}

func TestInvertRoundTrip(t *testing.T) {
	tr := Compose(Translate(vec3.T{3, -2, 7}), Compose(Rotate(1, 33), Scale(2.5)))
	inv := tr.Invert()

	for _, p := range []vec3.T{{0, 0, 0}, {1, 2, 3}, {-5, 0.5, 9}} {
		got := TransformPoint(inv, TransformPoint(tr, p))
		if diff := cmp.Diff(got, p, approx); diff != "" {
			t.Errorf("Round trip of %v; diff (-got +want)\n%s", p, diff)
		}
	}
}

func TestTransformVectorIgnoresOffset(t *testing.T) {
	got := TransformVector(Translate(vec3.T{10, 10, 10}), vec3.T{1, 2, 3})
	if diff := cmp.Diff(got, vec3.T{1, 2, 3}); diff != "" {
		t.Errorf("Translation moved a vector; diff (-got +want)\n%s", diff)
	}
}
