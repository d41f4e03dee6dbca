package mat33

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"row-major.net/harpoon/vmath/vec3"
)

var approx = cmpopts.EquateApprox(0, 1e-12)

func TestRotationInverseIsTranspose(t *testing.T) {
	for axis := 0; axis < 3; axis++ {
		r := Rotation(axis, 37)
		if diff := cmp.Diff(Inverse(r), Transpose(r), approx); diff != "" {
			t.Errorf("axis %d: inverse differs from transpose; diff (-got +want)\n%s", axis, diff)
		}
	}
}

func TestInverse(t *testing.T) {
	// Needs pivoting: the top-left entry is zero.
	m := T{
		0, 2, 1,
		1, 0, 3,
		4, 1, 0,
	}
	if diff := cmp.Diff(MulMM(m, Inverse(m)), Identity(), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("m * inverse(m) is not the identity; diff (-got +want)\n%s", diff)
	}
}

func TestRotationDirection(t *testing.T) {
	got := MulMV(Rotation(2, 90), vec3.T{1, 0, 0})
	if diff := cmp.Diff(got, vec3.T{0, 1, 0}, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Rotating x by 90 degrees about z; diff (-got +want)\n%s", diff)
	}
}
