package math

import (
	"math"
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	n := Vec3{3, 0, 4}.Normalize()
	if l := n.Length(); l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Error("zero vector should normalize to zero")
	}
}

func TestVec3Finite(t *testing.T) {
	if !(Vec3{1, 2, 3}).Finite() {
		t.Error("expected finite")
	}
	nan := float32(math.NaN())
	if (Vec3{1, nan, 3}).Finite() {
		t.Error("NaN component should not be finite")
	}
}

func TestRadiansDegrees(t *testing.T) {
	if got := Degrees(Radians(40)); math.Abs(got-40) > 1e-12 {
		t.Errorf("round trip 40 degrees = %v", got)
	}
}
