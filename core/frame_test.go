package core

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/num/quat"
)

const eps = 1e-9

func vecNear(a, b Vec3, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

func TestSensorFrame_IdentityByDefault(t *testing.T) {
	f := NewSensorFrame()
	v := Vec3{X: 1, Y: -2, Z: 3}
	if got := f.ToSensorFrame(v); !vecNear(got, v, eps) {
		t.Fatalf("identity frame: got %+v, want %+v", got, v)
	}
}

func TestSensorFrame_ExplicitIdentityMount(t *testing.T) {
	f := NewSensorFrame()
	if err := f.ConfigureFromStrings("0 0 0 1", "0 0 0"); err != nil {
		t.Fatalf("ConfigureFromStrings: %v", err)
	}
	v := Vec3{X: 1, Y: 2, Z: 3}
	if got := f.ToSensorFrame(v); !vecNear(got, v, eps) {
		t.Fatalf("got %+v, want %+v", got, v)
	}
}

func TestSensorFrame_TranslationOnly(t *testing.T) {
	f := NewSensorFrame()
	if err := f.ConfigureFromStrings("0 0 0 1", "1 2 3"); err != nil {
		t.Fatalf("ConfigureFromStrings: %v", err)
	}
	got := f.ToSensorFrame(Vec3{X: 1, Y: 2, Z: 13})
	if want := (Vec3{Z: 10}); !vecNear(got, want, eps) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSensorFrame_RotationAboutZ(t *testing.T) {
	// 90 degrees about z; the inverse rotation takes body +y to sensor +x.
	s := math.Sqrt2 / 2
	f := NewSensorFrame()
	f.Configure(quat.Number{Real: s, Kmag: s}, Vec3{})

	got := f.ToSensorFrame(Vec3{Y: 1})
	if want := (Vec3{X: 1}); !vecNear(got, want, eps) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSensorFrame_TranslationBeforeRotation(t *testing.T) {
	f := NewSensorFrame()
	if err := f.ConfigureFromStrings("0 0 0.7071067811865476 0.7071067811865476", "0 0 5"); err != nil {
		t.Fatalf("ConfigureFromStrings: %v", err)
	}
	got := f.ToSensorFrame(Vec3{Y: 1, Z: 5})
	if want := (Vec3{X: 1}); !vecNear(got, want, 1e-9) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSensorFrame_RotationPreservesNorm(t *testing.T) {
	f := NewSensorFrame()
	f.Configure(quat.Number{Real: 0.3, Imag: -0.5, Jmag: 0.7, Kmag: 0.1}, Vec3{})
	for _, v := range []Vec3{{X: 1}, {X: 3, Y: -4, Z: 12}, {X: -0.25, Y: 7, Z: 2}} {
		got := f.ToSensorFrame(v)
		if math.Abs(got.Norm()-v.Norm()) > 1e-9 {
			t.Errorf("norm of %+v changed: %v -> %v", v, v.Norm(), got.Norm())
		}
	}
}

func TestSensorFrame_UnnormalisedQuaternionIsNormalised(t *testing.T) {
	a, b := NewSensorFrame(), NewSensorFrame()
	a.Configure(quat.Number{Real: 1, Kmag: 1}, Vec3{})
	b.Configure(quat.Number{Real: 10, Kmag: 10}, Vec3{})
	v := Vec3{X: 2, Y: 1, Z: 3}
	if ga, gb := a.ToSensorFrame(v), b.ToSensorFrame(v); !vecNear(ga, gb, eps) {
		t.Fatalf("scaled quaternion changed result: %+v vs %+v", ga, gb)
	}
}

func TestSensorFrame_HomogeneousInputDropsW(t *testing.T) {
	f := NewSensorFrame()
	if err := f.ConfigureFromStrings("0 0 0 1", "1 0 0"); err != nil {
		t.Fatalf("ConfigureFromStrings: %v", err)
	}
	// w = 0 is a direction: translation does not apply.
	got := f.ToSensorFrameHomogeneous([4]float64{1, 0, 0, 0})
	if want := (Vec3{X: 1}); !vecNear(got, want, eps) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSensorFrame_ParseErrors(t *testing.T) {
	cases := []struct {
		name    string
		q, p    string
		field   string
		wantErr error
	}{
		{"short quaternion", "0 0 1", "0 0 0", "quaternion", ErrTokenCount},
		{"long position", "0 0 0 1", "0 0 0 0", "position", ErrTokenCount},
		{"empty position", "0 0 0 1", "", "position", ErrTokenCount},
		{"bad token", "0 0 x 1", "0 0 0", "quaternion", ErrInvalidToken},
		{"nan token", "0 0 0 1", "0 NaN 0", "position", ErrInvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewSensorFrame()
			if err := f.ConfigureFromStrings("0 0 0 1", "0 0 1"); err != nil {
				t.Fatalf("initial configure: %v", err)
			}
			err := f.ConfigureFromStrings(tc.q, tc.p)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
			var pe *ParseError
			if !errors.As(err, &pe) || pe.Field != tc.field {
				t.Fatalf("error = %#v, want ParseError for %s", err, tc.field)
			}
			// The previous transform survives a failed reconfiguration.
			got := f.ToSensorFrame(Vec3{Z: 1})
			if !vecNear(got, Vec3{}, eps) {
				t.Fatalf("transform changed after failed configure: %+v", got)
			}
		})
	}
}

func TestParseRigidTransform_ExtraWhitespace(t *testing.T) {
	tr, err := ParseRigidTransform("  0\t0 0   1 ", "1  2 3")
	if err != nil {
		t.Fatalf("ParseRigidTransform: %v", err)
	}
	out := tr.Apply([4]float64{1, 2, 3, 1})
	if out != [4]float64{0, 0, 0, 1} {
		t.Fatalf("Apply = %v", out)
	}
}

func TestRigidTransform_MatrixIsCopy(t *testing.T) {
	tr := IdentityTransform()
	m := tr.Matrix()
	m.Set(0, 3, 42)
	if got := tr.Apply([4]float64{0, 0, 0, 1}); got[0] != 0 {
		t.Fatalf("mutating Matrix() leaked into transform: %v", got)
	}
	var zero RigidTransform
	if got := zero.Apply([4]float64{1, 2, 3, 1}); got != [4]float64{1, 2, 3, 1} {
		t.Fatalf("zero transform Apply = %v", got)
	}
}
