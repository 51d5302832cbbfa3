package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

var (
	// ErrTokenCount is wrapped by ParseError when a list has the wrong length.
	ErrTokenCount = errors.New("unexpected number of values")
	// ErrInvalidToken is wrapped by ParseError when a token is not a float.
	ErrInvalidToken = errors.New("invalid floating-point value")
)

// ParseError reports a malformed quaternion or position string.
type ParseError struct {
	Field string // "quaternion" or "position"
	Text  string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RigidTransform is an immutable 4x4 homogeneous transform mapping
// body-frame coordinates to sensor-frame coordinates.
type RigidTransform struct {
	m *mat.Dense
}

// IdentityTransform returns the transform that leaves every vector unchanged.
func IdentityTransform() RigidTransform {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return RigidTransform{m: m}
}

// NewRigidTransform builds the body->sensor transform from the sensor pose
// expressed in the body frame: q is the body->sensor rotation and p the
// sensor origin. The result is R(q)ᵀ · T(-p), so the translation is undone
// before the rotation is applied.
//
// q is normalised here; a zero quaternion yields the identity rotation. No
// other validation is done.
func NewRigidTransform(q quat.Number, p Vec3) RigidTransform {
	rot := mat.NewDense(4, 4, nil)
	r := rotationMatrix(q)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot.Set(i, j, r[j][i]) // transpose
		}
	}
	rot.Set(3, 3, 1)

	trans := mat.NewDense(4, 4, []float64{
		1, 0, 0, -p.X,
		0, 1, 0, -p.Y,
		0, 0, 1, -p.Z,
		0, 0, 0, 1,
	})

	var m mat.Dense
	m.Mul(rot, trans)
	return RigidTransform{m: &m}
}

// ParseRigidTransform parses quaternion text ("x y z w") and position text
// ("x y z") and builds the transform. Both lists are parsed before anything
// is built, so a failure never yields a half-configured result.
func ParseRigidTransform(quaternionText, positionText string) (RigidTransform, error) {
	qv, err := parseFloats("quaternion", quaternionText, 4)
	if err != nil {
		return RigidTransform{}, err
	}
	pv, err := parseFloats("position", positionText, 3)
	if err != nil {
		return RigidTransform{}, err
	}
	q := quat.Number{Real: qv[3], Imag: qv[0], Jmag: qv[1], Kmag: qv[2]}
	return NewRigidTransform(q, Vec3{X: pv[0], Y: pv[1], Z: pv[2]}), nil
}

// Apply multiplies the transform with a homogeneous vector.
func (t RigidTransform) Apply(h [4]float64) [4]float64 {
	if t.m == nil {
		return h
	}
	in := mat.NewVecDense(4, h[:])
	var out mat.VecDense
	out.MulVec(t.m, in)
	return [4]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2), out.AtVec(3)}
}

// Matrix returns a copy of the underlying 4x4 matrix.
func (t RigidTransform) Matrix() *mat.Dense {
	if t.m == nil {
		return IdentityTransform().m
	}
	return mat.DenseCopyOf(t.m)
}

// rotationMatrix returns the rotation matrix of the normalised quaternion.
func rotationMatrix(q quat.Number) [3][3]float64 {
	n := quat.Abs(q)
	if n < 1e-12 {
		return [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}
	q = quat.Scale(1/n, q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	}
}

func parseFloats(field, text string, want int) ([]float64, error) {
	tokens := strings.Fields(text)
	if len(tokens) != want {
		return nil, &ParseError{
			Field: field,
			Text:  text,
			Err:   fmt.Errorf("%w: got %d, want %d", ErrTokenCount, len(tokens), want),
		}
	}
	out := make([]float64, want)
	for i, tok := range tokens {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &ParseError{
				Field: field,
				Text:  text,
				Err:   fmt.Errorf("%w: %q", ErrInvalidToken, tok),
			}
		}
		out[i] = f
	}
	return out, nil
}

// SensorFrame owns the body->sensor transform of one sensor. Configure
// replaces the transform wholesale; Configure* must not race with
// ToSensorFrame.
type SensorFrame struct {
	transform RigidTransform
}

// NewSensorFrame returns a frame configured with the identity transform.
func NewSensorFrame() *SensorFrame {
	return &SensorFrame{transform: IdentityTransform()}
}

// Configure replaces the transform from a rotation and translation.
func (f *SensorFrame) Configure(q quat.Number, p Vec3) {
	f.transform = NewRigidTransform(q, p)
}

// ConfigureFromStrings parses the mount strings and replaces the transform.
// On error the previous transform is kept.
func (f *SensorFrame) ConfigureFromStrings(quaternionText, positionText string) error {
	t, err := ParseRigidTransform(quaternionText, positionText)
	if err != nil {
		return err
	}
	f.transform = t
	return nil
}

// SetTransform replaces the transform with an already-built one.
func (f *SensorFrame) SetTransform(t RigidTransform) {
	f.transform = t
}

// Transform returns the configured transform.
func (f *SensorFrame) Transform() RigidTransform {
	return f.transform
}

// ToSensorFrame maps a body-frame vector into the sensor frame. Vectors
// behind the sensor are returned as-is; filtering is the caller's job.
func (f *SensorFrame) ToSensorFrame(v Vec3) Vec3 {
	return f.ToSensorFrameHomogeneous(v.Homogeneous())
}

// ToSensorFrameHomogeneous applies the transform to an already-homogeneous
// vector and drops the fourth component.
func (f *SensorFrame) ToSensorFrameHomogeneous(h [4]float64) Vec3 {
	out := f.transform.Apply(h)
	return Vec3{X: out[0], Y: out[1], Z: out[2]}
}
