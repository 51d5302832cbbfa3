package core

import (
	"errors"
	"math"
)

var (
	// ErrBehindSensor is returned by ComputeViewingAngles when the vector
	// does not point in front of the sensor plane (z <= 0).
	ErrBehindSensor = errors.New("vector is behind the sensor plane")
	// ErrNonFiniteVector is returned for vectors with NaN or Inf components.
	ErrNonFiniteVector = errors.New("vector has non-finite components")
)

// FOVSpec holds the full angular extents (radians) of a rectangular field of
// view and the maximum range. Values are stored verbatim.
type FOVSpec struct {
	Horizontal float64
	Vertical   float64
	MaxRange   float64
}

// ViewingAngles are the angles of a sensor-frame vector from the boresight
// (z) axis, projected into the x-z plane (Horizontal) and y-z plane
// (Vertical).
type ViewingAngles struct {
	Horizontal float64
	Vertical   float64
}

// RangePolicy decides whether a target at the given angles and distance is
// within range. It lets a sensor model angle-dependent range, e.g. reduced
// reach at the edge of the FOV.
type RangePolicy func(angles ViewingAngles, distance float64) bool

// FOVSensor combines a SensorFrame with a field of view and range limit.
// Concrete sensor variants embed it and supply the measurement model.
type FOVSensor struct {
	*SensorFrame

	fov         FOVSpec
	rangePolicy RangePolicy
}

// FOVOption customises an FOVSensor.
type FOVOption func(*FOVSensor)

// WithRangePolicy overrides the default distance <= max_range test.
func WithRangePolicy(p RangePolicy) FOVOption {
	return func(s *FOVSensor) {
		s.rangePolicy = p
	}
}

// NewFOVSensor returns a sensor with the identity mount and a zero FOV.
func NewFOVSensor(opts ...FOVOption) *FOVSensor {
	s := &FOVSensor{SensorFrame: NewSensorFrame()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConfigureFOV stores the FOV extents and range limit without validation.
func (s *FOVSensor) ConfigureFOV(horizontal, vertical, maxRange float64) {
	s.fov = FOVSpec{Horizontal: horizontal, Vertical: vertical, MaxRange: maxRange}
}

// FOV returns the configured field of view.
func (s *FOVSensor) FOV() FOVSpec {
	return s.fov
}

// Frame returns the sensor's frame model.
func (s *FOVSensor) Frame() *SensorFrame {
	return s.SensorFrame
}

// WrapBoresightAngle folds an angle above +π/2 back by π. Angles below
// -π/2 pass through unchanged: only the positive overflow is corrected.
func WrapBoresightAngle(a float64) float64 {
	if a > math.Pi/2 {
		return a - math.Pi
	}
	return a
}

// ComputeViewingAngles returns the boresight angles of a sensor-frame
// vector. The angles are always computed (with WrapBoresightAngle applied);
// the error is non-nil when they do not describe a forward-looking
// direction.
func ComputeViewingAngles(v Vec3) (ViewingAngles, error) {
	angles := ViewingAngles{
		Horizontal: WrapBoresightAngle(math.Atan2(v.X, v.Z)),
		Vertical:   WrapBoresightAngle(math.Atan2(v.Y, v.Z)),
	}
	if !v.IsFinite() {
		return angles, ErrNonFiniteVector
	}
	if v.Z <= 0 {
		return angles, ErrBehindSensor
	}
	return angles, nil
}

// IsWithinRange applies the range policy. The default ignores the angles.
func (s *FOVSensor) IsWithinRange(angles ViewingAngles, distance float64) bool {
	if s.rangePolicy != nil {
		return s.rangePolicy(angles, distance)
	}
	return distance <= s.fov.MaxRange
}

// IsWithinFOV reports whether both angles lie inside half the extents.
func (s *FOVSensor) IsWithinFOV(angles ViewingAngles) bool {
	return math.Abs(angles.Horizontal) <= s.fov.Horizontal/2 &&
		math.Abs(angles.Vertical) <= s.fov.Vertical/2
}

// Visibility evaluates v as given: no frame conversion is applied, and the
// distance is the norm of v itself. Callers pass a vector in the frame the
// FOV is defined in.
func (s *FOVSensor) Visibility(v Vec3) VisibilityResult {
	angles, err := ComputeViewingAngles(v)
	res := VisibilityResult{Angles: angles, Distance: v.Norm()}
	switch {
	case err != nil:
		res.Status = VisibilityDegenerate
	case !s.IsWithinRange(angles, res.Distance):
		res.Status = VisibilityOutOfRange
	case !s.IsWithinFOV(angles):
		res.Status = VisibilityOutOfFOV
	default:
		res.Status = VisibilityVisible
	}
	return res
}

// IsVisible reports whether v is inside the FOV and range.
func (s *FOVSensor) IsVisible(v Vec3) bool {
	return s.Visibility(v).Visible()
}
