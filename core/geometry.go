package core

import (
	"math"

	"github.com/signalsfoundry/relnav-sensor-sim/model"
)

// Vec3 is a 3-D position or direction. Frame and unit are fixed by context:
// body-frame vectors come from motion models, sensor-frame vectors come out
// of SensorFrame.ToSensorFrame.
type Vec3 struct {
	X, Y, Z float64
}

// Vec3FromPosition converts a configuration-level position.
func Vec3FromPosition(p model.Position) Vec3 {
	return Vec3{X: p.X, Y: p.Y, Z: p.Z}
}

// Position returns v as a configuration-level position.
func (v Vec3) Position() model.Position {
	return model.Position{X: v.X, Y: v.Y, Z: v.Z}
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// IsFinite reports whether every component is neither NaN nor ±Inf.
func (v Vec3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Homogeneous returns v with a trailing 1.
func (v Vec3) Homogeneous() [4]float64 {
	return [4]float64{v.X, v.Y, v.Z, 1}
}
