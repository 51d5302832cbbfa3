package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/relnav-sensor-sim/model"
)

// ErrUnknownSensorKind is returned by NewSensor for kinds it cannot build.
var ErrUnknownSensorKind = errors.New("unknown sensor kind")

// Measurement is what a sensor reports for one target position. Values is
// meaningless when Visible is false; callers discard it.
type Measurement struct {
	Visible bool
	Values  []float64
}

// Sensor is the capability set shared by all sensor variants: frame
// conversion, visibility and the variant-specific measurement model.
type Sensor interface {
	Frame() *SensorFrame
	FOV() FOVSpec
	Visibility(v Vec3) VisibilityResult
	IsVisible(v Vec3) bool
	// Measure simulates a reading for a body-frame target position.
	Measure(bodyPos Vec3) Measurement
	MeasurementNoise(v Vec3) []float64
}

// GenericSensor is the inert variant: it answers visibility queries but
// reports a zero measurement and no noise.
type GenericSensor struct {
	*FOVSensor
}

// NewGenericSensor wraps a fresh FOVSensor.
func NewGenericSensor(opts ...FOVOption) *GenericSensor {
	return &GenericSensor{FOVSensor: NewFOVSensor(opts...)}
}

// Measure always returns the zero Measurement.
func (s *GenericSensor) Measure(Vec3) Measurement { return Measurement{} }

// MeasurementNoise always returns nil.
func (s *GenericSensor) MeasurementNoise(Vec3) []float64 { return nil }

// SensorOptions collects construction options for NewSensor.
type SensorOptions struct {
	FOV   []FOVOption
	Noise []AnglesOnlyOption
}

// SensorOption customises NewSensor.
type SensorOption func(*SensorOptions)

// WithFOVOptions forwards options to the embedded FOVSensor.
func WithFOVOptions(opts ...FOVOption) SensorOption {
	return func(o *SensorOptions) { o.FOV = append(o.FOV, opts...) }
}

// WithAnglesOnlyOptions forwards options to an angles-only sensor; they are
// ignored for other kinds.
func WithAnglesOnlyOptions(opts ...AnglesOnlyOption) SensorOption {
	return func(o *SensorOptions) { o.Noise = append(o.Noise, opts...) }
}

// NewSensor builds a configured sensor from its definition. The mount
// strings are parsed before the sensor is created, so a parse failure
// returns no sensor at all.
func NewSensor(def model.SensorDefinition, opts ...SensorOption) (Sensor, error) {
	var o SensorOptions
	for _, opt := range opts {
		opt(&o)
	}

	transform, err := ParseRigidTransform(def.Mount.Quaternion, def.Mount.Position)
	if err != nil {
		return nil, fmt.Errorf("sensor %q: %w", def.ID, err)
	}

	switch def.Kind {
	case model.SensorKindAnglesOnly:
		s := NewAnglesOnlySensor(o.FOV, o.Noise...)
		s.SetTransform(transform)
		s.ConfigureFOV(def.FOV.Horizontal, def.FOV.Vertical, def.FOV.MaxRange)
		s.ConfigureNoise(def.Noise.Mean, def.Noise.Sigma)
		return s, nil
	case model.SensorKindGeneric, "":
		s := NewGenericSensor(o.FOV...)
		s.SetTransform(transform)
		s.ConfigureFOV(def.FOV.Horizontal, def.FOV.Vertical, def.FOV.MaxRange)
		return s, nil
	default:
		return nil, fmt.Errorf("sensor %q: %w: %q", def.ID, ErrUnknownSensorKind, def.Kind)
	}
}
