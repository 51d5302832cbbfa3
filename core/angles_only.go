package core

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseSpec holds per-axis Gaussian parameters. Index 0 is conventionally
// the elevation bearing, index 1 the azimuth bearing.
type NoiseSpec struct {
	Mean  [2]float64
	Sigma [2]float64
}

// AnglesOnlySensor simulates a bearing-only sensor. It reports
// [elevation, azimuth] in radians with additive Gaussian noise.
//
// Noise injection is asymmetric: both samples, (Mean[0], Sigma[0]) and
// (Mean[1], Sigma[1]), are added to the elevation and the azimuth stays
// noise-free.
//
// TODO: confirm with the measurement-model owner whether the second sample
// belongs on the azimuth.
type AnglesOnlySensor struct {
	*FOVSensor

	noise NoiseSpec
	src   rand.Source
}

// AnglesOnlyOption customises an AnglesOnlySensor.
type AnglesOnlyOption func(*AnglesOnlySensor)

// WithNoiseSource draws noise from src instead of the global generator.
// Use a seeded source for reproducible runs.
func WithNoiseSource(src rand.Source) AnglesOnlyOption {
	return func(s *AnglesOnlySensor) {
		s.src = src
	}
}

// NewAnglesOnlySensor returns a sensor with zero-mean, unit-sigma noise,
// the identity mount and a zero FOV.
func NewAnglesOnlySensor(fovOpts []FOVOption, opts ...AnglesOnlyOption) *AnglesOnlySensor {
	s := &AnglesOnlySensor{
		FOVSensor: NewFOVSensor(fovOpts...),
		noise:     NoiseSpec{Sigma: [2]float64{1, 1}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConfigureNoise replaces the noise parameters.
func (s *AnglesOnlySensor) ConfigureNoise(mean, sigma [2]float64) {
	s.noise = NoiseSpec{Mean: mean, Sigma: sigma}
}

// Noise returns the configured noise parameters.
func (s *AnglesOnlySensor) Noise() NoiseSpec {
	return s.noise
}

// Measure converts bodyPos to the sensor frame, evaluates visibility there
// and computes the noisy bearing. Angles are returned even when the target
// is not visible.
func (s *AnglesOnlySensor) Measure(bodyPos Vec3) Measurement {
	r := s.ToSensorFrame(bodyPos)
	visible := s.IsVisible(r)

	elevation := math.Asin(r.Y / r.Norm())
	azimuth := math.Atan2(r.X, r.Z)

	elevation += s.sample(0)
	elevation += s.sample(1)

	return Measurement{Visible: visible, Values: []float64{elevation, azimuth}}
}

// MeasurementNoise returns a zero vector; it does not reflect the
// configured noise parameters.
func (s *AnglesOnlySensor) MeasurementNoise(Vec3) []float64 {
	return []float64{0, 0}
}

func (s *AnglesOnlySensor) sample(axis int) float64 {
	n := distuv.Normal{Mu: s.noise.Mean[axis], Sigma: s.noise.Sigma[axis], Src: s.src}
	return n.Rand()
}
