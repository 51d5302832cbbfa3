package core

import (
	"sort"
	"time"
)

// MotionModel gives the target position relative to the chaser, in the
// chaser body frame, as a function of elapsed simulation time.
type MotionModel interface {
	PositionAt(elapsed time.Duration) Vec3
}

// StaticMotion keeps the target at a fixed relative position.
type StaticMotion struct {
	Position Vec3
}

// PositionAt returns the fixed position.
func (m *StaticMotion) PositionAt(time.Duration) Vec3 {
	return m.Position
}

// LinearMotion drifts the target from Start at a constant Velocity
// (position units per second).
type LinearMotion struct {
	Start    Vec3
	Velocity Vec3
}

// PositionAt returns Start + Velocity*t.
func (m *LinearMotion) PositionAt(elapsed time.Duration) Vec3 {
	return m.Start.Add(m.Velocity.Scale(elapsed.Seconds()))
}

// TrajectorySample is one time-tagged relative position.
type TrajectorySample struct {
	Offset   time.Duration
	Position Vec3
}

// SampledTrajectory interpolates linearly between samples and clamps to the
// first/last sample outside their span.
type SampledTrajectory struct {
	samples []TrajectorySample
}

// NewSampledTrajectory sorts a copy of samples by offset.
func NewSampledTrajectory(samples []TrajectorySample) *SampledTrajectory {
	cp := append([]TrajectorySample(nil), samples...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Offset < cp[j].Offset })
	return &SampledTrajectory{samples: cp}
}

// Len returns the number of samples.
func (m *SampledTrajectory) Len() int { return len(m.samples) }

// PositionAt interpolates the trajectory. An empty trajectory stays at the
// origin.
func (m *SampledTrajectory) PositionAt(elapsed time.Duration) Vec3 {
	n := len(m.samples)
	if n == 0 {
		return Vec3{}
	}
	if elapsed <= m.samples[0].Offset {
		return m.samples[0].Position
	}
	if elapsed >= m.samples[n-1].Offset {
		return m.samples[n-1].Position
	}
	i := sort.Search(n, func(i int) bool { return m.samples[i].Offset > elapsed })
	a, b := m.samples[i-1], m.samples[i]
	span := b.Offset - a.Offset
	if span <= 0 {
		return b.Position
	}
	frac := float64(elapsed-a.Offset) / float64(span)
	return a.Position.Add(b.Position.Sub(a.Position).Scale(frac))
}
