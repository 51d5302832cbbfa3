package model

// SensorKind selects which measurement model a sensor uses.
type SensorKind string

const (
	// SensorKindGeneric is an inert field-of-view sensor: it answers
	// visibility queries but reports zero measurements.
	SensorKindGeneric SensorKind = "generic"
	// SensorKindAnglesOnly reports bearing angles with additive Gaussian noise.
	SensorKindAnglesOnly SensorKind = "angles_only"
)

// Mount describes the sensor pose in the chaser body frame, in the same
// text form as the configuration source: whitespace-separated decimals.
type Mount struct {
	// Quaternion is "x y z w" (rotation from body to sensor).
	Quaternion string `mapstructure:"quaternion" json:"quaternion"`
	// Position is "x y z", the sensor origin expressed in the body frame.
	Position string `mapstructure:"position" json:"position"`
}

// FieldOfView holds the full angular extents (radians) and range limit.
type FieldOfView struct {
	Horizontal float64 `mapstructure:"horizontal" json:"horizontal"`
	Vertical   float64 `mapstructure:"vertical" json:"vertical"`
	MaxRange   float64 `mapstructure:"max_range" json:"max_range"`
}

// NoiseParams are per-axis Gaussian parameters for angles-only sensors.
type NoiseParams struct {
	Mean  [2]float64 `mapstructure:"mean" json:"mean"`
	Sigma [2]float64 `mapstructure:"sigma" json:"sigma"`
}

// SensorDefinition is the configuration-level description of one sensor
// mounted on the chaser.
type SensorDefinition struct {
	ID   string     `mapstructure:"id" json:"id"`
	Name string     `mapstructure:"name" json:"name"`
	Kind SensorKind `mapstructure:"kind" json:"kind"`

	Mount Mount       `mapstructure:"mount" json:"mount"`
	FOV   FieldOfView `mapstructure:"fov" json:"fov"`
	Noise NoiseParams `mapstructure:"noise" json:"noise"`
}

// Position is a relative position in the chaser body frame, in the linear
// unit used by the sensor range limits.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}
