// core/scenario_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/signalsfoundry/relnav-sensor-sim/model"
)

// Trajectory kinds accepted by LoadTrajectory.
const (
	TrajectoryStatic  = "static"
	TrajectoryLinear  = "linear"
	TrajectorySampled = "sampled"
)

// internal JSON shapes – keep them unexported so we're free to evolve them.
type trajectoryJSON struct {
	Kind     string             `json:"kind"`
	Start    *model.Position    `json:"start"`
	Velocity *model.Position    `json:"velocity"`
	Samples  []trajectorySample `json:"samples"`
}

type trajectorySample struct {
	T float64 `json:"t"` // seconds from simulation start
	model.Position
}

// LoadTrajectory reads a JSON target trajectory (body frame) from r.
//
//	{"kind": "static",  "start": {"x":0,"y":0,"z":100}}
//	{"kind": "linear",  "start": {...}, "velocity": {...}}
//	{"kind": "sampled", "samples": [{"t":0,"x":0,"y":0,"z":100}, ...]}
//
// An empty kind is inferred: samples present means sampled, a velocity
// means linear, otherwise static.
func LoadTrajectory(r io.Reader) (MotionModel, error) {
	var payload trajectoryJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadTrajectory: decode failed: %w", err)
	}

	kind := strings.ToLower(strings.TrimSpace(payload.Kind))
	if kind == "" {
		switch {
		case len(payload.Samples) > 0:
			kind = TrajectorySampled
		case payload.Velocity != nil:
			kind = TrajectoryLinear
		default:
			kind = TrajectoryStatic
		}
	}

	switch kind {
	case TrajectoryStatic:
		if payload.Start == nil {
			return nil, fmt.Errorf("LoadTrajectory: static trajectory needs a start position")
		}
		return &StaticMotion{Position: Vec3FromPosition(*payload.Start)}, nil
	case TrajectoryLinear:
		if payload.Start == nil || payload.Velocity == nil {
			return nil, fmt.Errorf("LoadTrajectory: linear trajectory needs start and velocity")
		}
		return &LinearMotion{
			Start:    Vec3FromPosition(*payload.Start),
			Velocity: Vec3FromPosition(*payload.Velocity),
		}, nil
	case TrajectorySampled:
		if len(payload.Samples) == 0 {
			return nil, fmt.Errorf("LoadTrajectory: sampled trajectory has no samples")
		}
		samples := make([]TrajectorySample, 0, len(payload.Samples))
		for i, s := range payload.Samples {
			if s.T < 0 {
				return nil, fmt.Errorf("LoadTrajectory: sample %d has negative time %v", i, s.T)
			}
			samples = append(samples, TrajectorySample{
				Offset:   time.Duration(s.T * float64(time.Second)),
				Position: Vec3FromPosition(s.Position),
			})
		}
		return NewSampledTrajectory(samples), nil
	default:
		return nil, fmt.Errorf("LoadTrajectory: unknown trajectory kind %q", payload.Kind)
	}
}
