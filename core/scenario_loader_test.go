package core

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestLoadTrajectory_Static(t *testing.T) {
	m, err := LoadTrajectory(strings.NewReader(`{"kind":"static","start":{"x":1,"y":2,"z":30}}`))
	if err != nil {
		t.Fatalf("LoadTrajectory: %v", err)
	}
	sm, ok := m.(*StaticMotion)
	if !ok {
		t.Fatalf("got %T, want *StaticMotion", m)
	}
	if sm.Position != (Vec3{X: 1, Y: 2, Z: 30}) {
		t.Errorf("position = %+v", sm.Position)
	}
}

func TestLoadTrajectory_InferredKinds(t *testing.T) {
	cases := []struct {
		name string
		json string
		want string
	}{
		{"static", `{"start":{"x":0,"y":0,"z":5}}`, "*core.StaticMotion"},
		{"linear", `{"start":{"x":0,"y":0,"z":5},"velocity":{"x":1,"y":0,"z":0}}`, "*core.LinearMotion"},
		{"sampled", `{"samples":[{"t":0,"x":0,"y":0,"z":5}]}`, "*core.SampledTrajectory"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := LoadTrajectory(strings.NewReader(tc.json))
			if err != nil {
				t.Fatalf("LoadTrajectory: %v", err)
			}
			got := fmt.Sprintf("%T", m)
			if got != tc.want {
				t.Fatalf("got %T, want %s", m, tc.want)
			}
		})
	}
}

func TestLoadTrajectory_Sampled(t *testing.T) {
	const payload = `{
  "kind": "sampled",
  "samples": [
    {"t": 0,   "x": 0,  "y": 0, "z": 100},
    {"t": 2.5, "x": 10, "y": 0, "z": 50}
  ]
}`
	m, err := LoadTrajectory(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("LoadTrajectory: %v", err)
	}
	got := m.PositionAt(1250 * time.Millisecond)
	if want := (Vec3{X: 5, Z: 75}); !vecNear(got, want, eps) {
		t.Fatalf("PositionAt(1.25s) = %+v, want %+v", got, want)
	}
}

func TestLoadTrajectory_Errors(t *testing.T) {
	cases := []struct {
		name    string
		json    string
		wantSub string
	}{
		{"bad json", `{`, "decode failed"},
		{"unknown field", `{"start":{"x":0,"y":0,"z":1},"bogus":1}`, "decode failed"},
		{"static without start", `{"kind":"static"}`, "needs a start"},
		{"linear without velocity", `{"kind":"linear","start":{"x":0,"y":0,"z":1}}`, "needs start and velocity"},
		{"sampled without samples", `{"kind":"sampled"}`, "no samples"},
		{"negative time", `{"samples":[{"t":-1,"x":0,"y":0,"z":1}]}`, "negative time"},
		{"unknown kind", `{"kind":"orbit","start":{"x":0,"y":0,"z":1}}`, "unknown trajectory kind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadTrajectory(strings.NewReader(tc.json))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not contain %q", err, tc.wantSub)
			}
		})
	}
}
