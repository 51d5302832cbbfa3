package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/relnav-sensor-sim/core"
	"github.com/signalsfoundry/relnav-sensor-sim/kb"
	"github.com/signalsfoundry/relnav-sensor-sim/model"
)

const testConfig = `
[log]
level = "debug"
format = "json"

[simulation]
tick = "1s"
duration = "4s"
accelerated = true
seed = 7
format = "csv"

[trajectory]
file = "%TRAJECTORY%"

[[sensors]]
id = "fwd"
kind = "angles_only"
  [sensors.mount]
  quaternion = "0 0 0 1"
  position = "0 0 0"
  [sensors.fov]
  horizontal = 1.0
  vertical = 1.0
  max_range = 1000.0
  [sensors.noise]
  sigma = [0.001, 0.001]

[[sensors]]
id = "aft"
kind = "generic"
  [sensors.mount]
  quaternion = "1 0 0 0"
  position = "0 0 0"
  [sensors.fov]
  horizontal = 1.0
  vertical = 1.0
  max_range = 1000.0
`

func writeScenario(t *testing.T, config string) string {
	t.Helper()
	dir := t.TempDir()
	traj := filepath.Join(dir, "trajectory.json")
	if err := os.WriteFile(traj, []byte(`{"start":{"x":0,"y":0,"z":100},"velocity":{"x":0,"y":0,"z":-10}}`), 0o644); err != nil {
		t.Fatalf("write trajectory: %v", err)
	}
	cfg := filepath.Join(dir, "simulator.toml")
	if err := os.WriteFile(cfg, []byte(strings.ReplaceAll(config, "%TRAJECTORY%", filepath.ToSlash(traj))), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfg
}

func TestRun_WritesCSV(t *testing.T) {
	var out, logs bytes.Buffer
	reg := prometheus.NewRegistry()
	err := run(context.Background(), runOptions{
		configPath: writeScenario(t, testConfig),
		registerer: reg,
		stdout:     &out,
		logOutput:  &logs,
		start:      time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("run: %v\nlogs:\n%s", err, logs.String())
	}

	rows, err := csv.NewReader(&out).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	// Header plus two sensors at t = 0..4s.
	if len(rows) != 1+2*5 {
		t.Fatalf("got %d rows, want 11:\n%s", len(rows), out.String())
	}
	if rows[1][0] != "2026-05-01T00:00:00Z" || rows[1][1] != "aft" || rows[1][2] != "degenerate" {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[2][1] != "fwd" || rows[2][2] != "visible" || rows[2][3] != "true" {
		t.Errorf("second row = %v", rows[2])
	}
	if last := rows[len(rows)-1]; last[0] != "2026-05-01T00:00:04Z" || last[7] != "60" {
		t.Errorf("last row = %v", last)
	}

	const wantSteps = `
# HELP relnav_steps_total Cumulative number of simulation steps evaluated.
# TYPE relnav_steps_total counter
relnav_steps_total 5
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(wantSteps), "relnav_steps_total"); err != nil {
		t.Errorf("unexpected step metrics: %v", err)
	}
	if !strings.Contains(logs.String(), `"msg":"simulation complete"`) || !strings.Contains(logs.String(), `"run_id"`) {
		t.Errorf("expected run-scoped completion log, got:\n%s", logs.String())
	}
}

func TestRun_FlagOverrides(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "obs.jsonl")
	err := run(context.Background(), runOptions{
		configPath: writeScenario(t, testConfig),
		duration:   2 * time.Second,
		output:     outPath,
		format:     "jsonl",
		registerer: prometheus.NewRegistry(),
		logOutput:  &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2*3 {
		t.Fatalf("got %d lines, want 6", len(lines))
	}
	var rec struct {
		SensorID     string         `json:"sensor_id"`
		BodyPosition model.Position `json:"body_position"`
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.SensorID != "fwd" || rec.BodyPosition.Z != 80 {
		t.Errorf("last record = %+v", rec)
	}
}

func TestRun_InvalidSensorFailsStartup(t *testing.T) {
	bad := strings.Replace(testConfig, `position = "0 0 0"`, `position = "0 0"`, 1)
	err := run(context.Background(), runOptions{
		configPath: writeScenario(t, bad),
		registerer: prometheus.NewRegistry(),
		stdout:     &bytes.Buffer{},
		logOutput:  &bytes.Buffer{},
	})
	if err == nil || !strings.Contains(err.Error(), `sensor "fwd"`) {
		t.Fatalf("err = %v, want mount parse error for fwd", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	bad := strings.Replace(testConfig, `format = "csv"`, `format = "xml"`, 1)
	err := run(context.Background(), runOptions{
		configPath: writeScenario(t, bad),
		registerer: prometheus.NewRegistry(),
		logOutput:  &bytes.Buffer{},
	})
	if err == nil || !strings.Contains(err.Error(), "simulation.format") {
		t.Fatalf("err = %v, want format validation error", err)
	}
}

func seededDefinition(id string) model.SensorDefinition {
	return model.SensorDefinition{
		ID:    id,
		Kind:  model.SensorKindAnglesOnly,
		Mount: model.Mount{Quaternion: "0 0 0 1", Position: "0 0 0"},
		FOV:   model.FieldOfView{Horizontal: 1, Vertical: 1, MaxRange: 100},
		Noise: model.NoiseParams{Sigma: [2]float64{0.1, 0.1}},
	}
}

func TestSensorBuilderSeedsPerBuild(t *testing.T) {
	build := sensorBuilder(99)
	first, err := build(seededDefinition("a"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	again, err := build(seededDefinition("a"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	other, err := build(seededDefinition("b"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	target := core.Vec3{Z: 10}
	m1, m2, m3 := first.Measure(target), again.Measure(target), other.Measure(target)
	if m1.Values[0] == m2.Values[0] {
		t.Errorf("rebuilt sensor repeated its noise: %v", m1.Values[0])
	}
	if m1.Values[0] == m3.Values[0] {
		t.Errorf("different sensors share a noise stream")
	}

	// A fresh builder with the same seed reproduces the first build.
	replay, err := sensorBuilder(99)(seededDefinition("a"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := replay.Measure(target).Values[0]; got != m1.Values[0] {
		t.Errorf("same seed produced %v, want %v", got, m1.Values[0])
	}
}

func TestSensorInstallerReplaceDrawsFreshNoise(t *testing.T) {
	engine := core.NewSimulationEngine(&core.StaticMotion{Position: core.Vec3{Z: 10}})
	store := kb.NewKnowledgeBase()
	install := sensorInstaller(engine, sensorBuilder(5))
	var builds int
	store.Subscribe(func(ev kb.Event) {
		if err := install(ev); err != nil {
			t.Errorf("install %s: %v", ev.Sensor.ID, err)
		}
		builds++
	})

	if err := store.AddSensor(seededDefinition("a")); err != nil {
		t.Fatalf("AddSensor: %v", err)
	}
	before := engine.Sensor("a").Measure(core.Vec3{Z: 10})
	if err := store.ReplaceSensor(seededDefinition("a")); err != nil {
		t.Fatalf("ReplaceSensor: %v", err)
	}
	after := engine.Sensor("a").Measure(core.Vec3{Z: 10})
	if before.Values[0] == after.Values[0] {
		t.Errorf("replaced sensor repeated noise %v", before.Values[0])
	}
	if builds != 2 {
		t.Errorf("subscriber saw %d events, want 2", builds)
	}

	if err := store.RemoveSensor("a"); err != nil {
		t.Fatalf("RemoveSensor: %v", err)
	}
	if got := engine.SensorIDs(); len(got) != 0 {
		t.Errorf("SensorIDs after remove = %v", got)
	}
}
