package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/relnav-sensor-sim/internal/logging"
	"github.com/signalsfoundry/relnav-sensor-sim/timectrl"
)

const tracerName = "github.com/signalsfoundry/relnav-sensor-sim/core"

// Observation is one sensor's view of the target at one step.
type Observation struct {
	Time           time.Time
	SensorID       string
	BodyPosition   Vec3
	SensorPosition Vec3
	Visibility     VisibilityResult
	Measurement    Measurement
}

// Observer receives per-sensor results; the Prometheus collector
// implements it. ObserveMeasurement is passed the same visibility result
// as ObserveVisibility for that step.
type Observer interface {
	ObserveVisibility(sensorID string, res VisibilityResult)
	ObserveMeasurement(sensorID string, res VisibilityResult, m Measurement)
	SetSensorCount(n int)
}

// StepObserver receives the cost and visible-sensor count of each step.
type StepObserver interface {
	ObserveStep(took time.Duration, visible int)
}

// SimulationEngine evaluates a set of sensors against a target trajectory.
// The sensor set is copy-on-write: ReplaceSensor swaps in a new map, so a
// Step in flight keeps evaluating the snapshot it started with.
type SimulationEngine struct {
	mu      sync.RWMutex
	sensors map[string]Sensor
	target  MotionModel

	observer     Observer
	stepObserver StepObserver
	writer       ObservationWriter
	log          logging.Logger
	tracer       trace.Tracer

	listeners []func([]Observation)
}

// EngineOption customises a SimulationEngine.
type EngineOption func(*SimulationEngine)

// WithObserver records visibility and measurement outcomes.
func WithObserver(o Observer) EngineOption {
	return func(e *SimulationEngine) { e.observer = o }
}

// WithStepObserver records per-step timing.
func WithStepObserver(o StepObserver) EngineOption {
	return func(e *SimulationEngine) { e.stepObserver = o }
}

// WithObservationWriter persists every step's observations.
func WithObservationWriter(w ObservationWriter) EngineOption {
	return func(e *SimulationEngine) { e.writer = w }
}

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(e *SimulationEngine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *SimulationEngine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewSimulationEngine builds an engine with no sensors.
func NewSimulationEngine(target MotionModel, opts ...EngineOption) *SimulationEngine {
	if target == nil {
		target = &StaticMotion{}
	}
	e := &SimulationEngine{
		sensors: make(map[string]Sensor),
		target:  target,
		log:     logging.Noop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ReplaceSensor installs s under id, replacing any previous sensor.
func (e *SimulationEngine) ReplaceSensor(id string, s Sensor) error {
	if id == "" {
		return errors.New("empty sensor ID")
	}
	if s == nil {
		return fmt.Errorf("nil sensor for %q", id)
	}
	e.mu.Lock()
	next := make(map[string]Sensor, len(e.sensors)+1)
	for k, v := range e.sensors {
		next[k] = v
	}
	_, replaced := next[id]
	next[id] = s
	e.sensors = next
	n := len(next)
	e.mu.Unlock()

	e.log.Info(context.Background(), "sensor installed",
		logging.String("sensor_id", id),
		logging.Bool("replaced", replaced),
	)
	if e.observer != nil {
		e.observer.SetSensorCount(n)
	}
	return nil
}

// RemoveSensor drops the sensor with id; it is a no-op for unknown IDs.
func (e *SimulationEngine) RemoveSensor(id string) {
	e.mu.Lock()
	if _, ok := e.sensors[id]; !ok {
		e.mu.Unlock()
		return
	}
	next := make(map[string]Sensor, len(e.sensors))
	for k, v := range e.sensors {
		if k != id {
			next[k] = v
		}
	}
	e.sensors = next
	n := len(next)
	e.mu.Unlock()

	e.log.Info(context.Background(), "sensor removed", logging.String("sensor_id", id))
	if e.observer != nil {
		e.observer.SetSensorCount(n)
	}
}

// Sensor returns the sensor installed under id, or nil.
func (e *SimulationEngine) Sensor(id string) Sensor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sensors[id]
}

// SensorIDs returns the installed sensor IDs in sorted order.
func (e *SimulationEngine) SensorIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sortedIDs(e.sensors)
}

// RegisterStepListener adds a callback that receives each step's output.
// Register listeners before Run.
func (e *SimulationEngine) RegisterStepListener(fn func([]Observation)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Step evaluates every sensor, in ID order, against the target position at
// elapsed. Each sensor converts the body-frame position into its own frame;
// visibility is evaluated on the sensor-frame vector and the measurement on
// the body-frame one. The returned error is from the observation writer;
// the observations are valid either way.
func (e *SimulationEngine) Step(ctx context.Context, simTime time.Time, elapsed time.Duration) ([]Observation, error) {
	e.mu.RLock()
	sensors := e.sensors
	listeners := e.listeners
	e.mu.RUnlock()

	ctx, span := e.tracer.Start(ctx, "sim.Step", trace.WithAttributes(
		attribute.Int64("sim.elapsed_ms", elapsed.Milliseconds()),
		attribute.Int("sim.sensors", len(sensors)),
	))
	defer span.End()

	began := time.Now()
	body := e.target.PositionAt(elapsed)
	ids := sortedIDs(sensors)
	out := make([]Observation, 0, len(ids))
	visible := 0
	for _, id := range ids {
		s := sensors[id]
		sensorPos := s.Frame().ToSensorFrame(body)
		vis := s.Visibility(sensorPos)
		meas := s.Measure(body)

		if vis.Status == VisibilityDegenerate {
			e.log.Debug(ctx, "target out of view",
				logging.String("sensor_id", id),
				logging.Float64("sensor_z", sensorPos.Z),
			)
		}
		if vis.Visible() {
			visible++
		}
		if e.observer != nil {
			e.observer.ObserveVisibility(id, vis)
			e.observer.ObserveMeasurement(id, vis, meas)
		}

		out = append(out, Observation{
			Time:           simTime,
			SensorID:       id,
			BodyPosition:   body,
			SensorPosition: sensorPos,
			Visibility:     vis,
			Measurement:    meas,
		})
	}
	span.SetAttributes(attribute.Int("sim.visible", visible))
	if e.stepObserver != nil {
		e.stepObserver.ObserveStep(time.Since(began), visible)
	}

	for _, fn := range listeners {
		fn(out)
	}

	if e.writer != nil {
		if err := e.writer.Write(out); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "write observations")
			e.log.Warn(ctx, "failed to write observations", logging.Err(err))
			return out, err
		}
	}
	return out, nil
}

// Run drives Step from tc for duration (or until ctx is cancelled when
// duration <= 0) and flushes the writer. It returns the first writer error.
func (e *SimulationEngine) Run(ctx context.Context, tc *timectrl.TimeController, duration time.Duration) error {
	if tc == nil {
		return errors.New("nil time controller")
	}
	ctx, span := e.tracer.Start(ctx, "sim.Run", trace.WithAttributes(
		attribute.String("sim.mode", tc.Mode.String()),
		attribute.Int64("sim.tick_ms", tc.Tick.Milliseconds()),
		attribute.Int64("sim.duration_ms", duration.Milliseconds()),
	))
	defer span.End()

	var (
		errMu    sync.Mutex
		firstErr error
		steps    int
	)
	tc.AddListener(func(simTime time.Time, elapsed time.Duration) {
		_, err := e.Step(ctx, simTime, elapsed)
		errMu.Lock()
		defer errMu.Unlock()
		steps++
		if err != nil && firstErr == nil {
			firstErr = err
		}
	})

	e.log.Info(ctx, "simulation starting",
		logging.String("mode", tc.Mode.String()),
		logging.String("tick", tc.Tick.String()),
		logging.String("duration", duration.String()),
		logging.Int("sensors", len(e.SensorIDs())),
	)
	<-tc.Start(ctx, duration)

	if e.writer != nil {
		if err := e.writer.Flush(); err != nil {
			errMu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("flush observations: %w", err)
			}
			errMu.Unlock()
		}
	}

	errMu.Lock()
	defer errMu.Unlock()
	span.SetAttributes(attribute.Int("sim.steps", steps))
	if firstErr != nil {
		span.RecordError(firstErr)
		span.SetStatus(codes.Error, "simulation run failed")
	}
	e.log.Info(ctx, "simulation complete", logging.Int("steps", steps))
	return firstErr
}

func sortedIDs(m map[string]Sensor) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
