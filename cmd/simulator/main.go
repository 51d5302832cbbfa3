package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/relnav-sensor-sim/core"
	"github.com/signalsfoundry/relnav-sensor-sim/internal/config"
	"github.com/signalsfoundry/relnav-sensor-sim/internal/logging"
	"github.com/signalsfoundry/relnav-sensor-sim/internal/observability"
	"github.com/signalsfoundry/relnav-sensor-sim/kb"
	"github.com/signalsfoundry/relnav-sensor-sim/model"
	"github.com/signalsfoundry/relnav-sensor-sim/timectrl"
)

// noiseStream separates per-sensor PCG streams derived from one seed.
const noiseStream = 0x9e3779b97f4a7c15

type runOptions struct {
	configPath  string
	duration    time.Duration
	output      string
	format      string
	metricsAddr string

	registerer prometheus.Registerer
	stdout     io.Writer
	logOutput  io.Writer
	start      time.Time
}

func main() {
	opts := runOptions{}
	flag.StringVar(&opts.configPath, "config", "configs/simulator.toml", "path to the simulator configuration file")
	flag.DurationVar(&opts.duration, "duration", 0, "override simulation.duration")
	flag.StringVar(&opts.output, "output", "", "override simulation.output (file path or - for stdout)")
	flag.StringVar(&opts.format, "format", "", "override simulation.format (csv or jsonl)")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "override metrics.addr, e.g. :9090")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts runOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, log := logging.WithRunLogger(ctx, logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: opts.logOutput,
	}))

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFrom(cfg.Tracing), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSensorCollector(opts.registerer)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	stepCollector, err := observability.NewStepCollector(opts.registerer)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if metricsSrv := serveMetrics(cfg.Metrics.Addr, collector, log); metricsSrv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	target, err := loadTrajectory(cfg.Trajectory.File)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cfg.Simulation.Output, opts.stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	var writer core.ObservationWriter
	if strings.EqualFold(cfg.Simulation.Format, "jsonl") {
		writer = core.NewJSONLinesWriter(out)
	} else {
		writer = core.NewCSVWriter(out)
	}

	engine := core.NewSimulationEngine(target,
		core.WithObserver(collector),
		core.WithStepObserver(stepCollector),
		core.WithObservationWriter(writer),
		core.WithLogger(log),
	)

	store := kb.NewKnowledgeBase()
	install := sensorInstaller(engine, sensorBuilder(cfg.Simulation.Seed))
	var installErr error
	store.Subscribe(func(ev kb.Event) {
		if err := install(ev); err != nil {
			installErr = err
			log.Error(ctx, "failed to install sensor", logging.String("sensor_id", ev.Sensor.ID), logging.Err(err))
		}
	})

	for _, def := range cfg.Sensors {
		if err := store.AddSensor(def); err != nil {
			return err
		}
		// Subscribers run synchronously, so a bad mount string fails
		// startup here.
		if installErr != nil {
			return installErr
		}
	}

	mode := timectrl.Accelerated
	if !cfg.Simulation.Accelerated {
		mode = timectrl.RealTime
	}
	start := opts.start
	if start.IsZero() {
		start = time.Now().UTC()
	}
	tc := timectrl.NewTimeController(start, cfg.Simulation.Tick, mode)

	return engine.Run(ctx, tc, cfg.Simulation.Duration)
}

func applyOverrides(cfg *config.Config, opts runOptions) {
	if opts.duration > 0 {
		cfg.Simulation.Duration = opts.duration
	}
	if opts.output != "" {
		cfg.Simulation.Output = opts.output
	}
	if opts.format != "" {
		cfg.Simulation.Format = opts.format
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}
}

// sensorInstaller applies knowledge-base events to the engine. Each added
// or replaced definition is built exactly once.
func sensorInstaller(engine *core.SimulationEngine, build func(model.SensorDefinition) (core.Sensor, error)) func(kb.Event) error {
	return func(ev kb.Event) error {
		if ev.Type == kb.EventSensorRemoved {
			engine.RemoveSensor(ev.Sensor.ID)
			return nil
		}
		s, err := build(ev.Sensor)
		if err != nil {
			return err
		}
		return engine.ReplaceSensor(ev.Sensor.ID, s)
	}
}

// sensorBuilder returns a factory that gives every angles-only build its
// own noise stream when seed is non-zero. Streams depend only on the order
// of builds, so a run is reproducible for a fixed seed, and a replaced
// sensor does not repeat the noise of the sensor it replaces.
func sensorBuilder(seed uint64) func(model.SensorDefinition) (core.Sensor, error) {
	var builds uint64
	return func(def model.SensorDefinition) (core.Sensor, error) {
		var opts []core.SensorOption
		if seed != 0 {
			builds++
			opts = append(opts, core.WithAnglesOnlyOptions(
				core.WithNoiseSource(rand.NewPCG(seed, builds*noiseStream)),
			))
		}
		return core.NewSensor(def, opts...)
	}
}

func loadTrajectory(path string) (core.MotionModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trajectory %q: %w", path, err)
	}
	defer f.Close()
	return core.LoadTrajectory(f)
}

func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		if stdout == nil {
			stdout = os.Stdout
		}
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output %q: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

func serveMetrics(addr string, collector *observability.SensorCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
