package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/relnav-sensor-sim/core"
)

// StepCollector exposes per-step engine metrics.
type StepCollector struct {
	StepDuration   prometheus.Histogram
	StepsTotal     prometheus.Counter
	VisibleSensors prometheus.Gauge
}

var _ core.StepObserver = (*StepCollector)(nil)

// NewStepCollector registers step metrics against the provided registerer.
func NewStepCollector(reg prometheus.Registerer) (*StepCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	stepHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "relnav_step_duration_seconds",
		Help:    "Wall-clock time spent evaluating all sensors for one simulation step.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})
	stepHistogram, err := registerHistogram(reg, stepHistogram, "relnav_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	steps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relnav_steps_total",
		Help: "Cumulative number of simulation steps evaluated.",
	})
	steps, err = registerCounter(reg, steps, "relnav_steps_total")
	if err != nil {
		return nil, err
	}

	visible := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relnav_visible_sensors",
		Help: "Number of sensors that saw the target in the most recent step.",
	})
	visible, err = registerGauge(reg, visible, "relnav_visible_sensors")
	if err != nil {
		return nil, err
	}

	return &StepCollector{
		StepDuration:   stepHistogram,
		StepsTotal:     steps,
		VisibleSensors: visible,
	}, nil
}

// ObserveStep records one completed step.
func (c *StepCollector) ObserveStep(took time.Duration, visible int) {
	if c == nil || c.StepDuration == nil {
		return
	}
	c.StepDuration.Observe(took.Seconds())
	c.StepsTotal.Inc()
	c.VisibleSensors.Set(float64(visible))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
