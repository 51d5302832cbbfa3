package observability

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/relnav-sensor-sim/core"
)

// SensorCollector bundles Prometheus metrics for sensor evaluations. It
// implements core.Observer.
type SensorCollector struct {
	gatherer prometheus.Gatherer

	VisibilityChecks *prometheus.CounterVec
	Measurements     *prometheus.CounterVec
	TargetRange      *prometheus.HistogramVec
	Sensors          prometheus.Gauge
}

var _ core.Observer = (*SensorCollector)(nil)

// NewSensorCollector registers sensor metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSensorCollector(reg prometheus.Registerer) (*SensorCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	checks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relnav_visibility_checks_total",
		Help: "Visibility evaluations, labeled by sensor and outcome.",
	}, []string{"sensor", "outcome"}), "relnav_visibility_checks_total")
	if err != nil {
		return nil, err
	}

	measurements, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relnav_measurements_total",
		Help: "Simulated measurements, labeled by sensor and target visibility.",
	}, []string{"sensor", "visible"}), "relnav_measurements_total")
	if err != nil {
		return nil, err
	}

	targetRange, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relnav_target_range",
		Help:    "Distance from sensor to target at each visibility evaluation, in scenario units.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 16),
	}, []string{"sensor"}), "relnav_target_range")
	if err != nil {
		return nil, err
	}

	sensors, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relnav_sensors",
		Help: "Number of sensors installed in the simulation engine.",
	}), "relnav_sensors")
	if err != nil {
		return nil, err
	}

	return &SensorCollector{
		gatherer:         gatherer,
		VisibilityChecks: checks,
		Measurements:     measurements,
		TargetRange:      targetRange,
		Sensors:          sensors,
	}, nil
}

// ObserveVisibility counts the outcome and records the distance.
func (c *SensorCollector) ObserveVisibility(sensorID string, res core.VisibilityResult) {
	if c == nil {
		return
	}
	c.VisibilityChecks.WithLabelValues(sensorID, res.Status.String()).Inc()
	if res.Status != core.VisibilityDegenerate {
		c.TargetRange.WithLabelValues(sensorID).Observe(res.Distance)
	}
}

// ObserveMeasurement counts a simulated measurement. The visible label
// follows the visibility result, since a generic sensor's measurement is
// always empty.
func (c *SensorCollector) ObserveMeasurement(sensorID string, res core.VisibilityResult, _ core.Measurement) {
	if c == nil {
		return
	}
	c.Measurements.WithLabelValues(sensorID, strconv.FormatBool(res.Visible())).Inc()
}

// SetSensorCount updates the installed-sensors gauge.
func (c *SensorCollector) SetSensorCount(n int) {
	if c == nil {
		return
	}
	c.Sensors.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SensorCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
