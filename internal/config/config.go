// Package config loads simulator configuration with viper: a TOML, YAML or
// JSON file, overridden by RELNAV_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/signalsfoundry/relnav-sensor-sim/model"
)

// EnvPrefix is prepended to every environment override, e.g.
// RELNAV_SIMULATION_TICK=500ms.
const EnvPrefix = "RELNAV"

// Config is the full simulator configuration.
type Config struct {
	Log        LogConfig                `mapstructure:"log"`
	Metrics    MetricsConfig            `mapstructure:"metrics"`
	Tracing    TracingConfig            `mapstructure:"tracing"`
	Simulation SimulationConfig         `mapstructure:"simulation"`
	Trajectory TrajectoryConfig         `mapstructure:"trajectory"`
	Sensors    []model.SensorDefinition `mapstructure:"sensors"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	// Addr is the /metrics listen address; empty disables the server.
	Addr string `mapstructure:"addr"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	ServiceName string  `mapstructure:"service_name"`
}

type SimulationConfig struct {
	Tick        time.Duration `mapstructure:"tick"`
	Duration    time.Duration `mapstructure:"duration"`
	Accelerated bool          `mapstructure:"accelerated"`
	// Seed seeds the noise generator; 0 draws from the global source.
	Seed   uint64 `mapstructure:"seed"`
	Output string `mapstructure:"output"` // file path, "-" for stdout
	Format string `mapstructure:"format"` // csv | jsonl
}

type TrajectoryConfig struct {
	File string `mapstructure:"file"`
}

// Load reads the configuration file at path. An empty path loads defaults
// and environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.service_name", "relnav-sensor-sim")
	v.SetDefault("simulation.tick", time.Second)
	v.SetDefault("simulation.duration", time.Minute)
	v.SetDefault("simulation.accelerated", true)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.output", "-")
	v.SetDefault("simulation.format", "csv")
	// Unmarshal only sees keys viper knows about, so env-only keys need a
	// default to be overridable.
	v.SetDefault("trajectory.file", "")
}

// Validate checks structural constraints. Mount strings are parsed when
// the sensors are built, not here.
func (c *Config) Validate() error {
	var errs []error
	if c.Simulation.Tick <= 0 {
		errs = append(errs, fmt.Errorf("simulation.tick must be positive, got %s", c.Simulation.Tick))
	}
	if c.Simulation.Duration < 0 {
		errs = append(errs, fmt.Errorf("simulation.duration must not be negative, got %s", c.Simulation.Duration))
	}
	switch strings.ToLower(c.Simulation.Format) {
	case "csv", "jsonl":
	default:
		errs = append(errs, fmt.Errorf("simulation.format must be csv or jsonl, got %q", c.Simulation.Format))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be in [0,1], got %v", c.Tracing.SampleRatio))
	}
	if c.Trajectory.File == "" {
		errs = append(errs, errors.New("trajectory.file is required"))
	}
	if len(c.Sensors) == 0 {
		errs = append(errs, errors.New("at least one sensor is required"))
	}
	seen := make(map[string]bool, len(c.Sensors))
	for i, s := range c.Sensors {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("sensors[%d]: empty id", i))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("sensors[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true
	}
	return errors.Join(errs...)
}
