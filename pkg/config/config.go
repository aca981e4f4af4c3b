package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cuemby/burrow/pkg/balancer"
	"github.com/cuemby/burrow/pkg/health"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/probe"
	"github.com/cuemby/burrow/pkg/reconciler"
	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/scheduler"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration value is unusable
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the burrow configuration file
type Config struct {
	Log       LogConfig        `yaml:"log"`
	Balancer  balancer.Config  `yaml:"balancer"`
	Registry  RegistryConfig   `yaml:"registry"`
	Liveness  health.Config    `yaml:"liveness"`
	Scheduler scheduler.Config `yaml:"scheduler"`
	Server    ServerConfig     `yaml:"server"`

	// Worker enables the local load probe when set
	Worker *WorkerConfig `yaml:"worker,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type RegistryConfig struct {
	HeartbeatTimeout time.Duration `yaml:"heartbeatTimeout"`
	EvictInterval    time.Duration `yaml:"evictInterval"`
	EventBuffer      int           `yaml:"eventBuffer"`
}

type ServerConfig struct {
	MetricsAddr string `yaml:"metricsAddr"`
	GRPCAddr    string `yaml:"grpcAddr"`
	DataDir     string `yaml:"dataDir"`
}

// WorkerConfig describes the local worker reported by the load probe
type WorkerConfig struct {
	Address    string           `yaml:"address"`
	Groups     []string         `yaml:"groups"`
	Weight     int              `yaml:"weight"`
	Interval   time.Duration    `yaml:"interval"`
	CPUWindow  time.Duration    `yaml:"cpuWindow"`
	Thresholds probe.Thresholds `yaml:"thresholds"`

	// Server is the API address heartbeats are sent to. Empty reports to
	// the registry of the local process.
	Server string `yaml:"server,omitempty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: string(log.InfoLevel)},
		Balancer: balancer.DefaultConfig(),
		Registry: RegistryConfig{
			HeartbeatTimeout: reconciler.DefaultHeartbeatTimeout,
			EvictInterval:    reconciler.DefaultEvictInterval,
			EventBuffer:      registry.DefaultEventBuffer,
		},
		Liveness:  health.DefaultConfig(),
		Scheduler: scheduler.DefaultConfig(),
		Server: ServerConfig{
			MetricsAddr: "127.0.0.1:9090",
			GRPCAddr:    "127.0.0.1:9091",
			DataDir:     "./burrow-data",
		},
	}
}

// defaultWorker fills the worker section fields left unset
func defaultWorker(w *WorkerConfig) {
	if w.Interval == 0 {
		w.Interval = probe.DefaultReportInterval
	}
	if w.CPUWindow == 0 {
		w.CPUWindow = time.Second
	}
	if w.Thresholds == (probe.Thresholds{}) {
		w.Thresholds = probe.DefaultThresholds()
	}
}

// Load reads and validates the configuration file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration over the defaults and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Balancer.Type != "" {
		t, err := balancer.ParseType(string(cfg.Balancer.Type))
		if err != nil {
			return nil, err
		}
		cfg.Balancer.Type = t
	}
	if cfg.Worker != nil {
		defaultWorker(cfg.Worker)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Balancer.Validate(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}

	if c.Registry.HeartbeatTimeout <= 0 {
		return fmt.Errorf("%w: registry.heartbeatTimeout must be positive", ErrInvalidConfig)
	}
	if c.Registry.EvictInterval <= 0 {
		return fmt.Errorf("%w: registry.evictInterval must be positive", ErrInvalidConfig)
	}
	if c.Registry.EventBuffer <= 0 {
		return fmt.Errorf("%w: registry.eventBuffer must be positive", ErrInvalidConfig)
	}

	if c.Liveness.Enabled {
		if err := c.Liveness.Validate(); err != nil {
			return err
		}
	}

	if c.Server.DataDir == "" {
		return fmt.Errorf("%w: server.dataDir is required", ErrInvalidConfig)
	}

	if w := c.Worker; w != nil {
		if w.Address == "" {
			return fmt.Errorf("%w: worker.address is required", ErrInvalidConfig)
		}
		if w.Weight < 0 {
			return fmt.Errorf("%w: worker.weight must not be negative", ErrInvalidConfig)
		}
		if w.Interval < 0 || w.CPUWindow < 0 {
			return fmt.Errorf("%w: worker intervals must not be negative", ErrInvalidConfig)
		}
		if !ratio(w.Thresholds.BusyCPU) || !ratio(w.Thresholds.BusyMemory) {
			return fmt.Errorf("%w: worker thresholds must be in (0, 1]", ErrInvalidConfig)
		}
	}
	return nil
}

// LogConfig returns the settings for log.Init
func (c *Config) LogConfig() log.Config {
	return log.Config{
		Level:      log.ParseLevel(c.Log.Level),
		JSONOutput: c.Log.JSON,
		Output:     os.Stdout,
	}
}

func ratio(v float64) bool {
	return v > 0 && v <= 1
}
