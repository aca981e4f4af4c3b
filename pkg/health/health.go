package health

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CheckType represents the type of liveness check
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
	CheckTypeTCP  CheckType = "tcp"
)

// ErrInvalidConfig is returned for unusable liveness settings
var ErrInvalidConfig = errors.New("invalid liveness configuration")

// Result is the outcome of one check. Message holds the failure cause.
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

func finish(start time.Time, err error) Result {
	r := Result{Healthy: err == nil, CheckedAt: start, Duration: time.Since(start)}
	if err != nil {
		r.Message = err.Error()
	}
	return r
}

// Checker is the interface that all liveness checkers must implement
type Checker interface {
	// Check performs the check and returns the result
	Check(ctx context.Context) Result

	// Type returns the type of check
	Type() CheckType
}

// Config controls active liveness checks of statically declared workers
type Config struct {
	Enabled bool `yaml:"enabled"`

	// Type selects a TCP connect or an HTTP GET against the worker address
	Type CheckType `yaml:"type"`

	// Path is requested by HTTP checks
	Path string `yaml:"path"`

	// Interval is the time between check rounds
	Interval time.Duration `yaml:"interval"`

	// Timeout bounds a single check
	Timeout time.Duration `yaml:"timeout"`

	// Retries is the number of consecutive failures before a worker is
	// marked ABNORMAL
	Retries int `yaml:"retries"`
}

// DefaultConfig returns a disabled TCP check every 10 seconds
func DefaultConfig() Config {
	return Config{
		Type:     CheckTypeTCP,
		Path:     "/health",
		Interval: 10 * time.Second,
		Timeout:  2 * time.Second,
		Retries:  3,
	}
}

// Validate checks the settings used when checks are enabled
func (c Config) Validate() error {
	switch c.Type {
	case CheckTypeTCP, CheckTypeHTTP:
	default:
		return fmt.Errorf("%w: unknown check type %q", ErrInvalidConfig, c.Type)
	}
	if c.Interval <= 0 || c.Timeout <= 0 {
		return fmt.Errorf("%w: interval and timeout must be positive", ErrInvalidConfig)
	}
	if c.Retries < 1 {
		return fmt.Errorf("%w: retries must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// NewChecker builds the checker the config names for a worker address
func (c Config) NewChecker(address string) Checker {
	if c.Type == CheckTypeHTTP {
		return NewHTTPChecker("http://"+address+c.Path, c.Timeout)
	}
	return NewTCPChecker(address, c.Timeout)
}

// Status tracks the check history of one worker
type Status struct {
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastResult           Result

	// Healthy starts true and turns false after retries consecutive failures
	Healthy bool
}

// NewStatus creates a status that assumes the worker is healthy
func NewStatus() *Status {
	return &Status{Healthy: true}
}

// Update folds a new result into the status. A single success restores
// health.
func (s *Status) Update(result Result, retries int) {
	s.LastResult = result

	if result.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0
		s.Healthy = true
		return
	}

	s.ConsecutiveFailures++
	s.ConsecutiveSuccesses = 0
	if s.ConsecutiveFailures >= retries {
		s.Healthy = false
	}
}
