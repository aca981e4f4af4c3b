package balancer

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/registry"
)

// Type names a worker selection strategy
type Type string

const (
	TypeRandom                    Type = "RANDOM"
	TypeRoundRobin                Type = "ROUND_ROBIN"
	TypeFixedWeightedRoundRobin   Type = "FIXED_WEIGHTED_ROUND_ROBIN"
	TypeDynamicWeightedRoundRobin Type = "DYNAMIC_WEIGHTED_ROUND_ROBIN"
)

// Types lists every supported strategy
var Types = []Type{
	TypeRandom,
	TypeRoundRobin,
	TypeFixedWeightedRoundRobin,
	TypeDynamicWeightedRoundRobin,
}

var ErrInvalidConfig = errors.New("invalid load balancer configuration")

// ParseType converts a strategy name, case-insensitively
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Types {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown type %q", ErrInvalidConfig, s)
}

// LoadBalancer picks a worker address for a task's worker group
type LoadBalancer interface {
	// Select returns a NORMAL worker of group, or false when none is available
	Select(group string) (string, bool)

	// Type returns the strategy implemented
	Type() Type

	// Close releases any registry subscription held by the balancer
	Close() error
}

// ExcludingSelector is implemented by balancers that can leave one address
// out of a selection
type ExcludingSelector interface {
	SelectExcluding(group, exclude string) (string, bool)
}

// SelectExcluding picks a worker of group other than exclude. exclude is only
// returned when it is the group's sole live worker. Balancers that are not an
// ExcludingSelector are asked once more instead.
func SelectExcluding(lb LoadBalancer, group, exclude string) (string, bool) {
	if es, ok := lb.(ExcludingSelector); ok && exclude != "" {
		return es.SelectExcluding(group, exclude)
	}
	picked, ok := lb.Select(group)
	if ok && picked == exclude {
		if alt, ok := lb.Select(group); ok {
			return alt, true
		}
	}
	return picked, ok
}

// without drops exclude from the sorted address list unless nothing else
// would be left
func without(addrs []string, exclude string) []string {
	if exclude == "" || len(addrs) < 2 {
		return addrs
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a != exclude {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return addrs
	}
	return out
}

// DynamicWeights are the percentages given to cpu, memory and queue usage
// when computing dynamic worker weights
type DynamicWeights struct {
	CPU    int `yaml:"cpuWeight" json:"cpuWeight"`
	Memory int `yaml:"memoryWeight" json:"memoryWeight"`
	Queue  int `yaml:"queueWeight" json:"queueWeight"`
}

// DefaultDynamicWeights returns the default cpu/memory/queue split
func DefaultDynamicWeights() DynamicWeights {
	return DynamicWeights{CPU: 30, Memory: 40, Queue: 30}
}

// Validate checks every weight is non-negative and that they sum to 100
func (w DynamicWeights) Validate() error {
	if w.CPU < 0 || w.Memory < 0 || w.Queue < 0 {
		return fmt.Errorf("%w: dynamic weights must be >= 0 (cpu=%d, memory=%d, queue=%d)",
			ErrInvalidConfig, w.CPU, w.Memory, w.Queue)
	}
	if sum := w.CPU + w.Memory + w.Queue; sum != 100 {
		return fmt.Errorf("%w: dynamic weights must sum to 100, got %d (cpu=%d, memory=%d, queue=%d)",
			ErrInvalidConfig, sum, w.CPU, w.Memory, w.Queue)
	}
	return nil
}

// Config selects and tunes the strategy
type Config struct {
	Type    Type           `yaml:"type" json:"type"`
	Dynamic DynamicWeights `yaml:"dynamic" json:"dynamic"`
}

// DefaultConfig returns the dynamic weighted strategy with default weights
func DefaultConfig() Config {
	return Config{
		Type:    TypeDynamicWeightedRoundRobin,
		Dynamic: DefaultDynamicWeights(),
	}
}

// Validate rejects unknown strategies and, for the dynamic strategy, bad weights
func (c Config) Validate() error {
	if _, err := ParseType(string(c.Type)); err != nil {
		return err
	}
	if c.Type == TypeDynamicWeightedRoundRobin {
		return c.Dynamic.Validate()
	}
	return nil
}

// New builds the balancer named by cfg on top of reg
func New(cfg Config, reg *registry.Registry) (LoadBalancer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrInvalidConfig)
	}

	switch cfg.Type {
	case TypeRandom:
		return NewRandom(reg), nil
	case TypeRoundRobin:
		return NewRoundRobin(reg), nil
	case TypeFixedWeightedRoundRobin:
		return NewFixedWeighted(reg), nil
	default:
		return NewDynamicWeighted(reg, cfg.Dynamic), nil
	}
}

// record counts a selection outcome
func record(t Type, ok bool) {
	result := "selected"
	if !ok {
		result = "empty"
	}
	metrics.SelectionsTotal.WithLabelValues(string(t), result).Inc()
}

// counters hands out one monotonically increasing counter per group
type counters struct {
	m sync.Map // group -> *atomic.Uint64
}

func (c *counters) next(group string) uint64 {
	v, ok := c.m.Load(group)
	if !ok {
		v, _ = c.m.LoadOrStore(group, new(atomic.Uint64))
	}
	return v.(*atomic.Uint64).Add(1) - 1
}
