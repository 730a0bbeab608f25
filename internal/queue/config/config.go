package config

import (
	"errors"
	"fmt"
	"time"
)

// Strategy selects how the queue reacts when an enqueue would exceed MaxSize.
type Strategy string

const (
	// StrategyDropOldest evicts the single oldest buffered message and
	// accepts the incoming one.
	StrategyDropOldest Strategy = "dropOldest"
	// StrategyDropNewest rejects the incoming message and leaves the queue
	// unchanged.
	StrategyDropNewest Strategy = "dropNewest"
	// StrategyBlock suspends the caller until a drain tick or clear frees
	// space.
	StrategyBlock Strategy = "block"
	// StrategyError fails the enqueue immediately with ErrQueueFull.
	StrategyError Strategy = "error"
)

// Valid reports whether s names a known overflow strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyDropOldest, StrategyDropNewest, StrategyBlock, StrategyError:
		return true
	}
	return false
}

// Defaults applied by WithDefaults for zero-valued fields.
const (
	DefaultMaxSize            = 10000
	DefaultBatchSize          = 100
	DefaultProcessingInterval = 10 * time.Millisecond

	// Water marks default to fractions of MaxSize.
	defaultHighWaterRatio = 0.8
	defaultLowWaterRatio  = 0.5
)

// Config groups the queue settings fixed at construction. Zero values fall
// back to the documented defaults; call Validate (or construct through the
// queue package, which validates for you) before use.
type Config struct {
	// MaxSize bounds the number of buffered messages. Defaults to 10000.
	MaxSize int

	// BatchSize caps how many messages one scheduler tick hands to the
	// processor. Defaults to 100.
	BatchSize int

	// ProcessingInterval is the scheduler tick period. Defaults to 10ms.
	ProcessingInterval time.Duration

	// Strategy applies when an enqueue finds the queue full. Defaults to
	// StrategyDropOldest.
	Strategy Strategy

	// HighWaterMark starts an active backpressure condition when the size
	// reaches it. Defaults to 80% of MaxSize.
	HighWaterMark int

	// LowWaterMark ends an active backpressure condition when the size falls
	// to it. Defaults to 50% of MaxSize. Must stay below HighWaterMark so the
	// condition cannot flap at a single threshold.
	LowWaterMark int

	// PriorityEnabled switches the store from strict FIFO to priority-class
	// ordering (high before normal before low, FIFO within a class).
	PriorityEnabled bool

	// Metrics configuration.
	MetricsEnabled bool
	// MetricsPort is the port where Prometheus metrics will be exposed.
	// Zero leaves exposition to the caller.
	MetricsPort int
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
// Water marks are derived from the (possibly defaulted) MaxSize.
func (c Config) WithDefaults() Config {
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ProcessingInterval <= 0 {
		c.ProcessingInterval = DefaultProcessingInterval
	}
	if c.Strategy == "" {
		c.Strategy = StrategyDropOldest
	}
	if c.HighWaterMark <= 0 {
		c.HighWaterMark = int(float64(c.MaxSize) * defaultHighWaterRatio)
		// Small MaxSize values round the mark down to zero; clamp so the
		// derived marks always validate.
		if c.HighWaterMark < 1 {
			c.HighWaterMark = 1
		}
	}
	if c.LowWaterMark <= 0 {
		c.LowWaterMark = int(float64(c.MaxSize) * defaultLowWaterRatio)
		if c.LowWaterMark >= c.HighWaterMark {
			c.LowWaterMark = c.HighWaterMark - 1
		}
	}
	return c
}

// Validate checks the configuration after defaults have been applied.
// Returns an error describing every violated constraint.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateSizes()...)
	errs = append(errs, c.validateWaterMarks()...)
	errs = append(errs, c.validateStrategy()...)
	errs = append(errs, c.validatePorts()...)

	return errors.Join(errs...)
}

func (c *Config) validateSizes() []error {
	var errs []error
	if c.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("max size must be positive, got %d", c.MaxSize))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.ProcessingInterval <= 0 {
		errs = append(errs, fmt.Errorf("processing interval must be positive, got %s", c.ProcessingInterval))
	}
	return errs
}

func (c *Config) validateWaterMarks() []error {
	var errs []error
	if c.LowWaterMark < 0 {
		errs = append(errs, fmt.Errorf("low water mark cannot be negative, got %d", c.LowWaterMark))
	}
	if c.LowWaterMark >= c.HighWaterMark {
		errs = append(errs, fmt.Errorf("low water mark %d must be below high water mark %d", c.LowWaterMark, c.HighWaterMark))
	}
	if c.HighWaterMark > c.MaxSize {
		errs = append(errs, fmt.Errorf("high water mark %d cannot exceed max size %d", c.HighWaterMark, c.MaxSize))
	}
	return errs
}

func (c *Config) validateStrategy() []error {
	if !c.Strategy.Valid() {
		return []error{fmt.Errorf("unknown backpressure strategy %q", c.Strategy)}
	}
	return nil
}

func (c *Config) validatePorts() []error {
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return []error{fmt.Errorf("metrics: invalid port %d", c.MetricsPort)}
	}
	return nil
}

// ValidateConfig applies defaults and validates the result in one call.
// Returns the normalised config on success.
func ValidateConfig(c *Config) (Config, error) {
	if c == nil {
		return Config{}, errors.New("config is nil")
	}
	normalised := c.WithDefaults()
	if err := normalised.Validate(); err != nil {
		return Config{}, err
	}
	return normalised, nil
}
