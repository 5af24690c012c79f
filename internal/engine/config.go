package engine

import (
	"fmt"

	"reconciliation-engine/internal/anomaly"
	"reconciliation-engine/internal/fees"
	"reconciliation-engine/internal/matcher"
	"reconciliation-engine/internal/scoring"
)

// Config aggregates the configuration of every engine stage
type Config struct {
	Scoring  *scoring.Config `json:"scoring" yaml:"scoring"`
	Matching *matcher.Config `json:"matching" yaml:"matching"`
	Anomaly  *anomaly.Config `json:"anomaly" yaml:"anomaly"`
	Fees     *fees.Schedule  `json:"fees" yaml:"fees"`

	// MaxBatchConcurrency caps the number of accounts reconciled in
	// parallel during a batch run. Zero means one goroutine per account.
	MaxBatchConcurrency int `json:"max_batch_concurrency" yaml:"max_batch_concurrency"`
}

// DefaultConfig returns a Config with every stage at its defaults
func DefaultConfig() *Config {
	return &Config{
		Scoring:  scoring.DefaultConfig(),
		Matching: matcher.DefaultConfig(),
		Anomaly:  anomaly.DefaultConfig(),
		Fees:     fees.DefaultSchedule(),
	}
}

// Validate checks every stage configuration
func (c *Config) Validate() error {
	if c.Scoring == nil {
		return fmt.Errorf("scoring config is required")
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring config: %w", err)
	}

	if c.Matching == nil {
		return fmt.Errorf("matching config is required")
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("matching config: %w", err)
	}

	if c.Anomaly == nil {
		return fmt.Errorf("anomaly config is required")
	}
	if err := c.Anomaly.Validate(); err != nil {
		return fmt.Errorf("anomaly config: %w", err)
	}

	if c.Fees == nil {
		return fmt.Errorf("fee schedule is required")
	}
	if err := c.Fees.Validate(); err != nil {
		return fmt.Errorf("fee schedule: %w", err)
	}

	if c.MaxBatchConcurrency < 0 {
		return fmt.Errorf("max batch concurrency cannot be negative, got %d", c.MaxBatchConcurrency)
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := &Config{
		MaxBatchConcurrency: c.MaxBatchConcurrency,
	}

	if c.Scoring != nil {
		clone.Scoring = c.Scoring.Clone()
	}
	if c.Matching != nil {
		clone.Matching = c.Matching.Clone()
	}
	if c.Anomaly != nil {
		clone.Anomaly = c.Anomaly.Clone()
	}
	if c.Fees != nil {
		clone.Fees = c.Fees.Clone()
	}

	return clone
}
