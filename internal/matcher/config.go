// Package matcher implements candidate selection and match assignment between
// bank and book transactions.
//
// Matching runs in three stages:
//  1. Candidate selection via indexed amount/date proximity lookups
//  2. Field scoring and confidence combination per candidate pair
//  3. Greedy one-to-one assignment, best candidate first, in bank input order
//
// Scoring is pure, so stage 2 is parallelized across bank transactions;
// stage 3 consumes its output sequentially to keep results deterministic.
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the matcher's candidate-selection and acceptance parameters.
type Config struct {
	// AmountProximity is the strict upper bound on the amount difference for
	// a book transaction to be considered a candidate
	AmountProximity decimal.Decimal `json:"amount_proximity"`

	// DateToleranceDays is the candidate window in calendar days
	DateToleranceDays int `json:"date_tolerance_days"`

	// MinConfidence is the exclusive acceptance threshold: a match is kept
	// only when its confidence is strictly greater than this value
	MinConfidence float64 `json:"min_confidence"`

	// MaxCandidatesPerTransaction bounds the candidate set per bank
	// transaction; zero means unbounded
	MaxCandidatesPerTransaction int `json:"max_candidates_per_transaction"`
}

// DefaultConfig returns the production matching configuration
func DefaultConfig() *Config {
	return &Config{
		AmountProximity:             decimal.NewFromFloat(0.01),
		DateToleranceDays:           3,
		MinConfidence:               0.8,
		MaxCandidatesPerTransaction: 10,
	}
}

// Validate checks if the matching configuration is valid
func (c *Config) Validate() error {
	if c.AmountProximity.IsNegative() || c.AmountProximity.IsZero() {
		return fmt.Errorf("amount proximity must be positive: %s", c.AmountProximity)
	}

	if c.DateToleranceDays < 0 {
		return fmt.Errorf("date tolerance days cannot be negative: %d", c.DateToleranceDays)
	}

	if c.MinConfidence < 0.0 || c.MinConfidence > 1.0 {
		return fmt.Errorf("min confidence must be between 0.0 and 1.0: %f", c.MinConfidence)
	}

	if c.MaxCandidatesPerTransaction < 0 {
		return fmt.Errorf("max candidates per transaction cannot be negative: %d", c.MaxCandidatesPerTransaction)
	}

	return nil
}

// Clone creates a copy of the matching configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}

// String returns a human-readable description of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{AmountProximity: %s, DateTolerance: %d days, MinConfidence: %.2f}",
		c.AmountProximity, c.DateToleranceDays, c.MinConfidence)
}
