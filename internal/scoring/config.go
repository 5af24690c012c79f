// Package scoring implements per-field similarity scoring and the weighted
// confidence combiner used by the transaction matcher.
//
// Five independent field scores are computed for a (bank, book) pair: amount,
// date, description, merchant and pattern. Each score is in [0,1]. The
// combiner folds them into a single confidence value using configurable
// weights, classifies the match into a discrete match type, and assembles a
// list of human-readable reasoning factors.
//
// Example usage:
//
//	scorer := scoring.NewFieldScorer()
//	combiner := scoring.NewCombiner(scoring.DefaultConfig())
//
//	scores := scorer.Score(bankTx, bookTx)
//	confidence, matchType, reasons := combiner.Combine(scores)
package scoring

import (
	"fmt"
	"math"
)

// Weights defines the relative importance of each field score in the combined
// confidence. Weights must sum to 1.0 so confidence stays within [0,1].
type Weights struct {
	Amount      float64 `json:"amount" mapstructure:"amount"`
	Date        float64 `json:"date" mapstructure:"date"`
	Description float64 `json:"description" mapstructure:"description"`
	Merchant    float64 `json:"merchant" mapstructure:"merchant"`
	Pattern     float64 `json:"pattern" mapstructure:"pattern"`
}

// Validate checks that every weight is in [0,1] and the weights sum to 1.0
func (w *Weights) Validate() error {
	fields := map[string]float64{
		"amount":      w.Amount,
		"date":        w.Date,
		"description": w.Description,
		"merchant":    w.Merchant,
		"pattern":     w.Pattern,
	}

	for name, v := range fields {
		if v < 0.0 || v > 1.0 {
			return fmt.Errorf("%s weight must be between 0.0 and 1.0: %f", name, v)
		}
	}

	total := w.Amount + w.Date + w.Description + w.Merchant + w.Pattern
	if math.Abs(total-1.0) > 0.001 {
		return fmt.Errorf("weights must sum to 1.0, got %f", total)
	}

	return nil
}

// Config holds the tunable parameters of field scoring and confidence
// combination. Weights and thresholds are configuration rather than literals
// so they can be tuned per tenant and exercised with synthetic values in tests.
type Config struct {
	Weights Weights `json:"weights" mapstructure:"weights"`

	// ExactAmountThreshold is the amount score above which the pair counts as
	// an exact-amount match for classification and reasoning
	ExactAmountThreshold float64 `json:"exact_amount_threshold" mapstructure:"exact_amount_threshold"`

	// CloseDateThreshold is the date score above which the pair counts as a
	// close date match
	CloseDateThreshold float64 `json:"close_date_threshold" mapstructure:"close_date_threshold"`

	// DescriptionThreshold is the description score above which description
	// similarity is cited as a reasoning factor
	DescriptionThreshold float64 `json:"description_threshold" mapstructure:"description_threshold"`
}

// DefaultConfig returns the production scoring configuration
func DefaultConfig() *Config {
	return &Config{
		Weights: Weights{
			Amount:      0.4,
			Date:        0.2,
			Description: 0.2,
			Merchant:    0.1,
			Pattern:     0.1,
		},
		ExactAmountThreshold: 0.9,
		CloseDateThreshold:   0.8,
		DescriptionThreshold: 0.7,
	}
}

// Validate checks if the scoring configuration is valid
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}

	thresholds := map[string]float64{
		"exact_amount_threshold": c.ExactAmountThreshold,
		"close_date_threshold":   c.CloseDateThreshold,
		"description_threshold":  c.DescriptionThreshold,
	}
	for name, v := range thresholds {
		if v < 0.0 || v > 1.0 {
			return fmt.Errorf("%s must be between 0.0 and 1.0: %f", name, v)
		}
	}

	return nil
}

// Clone creates a copy of the scoring configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}
