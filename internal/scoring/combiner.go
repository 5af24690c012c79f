package scoring

import (
	"reconciliation-engine/internal/models"
)

// Combiner folds field scores into a single confidence value, a discrete
// match type, and a list of reasoning factors.
type Combiner struct {
	config *Config
}

// NewCombiner creates a combiner with the given configuration, falling back
// to defaults when nil
func NewCombiner(config *Config) *Combiner {
	if config == nil {
		config = DefaultConfig()
	}

	return &Combiner{config: config}
}

// Config returns a copy of the combiner configuration
func (c *Combiner) Config() *Config {
	return c.config.Clone()
}

// Combine computes the weighted confidence, classifies the match type, and
// assembles reasoning for the given field scores. Because weights sum to 1.0
// and every field score is in [0,1], confidence is always in [0,1].
func (c *Combiner) Combine(scores models.FieldScores) (float64, models.MatchType, []string) {
	w := c.config.Weights

	confidence := scores.AmountMatch*w.Amount +
		scores.DateMatch*w.Date +
		scores.DescriptionMatch*w.Description +
		scores.MerchantMatch*w.Merchant +
		scores.PatternMatch*w.Pattern

	return confidence, c.classify(scores), c.reasoning(scores)
}

// classify buckets the pair into a match type. Evaluation order matters:
// the first satisfied rule wins.
func (c *Combiner) classify(scores models.FieldScores) models.MatchType {
	switch {
	case scores.AmountMatch > 0.9 && scores.DateMatch > 0.8:
		return models.MatchExact
	case scores.AmountMatch > 0.7 && scores.DateMatch > 0.6:
		return models.MatchHighConfidence
	case scores.AmountMatch > 0.5:
		return models.MatchMediumConfidence
	default:
		return models.MatchLowConfidence
	}
}

// reasoning lists the plain-language factors for whichever scores clear
// their thresholds, falling back to a single low-confidence note
func (c *Combiner) reasoning(scores models.FieldScores) []string {
	var reasons []string

	if scores.AmountMatch > c.config.ExactAmountThreshold {
		reasons = append(reasons, "Exact amount match")
	}

	if scores.DateMatch > c.config.CloseDateThreshold {
		reasons = append(reasons, "Close date match")
	}

	if scores.DescriptionMatch > c.config.DescriptionThreshold {
		reasons = append(reasons, "Description similarity")
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "Low confidence match")
	}

	return reasons
}
