package scoring

import (
	"strings"

	"reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Tiered tolerances for the amount score. Amounts within a cent are treated
// as currency-rounding noise; within a dollar as a likely fee or FX artifact.
var (
	centTolerance   = decimal.NewFromFloat(0.01)
	dollarTolerance = decimal.NewFromFloat(1.00)
)

// MerchantScorer scores merchant identity similarity between a bank and book
// transaction. The production implementation is a fixed constant; the
// interface is the extension point for real merchant-identity resolution.
type MerchantScorer interface {
	ScoreMerchant(bank *models.BankTransaction, book *models.BookTransaction) float64
}

// PatternScorer scores recurring-pattern similarity. Like MerchantScorer it
// currently returns a fixed constant and exists as an extension seam.
type PatternScorer interface {
	ScorePattern(bank *models.BankTransaction, book *models.BookTransaction) float64
}

// StaticMerchantScorer returns a fixed merchant score for every pair.
type StaticMerchantScorer struct {
	Score float64
}

// ScoreMerchant returns the configured constant
func (s StaticMerchantScorer) ScoreMerchant(*models.BankTransaction, *models.BookTransaction) float64 {
	return s.Score
}

// StaticPatternScorer returns a fixed pattern score for every pair.
type StaticPatternScorer struct {
	Score float64
}

// ScorePattern returns the configured constant
func (s StaticPatternScorer) ScorePattern(*models.BankTransaction, *models.BookTransaction) float64 {
	return s.Score
}

// FieldScorer computes the five per-field similarity scores for a pair.
// Scoring is pure: identical inputs always produce identical scores.
type FieldScorer struct {
	merchant MerchantScorer
	pattern  PatternScorer
}

// FieldScorerOption customizes a FieldScorer
type FieldScorerOption func(*FieldScorer)

// WithMerchantScorer replaces the default merchant scoring strategy
func WithMerchantScorer(s MerchantScorer) FieldScorerOption {
	return func(fs *FieldScorer) {
		fs.merchant = s
	}
}

// WithPatternScorer replaces the default pattern scoring strategy
func WithPatternScorer(s PatternScorer) FieldScorerOption {
	return func(fs *FieldScorer) {
		fs.pattern = s
	}
}

// NewFieldScorer creates a field scorer with the default static merchant and
// pattern strategies, overridable via options
func NewFieldScorer(opts ...FieldScorerOption) *FieldScorer {
	fs := &FieldScorer{
		merchant: StaticMerchantScorer{Score: 0.5},
		pattern:  StaticPatternScorer{Score: 0.6},
	}

	for _, opt := range opts {
		opt(fs)
	}

	return fs
}

// Score computes all five field scores for the pair
func (fs *FieldScorer) Score(bank *models.BankTransaction, book *models.BookTransaction) models.FieldScores {
	return models.FieldScores{
		AmountMatch:      fs.scoreAmount(bank.Amount, book.Amount),
		DateMatch:        fs.scoreDate(bank, book),
		DescriptionMatch: fs.scoreDescription(bank.Description, book.Description),
		MerchantMatch:    fs.merchant.ScoreMerchant(bank, book),
		PatternMatch:     fs.pattern.ScorePattern(bank, book),
	}
}

// scoreAmount applies the tiered amount comparison: exact equality scores
// 1.0, a difference within one cent 0.9, within one dollar 0.7, otherwise 0.
func (fs *FieldScorer) scoreAmount(a, b decimal.Decimal) float64 {
	if a.Equal(b) {
		return 1.0
	}

	diff := a.Sub(b).Abs()
	switch {
	case diff.LessThanOrEqual(centTolerance):
		return 0.9
	case diff.LessThanOrEqual(dollarTolerance):
		return 0.7
	default:
		return 0.0
	}
}

// scoreDate applies the tiered calendar-day comparison. The day difference is
// absolute, so the score is symmetric in its arguments.
func (fs *FieldScorer) scoreDate(bank *models.BankTransaction, book *models.BookTransaction) float64 {
	days := models.DayDifference(bank.Date, book.Date)

	switch {
	case days == 0:
		return 1.0
	case days <= 1:
		return 0.9
	case days <= 3:
		return 0.7
	case days <= 7:
		return 0.5
	default:
		return 0.0
	}
}

// scoreDescription compares descriptions case-insensitively: exact equality
// scores 1.0, substring containment 0.8, otherwise the ratio of shared
// whitespace tokens to the larger distinct-token count. Repeated tokens
// count once on both sides, so "pay pay vendor" and "pay vendor" overlap
// fully.
func (fs *FieldScorer) scoreDescription(a, b string) float64 {
	na := models.NormalizeDescription(a)
	nb := models.NormalizeDescription(b)

	if na == nb {
		return 1.0
	}

	if na != "" && nb != "" && (strings.Contains(na, nb) || strings.Contains(nb, na)) {
		return 0.8
	}

	tokensA := models.TokenizeDescription(a)
	tokensB := models.TokenizeDescription(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	setA := make(map[string]bool, len(tokensA))
	for _, tok := range tokensA {
		setA[tok] = true
	}

	setB := make(map[string]bool, len(tokensB))
	for _, tok := range tokensB {
		setB[tok] = true
	}

	common := 0
	for tok := range setB {
		if setA[tok] {
			common++
		}
	}

	max := len(setA)
	if len(setB) > max {
		max = len(setB)
	}

	return float64(common) / float64(max)
}
