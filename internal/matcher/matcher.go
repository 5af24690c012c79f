package matcher

import (
	"sort"

	"reconciliation-engine/internal/models"
	"reconciliation-engine/internal/scoring"

	"github.com/sourcegraph/conc/iter"
)

// Matcher orchestrates candidate retrieval, scoring and assignment.
type Matcher struct {
	config   *Config
	scorer   *scoring.FieldScorer
	combiner *scoring.Combiner
}

// MatchOutcome is the result of one matching pass.
type MatchOutcome struct {
	Matches   []*models.MatchResult
	Unmatched []*models.BankTransaction
}

// candidateScore is one scored candidate pair awaiting assignment.
type candidateScore struct {
	book      *models.BookTransaction
	bookOrder int
	result    *models.MatchResult
}

// NewMatcher creates a matcher with the given configuration and scoring
// components, falling back to defaults for any nil argument
func NewMatcher(config *Config, scorer *scoring.FieldScorer, combiner *scoring.Combiner) *Matcher {
	if config == nil {
		config = DefaultConfig()
	}

	if scorer == nil {
		scorer = scoring.NewFieldScorer()
	}

	if combiner == nil {
		combiner = scoring.NewCombiner(nil)
	}

	return &Matcher{
		config:   config,
		scorer:   scorer,
		combiner: combiner,
	}
}

// Config returns a copy of the matcher configuration
func (m *Matcher) Config() *Config {
	return m.config.Clone()
}

// Score evaluates a single (bank, book) pair and returns the full match
// result regardless of threshold. Scoring has no hidden state: calling it
// twice with the same inputs yields identical output.
func (m *Matcher) Score(bank *models.BankTransaction, book *models.BookTransaction) *models.MatchResult {
	scores := m.scorer.Score(bank, book)
	confidence, matchType, reasons := m.combiner.Combine(scores)

	return &models.MatchResult{
		BankTransaction: bank,
		BookTransaction: book,
		Confidence:      confidence,
		MatchType:       matchType,
		Reasoning:       reasons,
	}
}

// Match runs the full matching pass: candidates are scored in parallel per
// bank transaction, then assigned greedily one-to-one in bank input order
// with each transaction taking its best unconsumed candidate above the
// acceptance threshold.
//
// Unmatched transactions are computed independently of assignment: a bank
// transaction is unmatched when no book transaction passes the coarse
// amount/date proximity test at all.
func (m *Matcher) Match(bank []*models.BankTransaction, book []*models.BookTransaction) *MatchOutcome {
	index := NewBookIndex(book)

	bookOrder := make(map[*models.BookTransaction]int, len(book))
	for i, b := range book {
		bookOrder[b] = i
	}

	// Stage 1: pure scoring, parallel across bank transactions. iter.Map
	// preserves input order, so the output is deterministic.
	ranked := iter.Map(bank, func(bt **models.BankTransaction) []*candidateScore {
		return m.rankCandidates(*bt, index, bookOrder)
	})

	// Stage 2: sequential greedy assignment consuming book transactions.
	consumed := make(map[*models.BookTransaction]bool, len(book))
	var matches []*models.MatchResult

	for _, candidates := range ranked {
		for _, cand := range candidates {
			if consumed[cand.book] {
				continue
			}

			matches = append(matches, cand.result)
			consumed[cand.book] = true
			break
		}
	}

	// Unmatched via the proximity test, in bank input order.
	var unmatched []*models.BankTransaction
	for _, bt := range bank {
		if !index.HasProximateMatch(bt, m.config) {
			unmatched = append(unmatched, bt)
		}
	}

	return &MatchOutcome{
		Matches:   matches,
		Unmatched: unmatched,
	}
}

// rankCandidates scores the candidate set for one bank transaction and
// returns those above the acceptance threshold, best first. Ties on
// confidence break by book input order to keep assignment deterministic.
func (m *Matcher) rankCandidates(bank *models.BankTransaction, index *BookIndex, bookOrder map[*models.BookTransaction]int) []*candidateScore {
	candidates := index.GetCandidates(bank, m.config)
	if len(candidates) == 0 {
		return nil
	}

	var scored []*candidateScore
	for _, book := range candidates {
		result := m.Score(bank, book)
		if result.Confidence > m.config.MinConfidence {
			scored = append(scored, &candidateScore{
				book:      book,
				bookOrder: bookOrder[book],
				result:    result,
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].result.Confidence != scored[j].result.Confidence {
			return scored[i].result.Confidence > scored[j].result.Confidence
		}
		return scored[i].bookOrder < scored[j].bookOrder
	})

	return scored
}
