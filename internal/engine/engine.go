// Package engine orchestrates the reconciliation pipeline: matching,
// anomaly detection, fee breakout, and exception resolution. The engine is
// the only package callers need; the stage packages underneath it are
// composed here.
//
// Input records are validated up front: a malformed transaction rejects the
// run immediately, identified by ID and position. Past that boundary,
// failure isolation governs: a failed fee breakout is recorded as an item
// error and processing continues.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"reconciliation-engine/internal/anomaly"
	"reconciliation-engine/internal/exceptions"
	"reconciliation-engine/internal/fees"
	"reconciliation-engine/internal/matcher"
	"reconciliation-engine/internal/models"
	"reconciliation-engine/internal/scoring"
	"reconciliation-engine/internal/store"
	"reconciliation-engine/pkg/errors"
	"reconciliation-engine/pkg/logger"
)

// Engine runs reconciliation over bank and book transaction sets
type Engine struct {
	config     *Config
	matcher    *matcher.Matcher
	detector   *anomaly.Detector
	calculator *fees.Calculator
	resolver   exceptions.Resolver
	snapshots  store.Store
	log        logger.Logger
}

// Option configures optional engine collaborators
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithStore sets a snapshot store; without one, results are not persisted
func WithStore(s store.Store) Option {
	return func(e *Engine) {
		e.snapshots = s
	}
}

// WithResolver sets the exception resolution strategy
func WithResolver(r exceptions.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// NewEngine creates an engine from the given configuration. A nil config
// uses defaults; an invalid config is rejected.
func NewEngine(config *Config, opts ...Option) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, errors.CodeInvalidConfig, "invalid engine configuration")
	}

	scorer := scoring.NewFieldScorer()
	combiner := scoring.NewCombiner(config.Scoring)

	e := &Engine{
		config:     config,
		matcher:    matcher.NewMatcher(config.Matching, scorer, combiner),
		detector:   anomaly.NewDetector(config.Anomaly),
		calculator: fees.NewCalculator(config.Fees),
		resolver:   exceptions.NewManualReviewResolver(),
		log:        logger.Default().WithComponent("engine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Config returns the engine configuration
func (e *Engine) Config() *Config {
	return e.config
}

// Reconcile runs the full pipeline over the given transaction sets and
// returns an immutable snapshot of the outcome. The first invalid
// transaction fails the run with a validation error naming the record and
// its position; nil entries are skipped.
func (e *Engine) Reconcile(ctx context.Context, bank []*models.BankTransaction, book []*models.BookTransaction) (*models.ReconciliationResult, error) {
	return e.reconcileAccount(ctx, "", bank, book)
}

func (e *Engine) reconcileAccount(ctx context.Context, accountID string, bank []*models.BankTransaction, book []*models.BookTransaction) (*models.ReconciliationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	log := e.log
	if accountID != "" {
		log = log.WithField("account_id", accountID)
	}

	validBank, validBook, err := e.validateInputs(bank, book)
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"bank_count": len(validBank),
		"book_count": len(validBook),
	}).Info("starting reconciliation")

	outcome := e.matcher.Match(validBank, validBook)

	report, err := e.DetectSuspiciousActivity(ctx, validBank, outcome.Matches)
	if err != nil {
		return nil, err
	}

	excs, err := exceptions.Classify(ctx, e.resolver, outcome.Unmatched)
	if err != nil {
		return nil, err
	}

	result := &models.ReconciliationResult{
		SnapshotID:        uuid.NewString(),
		AccountID:         accountID,
		BankCount:         len(validBank),
		BookCount:         len(validBook),
		Matches:           outcome.Matches,
		Unmatched:         outcome.Unmatched,
		Suspicious:        report.Records,
		Exceptions:        excs,
		OverallConfidence: overallConfidence(outcome.Matches, len(validBank)),
		CreatedAt:         time.Now().UTC(),
	}

	if e.snapshots != nil {
		if err := e.snapshots.SaveSnapshot(ctx, result); err != nil {
			return nil, err
		}
	}

	log.WithFields(map[string]interface{}{
		"snapshot_id":        result.SnapshotID,
		"matches":            len(result.Matches),
		"unmatched":          len(result.Unmatched),
		"suspicious":         len(result.Suspicious),
		"overall_confidence": result.OverallConfidence,
		"duration":           time.Since(start).String(),
	}).Info("reconciliation complete")

	return result, nil
}

// ReconcileFrom loads both transaction sets from providers and runs the
// full pipeline
func (e *Engine) ReconcileFrom(ctx context.Context, bankFeed BankFeedProvider, ledger LedgerProvider) (*models.ReconciliationResult, error) {
	bank, err := bankFeed.BankTransactions(ctx)
	if err != nil {
		return nil, err
	}

	book, err := ledger.BookTransactions(ctx)
	if err != nil {
		return nil, err
	}

	return e.Reconcile(ctx, bank, book)
}

// FindMatches runs only the matching stage
func (e *Engine) FindMatches(ctx context.Context, bank []*models.BankTransaction, book []*models.BookTransaction) (*matcher.MatchOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	validBank, validBook, err := e.validateInputs(bank, book)
	if err != nil {
		return nil, err
	}

	return e.matcher.Match(validBank, validBook), nil
}

// ScoreMatch evaluates a single bank/book pair. Scoring is pure: the same
// pair always yields the same result.
func (e *Engine) ScoreMatch(bank *models.BankTransaction, book *models.BookTransaction) *models.MatchResult {
	return e.matcher.Score(bank, book)
}

// DetectSuspiciousActivity runs all anomaly detectors over the bank set and
// the timing analyzer over the given matches, returning an aggregate report
func (e *Engine) DetectSuspiciousActivity(ctx context.Context, bank []*models.BankTransaction, matches []*models.MatchResult) (*models.SuspiciousActivityReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []*models.SuspiciousActivityRecord
	records = append(records, e.detector.DetectDuplicates(bank)...)
	records = append(records, e.detector.DetectUnusualAmounts(bank)...)
	records = append(records, e.detector.AnalyzeTimingDifferences(matches)...)

	return e.detector.BuildReport(records), nil
}

// BreakoutFees decomposes each transaction into net amount and fee
// components. Per-item failures are returned alongside the successes.
func (e *Engine) BreakoutFees(ctx context.Context, bank []*models.BankTransaction) ([]*models.FeeBreakout, []*models.ItemError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	breakouts, itemErrors := e.calculator.BreakoutAll(bank)
	return breakouts, itemErrors, nil
}

// validateInputs checks every record and rejects the run on the first
// malformed one, identifying it by ID and position in its input slice. Nil
// entries are treated as absent rather than malformed.
func (e *Engine) validateInputs(bank []*models.BankTransaction, book []*models.BookTransaction) ([]*models.BankTransaction, []*models.BookTransaction, error) {
	validBank := make([]*models.BankTransaction, 0, len(bank))
	for i, tx := range bank {
		if tx == nil {
			continue
		}
		if err := tx.Validate(); err != nil {
			return nil, nil, errors.Wrap(err, errors.CategoryValidation, errors.CodeInvalidRecord, "invalid bank transaction").
				WithContext("transaction_id", tx.ID).
				WithContext("index", i)
		}
		validBank = append(validBank, tx)
	}

	validBook := make([]*models.BookTransaction, 0, len(book))
	for i, tx := range book {
		if tx == nil {
			continue
		}
		if err := tx.Validate(); err != nil {
			return nil, nil, errors.Wrap(err, errors.CategoryValidation, errors.CodeInvalidRecord, "invalid book transaction").
				WithContext("transaction_id", tx.ID).
				WithContext("index", i)
		}
		validBook = append(validBook, tx)
	}

	return validBank, validBook, nil
}

// overallConfidence averages match confidence over the full bank set, so
// unmatched transactions drag the number down
func overallConfidence(matches []*models.MatchResult, bankCount int) float64 {
	if bankCount == 0 {
		return 0
	}

	var sum float64
	for _, match := range matches {
		sum += match.Confidence
	}

	return sum / float64(bankCount)
}
