package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MatchType classifies the quality of a bank/book transaction match.
type MatchType string

const (
	// MatchExact is a near-perfect match: exact amount and same or adjacent day.
	MatchExact MatchType = "exact"
	// MatchHighConfidence is a strong match within tight amount and date tolerances.
	MatchHighConfidence MatchType = "high_confidence"
	// MatchMediumConfidence is a plausible match on amount alone.
	MatchMediumConfidence MatchType = "medium_confidence"
	// MatchLowConfidence is everything below the medium threshold.
	MatchLowConfidence MatchType = "low_confidence"
)

// String returns the string representation of MatchType
func (mt MatchType) String() string {
	return string(mt)
}

// BankTransaction is a transaction as reported by the bank feed.
// Records are immutable for the duration of a reconciliation run.
type BankTransaction struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	ExternalID  string          `json:"external_id,omitempty"`
}

// NewBankTransaction creates a new BankTransaction instance
func NewBankTransaction(id string, amount decimal.Decimal, date time.Time, description string) *BankTransaction {
	return &BankTransaction{
		ID:          id,
		Amount:      amount,
		Date:        date,
		Description: description,
	}
}

// Validate performs boundary validation on the BankTransaction
func (bt *BankTransaction) Validate() error {
	if strings.TrimSpace(bt.ID) == "" {
		return fmt.Errorf("bank transaction ID cannot be empty")
	}

	if bt.Date.IsZero() {
		return fmt.Errorf("bank transaction date cannot be zero")
	}

	return nil
}

// String returns a string representation of the BankTransaction
func (bt *BankTransaction) String() string {
	return fmt.Sprintf("BankTransaction{ID: %s, Amount: %s, Date: %s, Description: %q}",
		bt.ID, bt.Amount.String(), bt.Date.Format("2006-01-02"), bt.Description)
}

// AbsAmount returns the absolute value of the transaction amount
func (bt *BankTransaction) AbsAmount() decimal.Decimal {
	return bt.Amount.Abs()
}

// DateKey returns the calendar-day key used by indexes and signatures
func (bt *BankTransaction) DateKey() string {
	return bt.Date.Format("2006-01-02")
}

// MarshalJSON implements custom JSON marshaling for BankTransaction
func (bt *BankTransaction) MarshalJSON() ([]byte, error) {
	type Alias BankTransaction
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Amount: bt.Amount.String(),
		Date:   bt.Date.Format("2006-01-02"),
		Alias:  (*Alias)(bt),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for BankTransaction
func (bt *BankTransaction) UnmarshalJSON(data []byte) error {
	type Alias BankTransaction
	aux := &struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Alias: (*Alias)(bt),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	bt.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	bt.Date, err = ParseTimeWithFormats(aux.Date)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}

	return nil
}

// BookTransaction is a transaction as recorded in the company ledger.
type BookTransaction struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
}

// NewBookTransaction creates a new BookTransaction instance
func NewBookTransaction(id string, amount decimal.Decimal, date time.Time, description string) *BookTransaction {
	return &BookTransaction{
		ID:          id,
		Amount:      amount,
		Date:        date,
		Description: description,
	}
}

// Validate performs boundary validation on the BookTransaction
func (bk *BookTransaction) Validate() error {
	if strings.TrimSpace(bk.ID) == "" {
		return fmt.Errorf("book transaction ID cannot be empty")
	}

	if bk.Date.IsZero() {
		return fmt.Errorf("book transaction date cannot be zero")
	}

	return nil
}

// String returns a string representation of the BookTransaction
func (bk *BookTransaction) String() string {
	return fmt.Sprintf("BookTransaction{ID: %s, Amount: %s, Date: %s, Description: %q}",
		bk.ID, bk.Amount.String(), bk.Date.Format("2006-01-02"), bk.Description)
}

// AbsAmount returns the absolute value of the transaction amount
func (bk *BookTransaction) AbsAmount() decimal.Decimal {
	return bk.Amount.Abs()
}

// DateKey returns the calendar-day key used by indexes and signatures
func (bk *BookTransaction) DateKey() string {
	return bk.Date.Format("2006-01-02")
}

// MarshalJSON implements custom JSON marshaling for BookTransaction
func (bk *BookTransaction) MarshalJSON() ([]byte, error) {
	type Alias BookTransaction
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Amount: bk.Amount.String(),
		Date:   bk.Date.Format("2006-01-02"),
		Alias:  (*Alias)(bk),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for BookTransaction
func (bk *BookTransaction) UnmarshalJSON(data []byte) error {
	type Alias BookTransaction
	aux := &struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Alias: (*Alias)(bk),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	bk.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	bk.Date, err = ParseTimeWithFormats(aux.Date)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}

	return nil
}

// FieldScores holds the per-attribute similarity scores for a candidate pair.
// Every score is in [0,1]. FieldScores are ephemeral: they exist only while a
// pair is being evaluated and are combined into a single confidence value.
type FieldScores struct {
	AmountMatch      float64 `json:"amount_match"`
	DateMatch        float64 `json:"date_match"`
	DescriptionMatch float64 `json:"description_match"`
	MerchantMatch    float64 `json:"merchant_match"`
	PatternMatch     float64 `json:"pattern_match"`
}

// MatchResult pairs a bank transaction with a book transaction along with the
// confidence of the match. Results are created by the matcher and read-only
// thereafter; a result is never produced below the acceptance threshold.
type MatchResult struct {
	BankTransaction *BankTransaction `json:"bank_transaction"`
	BookTransaction *BookTransaction `json:"book_transaction"`
	Confidence      float64          `json:"confidence"`
	MatchType       MatchType        `json:"match_type"`
	Reasoning       []string         `json:"reasoning"`
}

// SuspiciousActivityType identifies the anomaly class of a flagged record.
type SuspiciousActivityType string

const (
	SuspiciousDuplicate         SuspiciousActivityType = "duplicate"
	SuspiciousUnusualAmount     SuspiciousActivityType = "unusual_amount"
	SuspiciousAmountDiscrepancy SuspiciousActivityType = "amount_discrepancy"
	SuspiciousTimingAnomaly     SuspiciousActivityType = "timing_anomaly"
)

// RiskLevel is the aggregate risk bucket for a suspicious-activity report.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// SuspiciousActivityRecord is one flagged transaction with detector context.
type SuspiciousActivityRecord struct {
	Type        SuspiciousActivityType `json:"type"`
	Transaction *BankTransaction       `json:"transaction"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// SuspiciousActivityReport aggregates anomaly detector output for one run.
type SuspiciousActivityReport struct {
	Records         []*SuspiciousActivityRecord `json:"records"`
	RiskLevel       RiskLevel                   `json:"risk_level"`
	Recommendations []string                    `json:"recommendations,omitempty"`
}

// HasType reports whether the report contains records of the given type
func (r *SuspiciousActivityReport) HasType(t SuspiciousActivityType) bool {
	for _, rec := range r.Records {
		if rec.Type == t {
			return true
		}
	}
	return false
}

// FeeLineItem is a single fee component within a fee breakout.
type FeeLineItem struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// FeeBreakout decomposes a payment-processor transaction into its net amount
// and fee components. Breakouts are derived values, always recomputed from the
// transaction rather than persisted.
//
// Sign convention: TotalFees is always positive. NetAmount keeps the sign of
// the source transaction with its magnitude reduced by the fees, so a -100.00
// Stripe charge breaks out to fees 2.90 and net -97.10.
type FeeBreakout struct {
	Transaction  *BankTransaction `json:"transaction"`
	Processor    string           `json:"processor"`
	FeeRate      decimal.Decimal  `json:"fee_rate"`
	TotalFees    decimal.Decimal  `json:"total_fees"`
	FeeLineItems []FeeLineItem    `json:"fee_line_items"`
	NetAmount    decimal.Decimal  `json:"net_amount"`
}

// ExceptionStatus is the terminal state of a reconciliation exception.
type ExceptionStatus string

const (
	ExceptionResolved     ExceptionStatus = "resolved"
	ExceptionManualReview ExceptionStatus = "requires_manual_review"
)

// Resolution is the verdict produced by an exception resolution strategy.
type Resolution struct {
	Resolved bool   `json:"resolved"`
	Action   string `json:"action,omitempty"`
	Reason   string `json:"reason"`
}

// ReconciliationException is an unresolved item routed through the resolver.
type ReconciliationException struct {
	SourceItem *BankTransaction `json:"source_item"`
	Resolution *Resolution      `json:"resolution,omitempty"`
	Status     ExceptionStatus  `json:"status"`
}

// ItemError records a single-item processing failure with enough context to
// replay it: the pipeline stage, the offending transaction, and the message.
type ItemError struct {
	Stage         string `json:"stage"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

// Error implements the error interface
func (ie *ItemError) Error() string {
	return fmt.Sprintf("%s: transaction %s: %s", ie.Stage, ie.TransactionID, ie.Message)
}

// ReconciliationResult is the immutable per-invocation snapshot of a
// reconciliation run. Re-running the same account/period produces a new
// snapshot with a fresh ID; existing snapshots are never mutated.
type ReconciliationResult struct {
	SnapshotID        string                      `json:"snapshot_id"`
	AccountID         string                      `json:"account_id,omitempty"`
	BankCount         int                         `json:"bank_count"`
	BookCount         int                         `json:"book_count"`
	Matches           []*MatchResult              `json:"matches"`
	Unmatched         []*BankTransaction          `json:"unmatched"`
	Suspicious        []*SuspiciousActivityRecord `json:"suspicious"`
	Exceptions        []*ReconciliationException  `json:"exceptions,omitempty"`
	ItemErrors        []*ItemError                `json:"item_errors,omitempty"`
	OverallConfidence float64                     `json:"overall_confidence"`
	CreatedAt         time.Time                   `json:"created_at"`
}

// MatchRate returns the fraction of bank transactions with an accepted match
func (rr *ReconciliationResult) MatchRate() float64 {
	if rr.BankCount == 0 {
		return 0
	}
	return float64(len(rr.Matches)) / float64(rr.BankCount)
}

// Utility functions shared by parsers and providers

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Strip currency symbols and thousand separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseTimeWithFormats attempts to parse time from string using multiple common formats
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"01/02/2006 15:04:05",
		"01/02/2006",
		"2006/01/02",
		"Jan 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

// DayDifference returns the absolute difference in calendar days between two
// times, direction-agnostic. Times are truncated to their calendar day first
// so a late-evening bank timestamp and an early-morning book timestamp on
// adjacent days count as one day apart.
func DayDifference(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	diff := ad.Sub(bd)
	if diff < 0 {
		diff = -diff
	}

	return int(diff.Hours() / 24)
}

// CompareAmountsWithTolerance compares two decimal amounts with a tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// NormalizeDescription lowercases and trims a description for comparison
func NormalizeDescription(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TokenizeDescription splits a description into lowercased whitespace tokens
func TokenizeDescription(s string) []string {
	return strings.Fields(NormalizeDescription(s))
}
