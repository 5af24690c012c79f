// Package anomaly implements the suspicious-activity detectors that run over
// a reconciliation batch: duplicate detection, unusual-amount detection and
// timing-difference analysis. Each detector is a side-effect-free pass over
// its input returning flagged records; the report builder aggregates records
// into a risk level and review recommendations.
package anomaly

import (
	"fmt"

	"reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Config holds the detector thresholds.
type Config struct {
	// UnusualAmountMultiplier flags transactions whose absolute amount
	// exceeds this multiple of the batch mean
	UnusualAmountMultiplier decimal.Decimal `json:"unusual_amount_multiplier"`

	// TimingThresholdDays flags matched pairs whose bank-cleared and
	// book-recorded dates differ by more than this many days
	TimingThresholdDays int `json:"timing_threshold_days"`

	// MediumRiskCount and HighRiskCount are the record-count buckets for the
	// aggregate risk level
	MediumRiskCount int `json:"medium_risk_count"`
	HighRiskCount   int `json:"high_risk_count"`
}

// DefaultConfig returns the production detector configuration
func DefaultConfig() *Config {
	return &Config{
		UnusualAmountMultiplier: decimal.NewFromInt(3),
		TimingThresholdDays:     1,
		MediumRiskCount:         5,
		HighRiskCount:           10,
	}
}

// Validate checks if the detector configuration is valid
func (c *Config) Validate() error {
	if !c.UnusualAmountMultiplier.IsPositive() {
		return fmt.Errorf("unusual amount multiplier must be positive: %s", c.UnusualAmountMultiplier)
	}

	if c.TimingThresholdDays < 0 {
		return fmt.Errorf("timing threshold days cannot be negative: %d", c.TimingThresholdDays)
	}

	if c.MediumRiskCount < 0 || c.HighRiskCount < c.MediumRiskCount {
		return fmt.Errorf("risk count buckets must satisfy 0 <= medium (%d) <= high (%d)",
			c.MediumRiskCount, c.HighRiskCount)
	}

	return nil
}

// Clone creates a copy of the detector configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}

// Detector runs the anomaly passes.
type Detector struct {
	config *Config
}

// NewDetector creates a detector with the given configuration, falling back
// to defaults when nil
func NewDetector(config *Config) *Detector {
	if config == nil {
		config = DefaultConfig()
	}

	return &Detector{config: config}
}

// DetectDuplicates flags bank transactions whose amount|date|description
// signature has already been seen earlier in the input. The first occurrence
// of a signature is never flagged. Distinct real-world transactions sharing a
// signature are a known false-positive source.
func (d *Detector) DetectDuplicates(bank []*models.BankTransaction) []*models.SuspiciousActivityRecord {
	var records []*models.SuspiciousActivityRecord

	seen := make(map[string]string, len(bank))
	for _, tx := range bank {
		sig := fmt.Sprintf("%s|%s|%s", tx.Amount.String(), tx.DateKey(), tx.Description)

		if firstID, exists := seen[sig]; exists {
			records = append(records, &models.SuspiciousActivityRecord{
				Type:        models.SuspiciousDuplicate,
				Transaction: tx,
				Context: map[string]interface{}{
					"signature":           sig,
					"first_occurrence_id": firstID,
				},
			})
			continue
		}

		seen[sig] = tx.ID
	}

	return records
}

// DetectUnusualAmounts flags bank transactions whose absolute amount exceeds
// the configured multiple of the batch mean absolute amount. The computed
// threshold rides along in the record context for audit purposes.
func (d *Detector) DetectUnusualAmounts(bank []*models.BankTransaction) []*models.SuspiciousActivityRecord {
	if len(bank) == 0 {
		return nil
	}

	sum := decimal.Zero
	for _, tx := range bank {
		sum = sum.Add(tx.AbsAmount())
	}

	mean := sum.Div(decimal.NewFromInt(int64(len(bank))))
	threshold := mean.Mul(d.config.UnusualAmountMultiplier)

	var records []*models.SuspiciousActivityRecord
	for _, tx := range bank {
		if tx.AbsAmount().GreaterThan(threshold) {
			records = append(records, &models.SuspiciousActivityRecord{
				Type:        models.SuspiciousUnusualAmount,
				Transaction: tx,
				Context: map[string]interface{}{
					"mean_amount": mean.String(),
					"threshold":   threshold.String(),
					"amount":      tx.AbsAmount().String(),
				},
			})
		}
	}

	return records
}

// AnalyzeTimingDifferences flags matched pairs whose bank-cleared date and
// book-recorded date differ by more than the configured threshold, recording
// the delta and a qualitative impact assessment.
func (d *Detector) AnalyzeTimingDifferences(matches []*models.MatchResult) []*models.SuspiciousActivityRecord {
	var records []*models.SuspiciousActivityRecord

	for _, match := range matches {
		if match.BookTransaction == nil {
			continue
		}

		days := models.DayDifference(match.BankTransaction.Date, match.BookTransaction.Date)
		if days <= d.config.TimingThresholdDays {
			continue
		}

		records = append(records, &models.SuspiciousActivityRecord{
			Type:        models.SuspiciousTimingAnomaly,
			Transaction: match.BankTransaction,
			Context: map[string]interface{}{
				"book_transaction_id": match.BookTransaction.ID,
				"day_difference":      days,
				"impact":              timingImpact(days),
			},
		})
	}

	return records
}

// timingImpact qualifies a clearing delay for the review queue
func timingImpact(days int) string {
	switch {
	case days > 7:
		return "severe clearing delay"
	case days > 3:
		return "moderate clearing delay"
	default:
		return "minor clearing delay"
	}
}

// BuildReport aggregates detector records into a report with a count-bucketed
// risk level and presence-of-type recommendations.
func (d *Detector) BuildReport(records []*models.SuspiciousActivityRecord) *models.SuspiciousActivityReport {
	report := &models.SuspiciousActivityReport{
		Records:   records,
		RiskLevel: d.riskLevel(len(records)),
	}

	if report.HasType(models.SuspiciousDuplicate) {
		report.Recommendations = append(report.Recommendations,
			"Review duplicate transactions for accuracy")
	}

	if report.HasType(models.SuspiciousUnusualAmount) {
		report.Recommendations = append(report.Recommendations,
			"Verify unusually large transactions against supporting documents")
	}

	if report.HasType(models.SuspiciousTimingAnomaly) {
		report.Recommendations = append(report.Recommendations,
			"Investigate clearing delays between bank and book records")
	}

	if report.HasType(models.SuspiciousAmountDiscrepancy) {
		report.Recommendations = append(report.Recommendations,
			"Reconcile amount discrepancies with the ledger team")
	}

	return report
}

// riskLevel buckets the record count into a risk level
func (d *Detector) riskLevel(count int) models.RiskLevel {
	switch {
	case count > d.config.HighRiskCount:
		return models.RiskHigh
	case count > d.config.MediumRiskCount:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
