package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/engine"
	"reconciliation-engine/internal/models"
	"reconciliation-engine/pkg/errors"
)

func testResult() *models.ReconciliationResult {
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	bank := models.NewBankTransaction("BANK001", decimal.NewFromFloat(100.50), date, "Payment to Vendor A")
	book := models.NewBookTransaction("BOOK001", decimal.NewFromFloat(100.50), date, "Payment to Vendor A")
	stray := models.NewBankTransaction("BANK002", decimal.NewFromFloat(9999.00), date, "Wire out")

	return &models.ReconciliationResult{
		SnapshotID: "snap-test",
		BankCount:  2,
		BookCount:  1,
		Matches: []*models.MatchResult{
			{BankTransaction: bank, BookTransaction: book, Confidence: 0.91, MatchType: models.MatchExact},
		},
		Unmatched: []*models.BankTransaction{stray},
		Suspicious: []*models.SuspiciousActivityRecord{
			{Type: models.SuspiciousUnusualAmount, Transaction: stray},
		},
		Exceptions: []*models.ReconciliationException{
			{
				SourceItem: stray,
				Resolution: &models.Resolution{Resolved: false, Reason: "no automatic resolution rule matched"},
				Status:     models.ExceptionManualReview,
			},
		},
		OverallConfidence: 0.455,
		CreatedAt:         date,
	}
}

func TestGenerator_Console(t *testing.T) {
	generator, err := NewGenerator(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.Generate(testResult(), &buf); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"RECONCILIATION REPORT",
		"=== SUMMARY ===",
		"=== MATCHES ===",
		"=== UNMATCHED BANK TRANSACTIONS ===",
		"=== SUSPICIOUS ACTIVITY ===",
		"=== EXCEPTIONS ===",
		"BANK001",
		"BANK002",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("console output missing %q", want)
		}
	}
}

func TestGenerator_JSON(t *testing.T) {
	generator, err := NewGenerator(&Config{Format: FormatJSON, CSVDelimiter: ','})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.Generate(testResult(), &buf); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	var decoded models.ReconciliationResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.SnapshotID != "snap-test" {
		t.Errorf("snapshot ID = %s, want snap-test", decoded.SnapshotID)
	}
	if len(decoded.Matches) != 1 {
		t.Errorf("matches = %d, want 1", len(decoded.Matches))
	}
}

func TestGenerator_CSV(t *testing.T) {
	generator, err := NewGenerator(&Config{
		Format:           FormatCSV,
		IncludeMatches:   true,
		IncludeUnmatched: true,
		CSVDelimiter:     ',',
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.Generate(testResult(), &buf); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// header + 1 match + 1 unmatched
	if len(lines) != 3 {
		t.Fatalf("csv has %d lines, want 3: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "matched,BANK001,BOOK001") {
		t.Errorf("match row = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "unmatched,BANK002") {
		t.Errorf("unmatched row = %q", lines[2])
	}
}

func TestGenerator_RejectsInvalidFormat(t *testing.T) {
	_, err := NewGenerator(&Config{Format: "xml", CSVDelimiter: ','})
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestGenerator_Batch(t *testing.T) {
	generator, err := NewGenerator(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batch := &engine.BatchResult{
		BatchID:      "batch-test",
		TotalBatches: 2,
		Successful:   1,
		Failed:       1,
		Accounts: []*engine.AccountResult{
			{AccountID: "acct-1", Result: testResult()},
			{AccountID: "acct-2", Err: errors.BatchError("acct-2", nil)},
		},
		CreatedAt: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	if err := generator.GenerateBatch(batch, &buf); err != nil {
		t.Fatalf("generate batch failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"BATCH RECONCILIATION REPORT", "=== ACCOUNT acct-1 ===", "=== ACCOUNT acct-2 ===", "FAILED"} {
		if !strings.Contains(output, want) {
			t.Errorf("batch output missing %q", want)
		}
	}
}
