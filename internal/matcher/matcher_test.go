package matcher

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/models"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func bankTx(id string, amount float64, d int, desc string) *models.BankTransaction {
	return models.NewBankTransaction(id, decimal.NewFromFloat(amount), day(d), desc)
}

func bookTx(id string, amount float64, d int, desc string) *models.BookTransaction {
	return models.NewBookTransaction(id, decimal.NewFromFloat(amount), day(d), desc)
}

func TestNewMatcher_Defaults(t *testing.T) {
	m := NewMatcher(nil, nil, nil)
	if m == nil {
		t.Fatal("expected matcher to be created")
	}
	if m.Config() == nil {
		t.Fatal("expected default config to be set")
	}
	if m.Config().MinConfidence != 0.8 {
		t.Errorf("default min confidence = %v, want 0.8", m.Config().MinConfidence)
	}
}

func TestMatcher_ScoreIdempotent(t *testing.T) {
	m := NewMatcher(nil, nil, nil)

	bank := bankTx("BANK001", 100.00, 10, "Payment to Vendor A")
	book := bookTx("BOOK001", 100.00, 10, "Payment to Vendor A")

	first := m.Score(bank, book)
	for i := 0; i < 5; i++ {
		again := m.Score(bank, book)
		if again.Confidence != first.Confidence || again.MatchType != first.MatchType {
			t.Fatalf("scoring not idempotent: %v/%v vs %v/%v",
				again.Confidence, again.MatchType, first.Confidence, first.MatchType)
		}
	}
}

func TestMatcher_VendorAExactMatch(t *testing.T) {
	m := NewMatcher(nil, nil, nil)

	bank := bankTx("BANK001", 100.00, 10, "Payment to Vendor A")
	book := bookTx("BOOK001", 100.00, 10, "Payment to Vendor A")

	result := m.Score(bank, book)

	// amount 1.0, date 1.0, description 1.0, merchant 0.5, pattern 0.6
	// confidence = 0.4 + 0.2 + 0.2 + 0.05 + 0.06 = 0.91
	if diff := result.Confidence - 0.91; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %v, want 0.91", result.Confidence)
	}
	if result.MatchType != models.MatchExact {
		t.Errorf("match type = %v, want exact", result.MatchType)
	}

	outcome := m.Match([]*models.BankTransaction{bank}, []*models.BookTransaction{book})
	if len(outcome.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(outcome.Matches))
	}
	if len(outcome.Unmatched) != 0 {
		t.Errorf("expected no unmatched, got %d", len(outcome.Unmatched))
	}
}

func TestMatcher_AcceptanceThreshold(t *testing.T) {
	m := NewMatcher(nil, nil, nil)

	// Amount within a cent, same day, unrelated description:
	// 0.4*0.9 + 0.2*1.0 + 0.2*0 + 0.05 + 0.06 = 0.67 -> below threshold
	bank := bankTx("BANK001", 100.00, 10, "alpha")
	book := bookTx("BOOK001", 100.009, 10, "omega")

	outcome := m.Match([]*models.BankTransaction{bank}, []*models.BookTransaction{book})
	if len(outcome.Matches) != 0 {
		t.Errorf("match below acceptance threshold was produced: %+v", outcome.Matches[0])
	}

	for _, match := range outcome.Matches {
		if match.Confidence <= m.Config().MinConfidence {
			t.Errorf("accepted match with confidence %v <= %v", match.Confidence, m.Config().MinConfidence)
		}
	}
}

func TestMatcher_OneToOneAssignment(t *testing.T) {
	m := NewMatcher(nil, nil, nil)

	// Two identical bank transactions compete for one book record.
	bank := []*models.BankTransaction{
		bankTx("BANK001", 100.00, 10, "Payment to Vendor A"),
		bankTx("BANK002", 100.00, 10, "Payment to Vendor A"),
	}
	book := []*models.BookTransaction{
		bookTx("BOOK001", 100.00, 10, "Payment to Vendor A"),
	}

	outcome := m.Match(bank, book)
	if len(outcome.Matches) != 1 {
		t.Fatalf("expected exactly 1 match, got %d", len(outcome.Matches))
	}
	if outcome.Matches[0].BankTransaction.ID != "BANK001" {
		t.Errorf("expected first bank transaction to win, got %s", outcome.Matches[0].BankTransaction.ID)
	}
}

func TestMatcher_UnmatchedByProximity(t *testing.T) {
	m := NewMatcher(nil, nil, nil)

	bank := []*models.BankTransaction{
		bankTx("BANK001", 100.00, 10, "Payment to Vendor A"),
		bankTx("BANK002", 5000.00, 10, "Wire transfer"),
	}
	book := []*models.BookTransaction{
		bookTx("BOOK001", 100.00, 10, "Payment to Vendor A"),
	}

	outcome := m.Match(bank, book)
	if len(outcome.Unmatched) != 1 {
		t.Fatalf("expected 1 unmatched, got %d", len(outcome.Unmatched))
	}
	if outcome.Unmatched[0].ID != "BANK002" {
		t.Errorf("unmatched = %s, want BANK002", outcome.Unmatched[0].ID)
	}
}

func TestMatcher_DeterministicOrder(t *testing.T) {
	m := NewMatcher(nil, nil, nil)

	var bank []*models.BankTransaction
	var book []*models.BookTransaction
	for i := 0; i < 50; i++ {
		bank = append(bank, bankTx(fmt.Sprintf("BANK%03d", i), float64(100+i), 10, "recurring payment"))
		book = append(book, bookTx(fmt.Sprintf("BOOK%03d", i), float64(100+i), 10, "recurring payment"))
	}

	first := m.Match(bank, book)
	for run := 0; run < 3; run++ {
		again := m.Match(bank, book)
		if len(again.Matches) != len(first.Matches) {
			t.Fatalf("match count varies across runs: %d vs %d", len(again.Matches), len(first.Matches))
		}
		for i := range first.Matches {
			if again.Matches[i].BankTransaction.ID != first.Matches[i].BankTransaction.ID ||
				again.Matches[i].BookTransaction.ID != first.Matches[i].BookTransaction.ID {
				t.Fatalf("match order varies across runs at index %d", i)
			}
		}
	}
}

func BenchmarkMatcher_Match(b *testing.B) {
	m := NewMatcher(nil, nil, nil)

	var bank []*models.BankTransaction
	var book []*models.BookTransaction
	for i := 0; i < 1000; i++ {
		bank = append(bank, bankTx(fmt.Sprintf("BANK%04d", i), float64(i)+0.99, 1+i%28, "subscription renewal"))
		book = append(book, bookTx(fmt.Sprintf("BOOK%04d", i), float64(i)+0.99, 1+i%28, "subscription renewal"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Match(bank, book)
	}
}
