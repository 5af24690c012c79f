package scoring

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/models"
)

func createTestPair(bankAmount, bookAmount float64, bankDate, bookDate time.Time, bankDesc, bookDesc string) (*models.BankTransaction, *models.BookTransaction) {
	bank := models.NewBankTransaction("BANK001", decimal.NewFromFloat(bankAmount), bankDate, bankDesc)
	book := models.NewBookTransaction("BOOK001", decimal.NewFromFloat(bookAmount), bookDate, bookDesc)
	return bank, book
}

func TestFieldScorer_AmountTiers(t *testing.T) {
	scorer := NewFieldScorer()
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		bankAmount float64
		bookAmount float64
		want       float64
	}{
		{"exact equality", 100.00, 100.00, 1.0},
		{"within a cent", 100.00, 100.009, 0.9},
		{"within a dollar", 100.00, 100.75, 0.7},
		{"beyond a dollar", 100.00, 102.00, 0.0},
		{"negative exact", -50.00, -50.00, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank, book := createTestPair(tt.bankAmount, tt.bookAmount, date, date, "x", "x")
			scores := scorer.Score(bank, book)
			if scores.AmountMatch != tt.want {
				t.Errorf("amount score = %v, want %v", scores.AmountMatch, tt.want)
			}
		})
	}
}

func TestFieldScorer_AmountReflexive(t *testing.T) {
	scorer := NewFieldScorer()
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, amount := range []float64{0, 0.01, 19.99, -250.00, 123456.78} {
		bank, book := createTestPair(amount, amount, date, date, "a", "b")
		scores := scorer.Score(bank, book)
		if scores.AmountMatch != 1.0 {
			t.Errorf("identical amount %v scored %v, want 1.0", amount, scores.AmountMatch)
		}
	}
}

func TestFieldScorer_DateTiers(t *testing.T) {
	scorer := NewFieldScorer()
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		days int
		want float64
	}{
		{"same day", 0, 1.0},
		{"one day", 1, 0.9},
		{"three days", 3, 0.7},
		{"seven days", 7, 0.5},
		{"eight days", 8, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank, book := createTestPair(10, 10, base, base.AddDate(0, 0, tt.days), "x", "x")
			scores := scorer.Score(bank, book)
			if scores.DateMatch != tt.want {
				t.Errorf("date score = %v, want %v", scores.DateMatch, tt.want)
			}
		})
	}
}

func TestFieldScorer_DateSymmetry(t *testing.T) {
	scorer := NewFieldScorer()
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	for days := 0; days <= 10; days++ {
		forward, bookF := createTestPair(10, 10, base, base.AddDate(0, 0, days), "x", "x")
		backward, bookB := createTestPair(10, 10, base.AddDate(0, 0, days), base, "x", "x")

		f := scorer.Score(forward, bookF).DateMatch
		b := scorer.Score(backward, bookB).DateMatch
		if f != b {
			t.Errorf("date score not symmetric at %d days: %v vs %v", days, f, b)
		}
	}
}

func TestFieldScorer_Description(t *testing.T) {
	scorer := NewFieldScorer()
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		bankDesc string
		bookDesc string
		want     float64
	}{
		{"exact case-insensitive", "Payment to Vendor A", "payment to vendor a", 1.0},
		{"substring", "Payment Vendor A invoice 42", "Vendor A", 0.8},
		{"token overlap", "alpha beta gamma", "alpha beta delta epsilon", 0.5},
		{"repeated tokens count once", "pay pay vendor alpha", "vendor pay", 2.0 / 3.0},
		{"no overlap", "alpha beta", "gamma delta", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank, book := createTestPair(10, 10, date, date, tt.bankDesc, tt.bookDesc)
			scores := scorer.Score(bank, book)
			if scores.DescriptionMatch != tt.want {
				t.Errorf("description score = %v, want %v", scores.DescriptionMatch, tt.want)
			}
		})
	}
}

func TestFieldScorer_StaticStrategies(t *testing.T) {
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	bank, book := createTestPair(10, 10, date, date, "x", "x")

	scorer := NewFieldScorer()
	scores := scorer.Score(bank, book)
	if scores.MerchantMatch != 0.5 {
		t.Errorf("default merchant score = %v, want 0.5", scores.MerchantMatch)
	}
	if scores.PatternMatch != 0.6 {
		t.Errorf("default pattern score = %v, want 0.6", scores.PatternMatch)
	}

	custom := NewFieldScorer(
		WithMerchantScorer(StaticMerchantScorer{Score: 0.9}),
		WithPatternScorer(StaticPatternScorer{Score: 0.1}),
	)
	scores = custom.Score(bank, book)
	if scores.MerchantMatch != 0.9 || scores.PatternMatch != 0.1 {
		t.Errorf("custom strategy scores = %v/%v, want 0.9/0.1", scores.MerchantMatch, scores.PatternMatch)
	}
}

func TestWeights_Validate(t *testing.T) {
	valid := DefaultConfig().Weights
	if err := valid.Validate(); err != nil {
		t.Errorf("default weights should validate: %v", err)
	}

	bad := Weights{Amount: 0.5, Date: 0.5, Description: 0.5}
	if err := bad.Validate(); err == nil {
		t.Error("weights summing to 1.5 should fail validation")
	}

	negative := Weights{Amount: -0.1, Date: 0.5, Description: 0.2, Merchant: 0.2, Pattern: 0.2}
	if err := negative.Validate(); err == nil {
		t.Error("negative weight should fail validation")
	}
}

func TestConfig_Clone(t *testing.T) {
	original := DefaultConfig()
	clone := original.Clone()

	clone.Weights.Amount = 0.9
	if original.Weights.Amount == 0.9 {
		t.Error("mutating clone changed the original")
	}
}
