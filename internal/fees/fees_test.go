package fees

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconciliation-engine/internal/models"
)

func testTx(id string, amount float64, desc string) *models.BankTransaction {
	return models.NewBankTransaction(id, decimal.NewFromFloat(amount),
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), desc)
}

func TestIdentifyProcessor(t *testing.T) {
	calc := NewCalculator(nil)

	tests := []struct {
		desc string
		want string
	}{
		{"STRIPE payout 12345", "stripe"},
		{"PayPal transfer", "paypal"},
		{"Square Inc payment", "square"},
		{"Braintree settlement", "braintree"},
		{"Direct deposit payroll", ProcessorUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, calc.IdentifyProcessor(tt.desc), "description %q", tt.desc)
	}
}

func TestBreakout_StripeCharge(t *testing.T) {
	calc := NewCalculator(nil)

	breakout, err := calc.Breakout(testTx("BANK001", -100.00, "STRIPE charge"))
	require.NoError(t, err)

	assert.Equal(t, "stripe", breakout.Processor)
	assert.True(t, breakout.TotalFees.Equal(decimal.NewFromFloat(2.90)), "total fees = %s", breakout.TotalFees)
	assert.True(t, breakout.NetAmount.Equal(decimal.NewFromFloat(-97.10)), "net = %s", breakout.NetAmount)

	require.Len(t, breakout.FeeLineItems, 2)
	assert.Equal(t, LineItemProcessing, breakout.FeeLineItems[0].Type)
	assert.True(t, breakout.FeeLineItems[0].Amount.Equal(decimal.NewFromFloat(2.32)),
		"processing fee = %s", breakout.FeeLineItems[0].Amount)
	assert.Equal(t, LineItemNetwork, breakout.FeeLineItems[1].Type)
	assert.True(t, breakout.FeeLineItems[1].Amount.Equal(decimal.NewFromFloat(0.58)),
		"network fee = %s", breakout.FeeLineItems[1].Amount)
}

func TestBreakout_LineItemsSumToTotal(t *testing.T) {
	calc := NewCalculator(nil)

	for _, amount := range []float64{-100.00, 250.33, -19.99, 1234.56} {
		breakout, err := calc.Breakout(testTx("BANK001", amount, "paypal payment"))
		require.NoError(t, err)

		sum := decimal.Zero
		for _, item := range breakout.FeeLineItems {
			sum = sum.Add(item.Amount)
		}
		assert.True(t, sum.Equal(breakout.TotalFees),
			"line items %s do not sum to total %s for amount %v", sum, breakout.TotalFees, amount)
	}
}

func TestBreakout_PositiveAmountKeepsSign(t *testing.T) {
	calc := NewCalculator(nil)

	breakout, err := calc.Breakout(testTx("BANK001", 100.00, "stripe payout"))
	require.NoError(t, err)
	assert.True(t, breakout.NetAmount.Equal(decimal.NewFromFloat(97.10)), "net = %s", breakout.NetAmount)
}

func TestBreakout_BraintreeFallsBackToUnknownRate(t *testing.T) {
	calc := NewCalculator(nil)

	breakout, err := calc.Breakout(testTx("BANK001", -100.00, "Braintree settlement"))
	require.NoError(t, err)

	assert.Equal(t, "braintree", breakout.Processor)
	// no braintree rate in the default schedule, unknown 3% applies
	assert.True(t, breakout.TotalFees.Equal(decimal.NewFromFloat(3.00)), "total fees = %s", breakout.TotalFees)
}

func TestBreakoutAll_IsolatesFailures(t *testing.T) {
	calc := NewCalculator(nil)

	transactions := []*models.BankTransaction{
		testTx("BANK001", -100.00, "stripe charge"),
		nil,
		testTx("BANK002", 50.00, "square sale"),
	}

	breakouts, itemErrors := calc.BreakoutAll(transactions)
	assert.Len(t, breakouts, 2)
	require.Len(t, itemErrors, 1)
	assert.Equal(t, "fee_breakout", itemErrors[0].Stage)
}

func TestLoadSchedule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rates.yaml")

	content := `
keywords:
  - stripe
  - adyen
rates:
  stripe: "0.029"
  adyen: "0.031"
  unknown: "0.030"
processing_share: "0.8"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	schedule, err := LoadSchedule(path)
	require.NoError(t, err)

	assert.True(t, schedule.Rate("adyen").Equal(decimal.NewFromFloat(0.031)))
	assert.True(t, schedule.Rate("nobody").Equal(decimal.NewFromFloat(0.030)))
}

func TestSchedule_Validate(t *testing.T) {
	assert.NoError(t, DefaultSchedule().Validate())

	missing := DefaultSchedule()
	delete(missing.Rates, ProcessorUnknown)
	assert.Error(t, missing.Validate(), "schedule without an unknown rate must fail")

	bad := DefaultSchedule()
	bad.Rates["stripe"] = decimal.NewFromInt(2)
	assert.Error(t, bad.Validate(), "rate above 1 must fail")
}
