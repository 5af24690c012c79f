// Package fees identifies payment-processor transactions and decomposes them
// into net amount plus fee line items.
//
// Processor identification is keyword containment over the transaction
// description; fee rates come from an externally supplied schedule rather
// than literals so tenants can tune them, and the schedule can be loaded
// from a YAML file.
package fees

import (
	"fmt"
	"os"
	"strings"

	"reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ProcessorUnknown is the fallback processor when no keyword matches.
const ProcessorUnknown = "unknown"

// Fee line item types. Processing takes the larger share of the total fee,
// network the remainder.
const (
	LineItemProcessing = "processing_fee"
	LineItemNetwork    = "network_fee"
)

// Schedule is the externally supplied fee configuration: which description
// keywords identify which processor, the per-processor rates, and how the
// total fee splits into line items.
type Schedule struct {
	// Keywords are matched case-insensitively against descriptions, in order
	Keywords []string `json:"keywords" yaml:"keywords" mapstructure:"keywords"`

	// Rates maps processor name to fee rate (0.029 = 2.9%). Processors
	// without an entry fall back to the unknown rate.
	Rates map[string]decimal.Decimal `json:"rates" yaml:"rates" mapstructure:"rates"`

	// ProcessingShare is the fraction of the total fee attributed to the
	// processing line item; the network line item takes the remainder
	ProcessingShare decimal.Decimal `json:"processing_share" yaml:"processing_share" mapstructure:"processing_share"`
}

// DefaultSchedule returns the production fee schedule
func DefaultSchedule() *Schedule {
	return &Schedule{
		Keywords: []string{"stripe", "paypal", "square", "braintree"},
		Rates: map[string]decimal.Decimal{
			"stripe":        decimal.NewFromFloat(0.029),
			"paypal":        decimal.NewFromFloat(0.034),
			"square":        decimal.NewFromFloat(0.026),
			ProcessorUnknown: decimal.NewFromFloat(0.030),
		},
		ProcessingShare: decimal.NewFromFloat(0.8),
	}
}

// LoadSchedule reads a fee schedule from a YAML file
func LoadSchedule(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fee schedule %s: %w", path, err)
	}

	var raw struct {
		Keywords        []string          `yaml:"keywords"`
		Rates           map[string]string `yaml:"rates"`
		ProcessingShare string            `yaml:"processing_share"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse fee schedule %s: %w", path, err)
	}

	schedule := DefaultSchedule()

	if len(raw.Keywords) > 0 {
		schedule.Keywords = raw.Keywords
	}

	if len(raw.Rates) > 0 {
		schedule.Rates = make(map[string]decimal.Decimal, len(raw.Rates))
		for processor, rate := range raw.Rates {
			d, err := decimal.NewFromString(rate)
			if err != nil {
				return nil, fmt.Errorf("invalid fee rate for %s: %w", processor, err)
			}
			schedule.Rates[strings.ToLower(processor)] = d
		}
	}

	if raw.ProcessingShare != "" {
		d, err := decimal.NewFromString(raw.ProcessingShare)
		if err != nil {
			return nil, fmt.Errorf("invalid processing share: %w", err)
		}
		schedule.ProcessingShare = d
	}

	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	return schedule, nil
}

// Validate checks if the fee schedule is valid
func (s *Schedule) Validate() error {
	if len(s.Keywords) == 0 {
		return fmt.Errorf("fee schedule requires at least one processor keyword")
	}

	if _, ok := s.Rates[ProcessorUnknown]; !ok {
		return fmt.Errorf("fee schedule requires a rate for %q", ProcessorUnknown)
	}

	for processor, rate := range s.Rates {
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("fee rate for %s must be between 0 and 1: %s", processor, rate)
		}
	}

	if s.ProcessingShare.IsNegative() || s.ProcessingShare.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("processing share must be between 0 and 1: %s", s.ProcessingShare)
	}

	return nil
}

// Clone creates a deep copy of the schedule
func (s *Schedule) Clone() *Schedule {
	clone := &Schedule{
		Keywords:        make([]string, len(s.Keywords)),
		Rates:           make(map[string]decimal.Decimal, len(s.Rates)),
		ProcessingShare: s.ProcessingShare,
	}
	copy(clone.Keywords, s.Keywords)
	for processor, rate := range s.Rates {
		clone.Rates[processor] = rate
	}
	return clone
}

// Rate returns the fee rate for a processor, falling back to the unknown rate
func (s *Schedule) Rate(processor string) decimal.Decimal {
	if rate, ok := s.Rates[processor]; ok {
		return rate
	}
	return s.Rates[ProcessorUnknown]
}

// Calculator performs processor identification and fee decomposition.
type Calculator struct {
	schedule *Schedule
}

// NewCalculator creates a calculator with the given schedule, falling back to
// the default schedule when nil
func NewCalculator(schedule *Schedule) *Calculator {
	if schedule == nil {
		schedule = DefaultSchedule()
	}

	return &Calculator{schedule: schedule}
}

// Schedule returns the calculator's fee schedule
func (c *Calculator) Schedule() *Schedule {
	return c.schedule
}

// IdentifyProcessor returns the processor whose keyword appears in the
// description, or ProcessorUnknown when none match
func (c *Calculator) IdentifyProcessor(description string) string {
	normalized := strings.ToLower(description)

	for _, keyword := range c.schedule.Keywords {
		if strings.Contains(normalized, strings.ToLower(keyword)) {
			return strings.ToLower(keyword)
		}
	}

	return ProcessorUnknown
}

// Breakout decomposes one transaction into its fee components.
//
// Fees apply to the absolute transaction amount. The net amount keeps the
// sign of the source transaction with its magnitude reduced by the fees:
// a -100.00 Stripe charge yields total fees 2.90 and net -97.10.
func (c *Calculator) Breakout(tx *models.BankTransaction) (*models.FeeBreakout, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}

	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}

	processor := c.IdentifyProcessor(tx.Description)
	rate := c.schedule.Rate(processor)

	abs := tx.AbsAmount()
	totalFees := abs.Mul(rate).Round(2)

	processing := totalFees.Mul(c.schedule.ProcessingShare).Round(2)
	network := totalFees.Sub(processing)

	netMagnitude := abs.Sub(totalFees)
	net := netMagnitude
	if tx.Amount.IsNegative() {
		net = netMagnitude.Neg()
	}

	return &models.FeeBreakout{
		Transaction: tx,
		Processor:   processor,
		FeeRate:     rate,
		TotalFees:   totalFees,
		FeeLineItems: []models.FeeLineItem{
			{Type: LineItemProcessing, Amount: processing},
			{Type: LineItemNetwork, Amount: network},
		},
		NetAmount: net,
	}, nil
}

// BreakoutAll decomposes every transaction in the batch. Failures on single
// items are collected as ItemErrors and do not halt the remaining batch.
func (c *Calculator) BreakoutAll(transactions []*models.BankTransaction) ([]*models.FeeBreakout, []*models.ItemError) {
	var breakouts []*models.FeeBreakout
	var itemErrors []*models.ItemError

	for _, tx := range transactions {
		breakout, err := c.Breakout(tx)
		if err != nil {
			id := ""
			if tx != nil {
				id = tx.ID
			}
			itemErrors = append(itemErrors, &models.ItemError{
				Stage:         "fee_breakout",
				TransactionID: id,
				Message:       err.Error(),
			})
			continue
		}

		breakouts = append(breakouts, breakout)
	}

	return breakouts, itemErrors
}
