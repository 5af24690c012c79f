// Package report renders reconciliation results for humans and machines.
// Console output is a sectioned plain-text summary; JSON output is the full
// snapshot; CSV output is one row per matched and unmatched transaction.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"reconciliation-engine/internal/engine"
	"reconciliation-engine/internal/models"
)

// OutputFormat selects the report rendering
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid reports whether the format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	}
	return false
}

// Config controls report content and format
type Config struct {
	Format            OutputFormat `json:"format" yaml:"format"`
	IncludeMatches    bool         `json:"include_matches" yaml:"include_matches"`
	IncludeUnmatched  bool         `json:"include_unmatched" yaml:"include_unmatched"`
	IncludeSuspicious bool         `json:"include_suspicious" yaml:"include_suspicious"`
	IncludeExceptions bool         `json:"include_exceptions" yaml:"include_exceptions"`
	CSVDelimiter      rune         `json:"-" yaml:"-"`
}

// DefaultConfig returns a console report with every section enabled
func DefaultConfig() *Config {
	return &Config{
		Format:            FormatConsole,
		IncludeMatches:    true,
		IncludeUnmatched:  true,
		IncludeSuspicious: true,
		IncludeExceptions: true,
		CSVDelimiter:      ',',
	}
}

// Validate checks the report configuration
func (c *Config) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("unsupported output format: %s", c.Format)
	}
	if c.CSVDelimiter == 0 {
		return fmt.Errorf("csv delimiter cannot be zero")
	}
	return nil
}

// Generator renders reconciliation results
type Generator struct {
	config *Config
}

// NewGenerator creates a Generator with the given configuration
func NewGenerator(config *Config) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Generator{config: config}, nil
}

// Generate writes a single-run report to the writer
func (g *Generator) Generate(result *models.ReconciliationResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("reconciliation result cannot be nil")
	}

	switch g.config.Format {
	case FormatConsole:
		return g.renderConsole(result, writer)
	case FormatJSON:
		return g.renderJSON(result, writer)
	case FormatCSV:
		return g.renderCSV(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", g.config.Format)
	}
}

// GenerateBatch writes a batch report: a header plus one section per account
func (g *Generator) GenerateBatch(batch *engine.BatchResult, writer io.Writer) error {
	if batch == nil {
		return fmt.Errorf("batch result cannot be nil")
	}

	if g.config.Format == FormatJSON {
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(batch)
	}

	fmt.Fprintf(writer, "BATCH RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Batch ID:  %s\n", batch.BatchID)
	fmt.Fprintf(writer, "Generated: %s\n", batch.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Accounts:  %d total, %d successful, %d failed\n\n",
		batch.TotalBatches, batch.Successful, batch.Failed)

	for _, account := range batch.Accounts {
		fmt.Fprintf(writer, "=== ACCOUNT %s ===\n", account.AccountID)
		if account.Err != nil {
			fmt.Fprintf(writer, "FAILED: %s\n\n", account.Err.Error())
			continue
		}
		if err := g.renderConsole(account.Result, writer); err != nil {
			return err
		}
		fmt.Fprintf(writer, "\n")
	}

	return nil
}

func (g *Generator) renderConsole(result *models.ReconciliationResult, writer io.Writer) error {
	fmt.Fprintf(writer, "RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Snapshot:  %s\n", result.SnapshotID)
	fmt.Fprintf(writer, "Generated: %s\n\n", result.CreatedAt.Format(time.RFC3339))

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "Bank transactions:  %d\n", result.BankCount)
	fmt.Fprintf(writer, "Book transactions:  %d\n", result.BookCount)
	fmt.Fprintf(writer, "Matched:            %d (%.1f%%)\n", len(result.Matches), result.MatchRate()*100)
	fmt.Fprintf(writer, "Unmatched:          %d\n", len(result.Unmatched))
	fmt.Fprintf(writer, "Suspicious:         %d\n", len(result.Suspicious))
	fmt.Fprintf(writer, "Item errors:        %d\n", len(result.ItemErrors))
	fmt.Fprintf(writer, "Overall confidence: %.3f\n\n", result.OverallConfidence)

	if g.config.IncludeMatches && len(result.Matches) > 0 {
		fmt.Fprintf(writer, "=== MATCHES ===\n")
		for _, match := range result.Matches {
			fmt.Fprintf(writer, "%-12s -> %-12s  %.3f  %s\n",
				match.BankTransaction.ID, match.BookTransaction.ID,
				match.Confidence, match.MatchType)
		}
		fmt.Fprintf(writer, "\n")
	}

	if g.config.IncludeUnmatched && len(result.Unmatched) > 0 {
		fmt.Fprintf(writer, "=== UNMATCHED BANK TRANSACTIONS ===\n")
		for _, tx := range result.Unmatched {
			fmt.Fprintf(writer, "%-12s  %10s  %s  %s\n",
				tx.ID, tx.Amount.StringFixed(2), tx.DateKey(), tx.Description)
		}
		fmt.Fprintf(writer, "\n")
	}

	if g.config.IncludeSuspicious && len(result.Suspicious) > 0 {
		fmt.Fprintf(writer, "=== SUSPICIOUS ACTIVITY ===\n")
		for _, record := range result.Suspicious {
			fmt.Fprintf(writer, "%-18s  %s\n", record.Type, record.Transaction.ID)
		}
		fmt.Fprintf(writer, "\n")
	}

	if g.config.IncludeExceptions && len(result.Exceptions) > 0 {
		fmt.Fprintf(writer, "=== EXCEPTIONS ===\n")
		for _, exc := range result.Exceptions {
			fmt.Fprintf(writer, "%-12s  %-24s  %s\n",
				exc.SourceItem.ID, exc.Status, exc.Resolution.Reason)
		}
		fmt.Fprintf(writer, "\n")
	}

	if len(result.ItemErrors) > 0 {
		fmt.Fprintf(writer, "=== ITEM ERRORS ===\n")
		for _, itemErr := range result.ItemErrors {
			fmt.Fprintf(writer, "%s\n", itemErr.Error())
		}
	}

	return nil
}

func (g *Generator) renderJSON(result *models.ReconciliationResult, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func (g *Generator) renderCSV(result *models.ReconciliationResult, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = g.config.CSVDelimiter
	defer csvWriter.Flush()

	headers := []string{"status", "bank_id", "book_id", "amount", "date", "confidence", "match_type"}
	if err := csvWriter.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	if g.config.IncludeMatches {
		for _, match := range result.Matches {
			record := []string{
				"matched",
				match.BankTransaction.ID,
				match.BookTransaction.ID,
				match.BankTransaction.Amount.StringFixed(2),
				match.BankTransaction.DateKey(),
				fmt.Sprintf("%.3f", match.Confidence),
				string(match.MatchType),
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	if g.config.IncludeUnmatched {
		for _, tx := range result.Unmatched {
			record := []string{
				"unmatched",
				tx.ID,
				"",
				tx.Amount.StringFixed(2),
				tx.DateKey(),
				"",
				"",
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	return nil
}
