// Package feeds loads bank and ledger transactions from CSV files. The
// loaders tolerate the column-name and format drift found in real exports:
// header names are matched against alias lists, dates are tried against
// several formats, and a malformed row is recorded and skipped rather than
// failing the file.
package feeds

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"reconciliation-engine/pkg/errors"
	"reconciliation-engine/pkg/logger"
)

// Config controls CSV loading behavior
type Config struct {
	Delimiter rune
	HasHeader bool

	// Column aliases, matched case-insensitively against header names
	IDColumns          []string
	AmountColumns      []string
	DateColumns        []string
	DescriptionColumns []string
	CategoryColumns    []string
	ExternalIDColumns  []string
}

// DefaultConfig returns aliases covering common bank and ledger exports
func DefaultConfig() *Config {
	return &Config{
		Delimiter:          ',',
		HasHeader:          true,
		IDColumns:          []string{"id", "transaction_id", "txn_id", "reference"},
		AmountColumns:      []string{"amount", "value", "transaction_amount"},
		DateColumns:        []string{"date", "transaction_date", "posted_date", "posting_date"},
		DescriptionColumns: []string{"description", "memo", "details", "narrative"},
		CategoryColumns:    []string{"category", "account", "gl_code"},
		ExternalIDColumns:  []string{"external_id", "bank_reference", "trace_id"},
	}
}

// Validate checks the loader configuration
func (c *Config) Validate() error {
	if c.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be zero")
	}
	if len(c.IDColumns) == 0 || len(c.AmountColumns) == 0 || len(c.DateColumns) == 0 {
		return fmt.Errorf("id, amount, and date column aliases are required")
	}
	return nil
}

// ParseStats summarizes one file load
type ParseStats struct {
	RowsRead   int                   `json:"rows_read"`
	RowsLoaded int                   `json:"rows_loaded"`
	Errors     []*errors.EngineError `json:"errors,omitempty"`
}

// AddError records a row-level failure
func (ps *ParseStats) AddError(err *errors.EngineError) {
	ps.Errors = append(ps.Errors, err)
}

// HasErrors reports whether any row failed
func (ps *ParseStats) HasErrors() bool {
	return len(ps.Errors) > 0
}

// columnMap resolves alias lists against a header row
type columnMap struct {
	indexes map[string]int
}

func newColumnMap(header []string) *columnMap {
	indexes := make(map[string]int, len(header))
	for i, name := range header {
		indexes[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return &columnMap{indexes: indexes}
}

// find returns the index of the first alias present in the header
func (cm *columnMap) find(aliases []string) (int, bool) {
	for _, alias := range aliases {
		if idx, ok := cm.indexes[alias]; ok {
			return idx, true
		}
	}
	return 0, false
}

// get returns the trimmed cell at idx, or "" when the row is short
func get(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// openCSV opens the file and wraps it in a configured csv.Reader
func openCSV(path string, config *Config) (*os.File, *csv.Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CategoryParse, errors.CodeInvalidFormat,
			fmt.Sprintf("cannot open %s", path))
	}

	reader := csv.NewReader(file)
	reader.Comma = config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	return file, reader, nil
}

// readRows iterates data rows, invoking handle for each. CSV-level read
// errors are recorded in stats and the row skipped.
func readRows(reader *csv.Reader, path string, stats *ParseStats, handle func(line int, record []string)) error {
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			stats.AddError(errors.ParseError(errors.CodeInvalidRow, path, line, err))
			continue
		}

		stats.RowsRead++
		handle(line, record)
	}
}

func logLoad(log logger.Logger, path string, stats *ParseStats) {
	log.WithFields(map[string]interface{}{
		"file":        path,
		"rows_read":   stats.RowsRead,
		"rows_loaded": stats.RowsLoaded,
		"row_errors":  len(stats.Errors),
	}).Info("loaded transaction file")
}
