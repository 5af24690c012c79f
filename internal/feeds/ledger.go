package feeds

import (
	"context"
	"fmt"

	"reconciliation-engine/internal/models"
	"reconciliation-engine/pkg/errors"
	"reconciliation-engine/pkg/logger"
)

// LedgerFeed loads book transactions from a CSV file and implements the
// engine's LedgerProvider interface
type LedgerFeed struct {
	path   string
	config *Config
	log    logger.Logger

	stats *ParseStats
}

// NewLedgerFeed creates a loader for the given CSV file
func NewLedgerFeed(path string, config *Config) (*LedgerFeed, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, errors.CodeInvalidConfig, "invalid feed configuration")
	}

	return &LedgerFeed{
		path:   path,
		config: config,
		log:    logger.Default().WithComponent("ledger_feed"),
	}, nil
}

// Stats returns the stats of the most recent load, or nil before any load
func (lf *LedgerFeed) Stats() *ParseStats {
	return lf.stats
}

// BookTransactions reads and parses the file with per-row error isolation
func (lf *LedgerFeed) BookTransactions(ctx context.Context) ([]*models.BookTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, reader, err := openCSV(lf.path, lf.config)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stats := &ParseStats{}
	lf.stats = stats

	header, err := reader.Read()
	if err != nil {
		return nil, errors.ParseError(errors.CodeMissingColumn, lf.path, 1,
			fmt.Errorf("cannot read header: %w", err))
	}

	columns := newColumnMap(header)
	idIdx, ok := columns.find(lf.config.IDColumns)
	if !ok {
		return nil, errors.ParseError(errors.CodeMissingColumn, lf.path, 1,
			fmt.Errorf("no ID column found among %v", lf.config.IDColumns))
	}
	amountIdx, ok := columns.find(lf.config.AmountColumns)
	if !ok {
		return nil, errors.ParseError(errors.CodeMissingColumn, lf.path, 1,
			fmt.Errorf("no amount column found among %v", lf.config.AmountColumns))
	}
	dateIdx, ok := columns.find(lf.config.DateColumns)
	if !ok {
		return nil, errors.ParseError(errors.CodeMissingColumn, lf.path, 1,
			fmt.Errorf("no date column found among %v", lf.config.DateColumns))
	}
	descIdx, hasDesc := columns.find(lf.config.DescriptionColumns)
	catIdx, hasCat := columns.find(lf.config.CategoryColumns)

	var transactions []*models.BookTransaction

	err = readRows(reader, lf.path, stats, func(line int, record []string) {
		amount, err := models.ParseDecimalFromString(get(record, amountIdx))
		if err != nil {
			stats.AddError(errors.ParseError(errors.CodeInvalidRow, lf.path, line, err).
				WithContext("field", "amount"))
			return
		}

		date, err := models.ParseTimeWithFormats(get(record, dateIdx))
		if err != nil {
			stats.AddError(errors.ParseError(errors.CodeInvalidRow, lf.path, line, err).
				WithContext("field", "date"))
			return
		}

		tx := models.NewBookTransaction(get(record, idIdx), amount, date, "")
		if hasDesc {
			tx.Description = get(record, descIdx)
		}
		if hasCat {
			tx.Category = get(record, catIdx)
		}

		if err := tx.Validate(); err != nil {
			stats.AddError(errors.ValidationError(errors.CodeMissingField, "book_transaction", tx.ID, err).
				WithContext("line", line))
			return
		}

		stats.RowsLoaded++
		transactions = append(transactions, tx)
	})
	if err != nil {
		return nil, err
	}

	logLoad(lf.log, lf.path, stats)
	return transactions, nil
}
