package feeds

import (
	"context"
	"fmt"

	"reconciliation-engine/internal/models"
	"reconciliation-engine/pkg/errors"
	"reconciliation-engine/pkg/logger"
)

// BankFeed loads bank transactions from a CSV file and implements the
// engine's BankFeedProvider interface
type BankFeed struct {
	path   string
	config *Config
	log    logger.Logger

	stats *ParseStats
}

// NewBankFeed creates a loader for the given CSV file
func NewBankFeed(path string, config *Config) (*BankFeed, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, errors.CodeInvalidConfig, "invalid feed configuration")
	}

	return &BankFeed{
		path:   path,
		config: config,
		log:    logger.Default().WithComponent("bank_feed"),
	}, nil
}

// Stats returns the stats of the most recent load, or nil before any load
func (bf *BankFeed) Stats() *ParseStats {
	return bf.stats
}

// BankTransactions reads and parses the file. Malformed rows are recorded
// in Stats and skipped; only file-level failures return an error.
func (bf *BankFeed) BankTransactions(ctx context.Context) ([]*models.BankTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, reader, err := openCSV(bf.path, bf.config)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stats := &ParseStats{}
	bf.stats = stats

	header, err := reader.Read()
	if err != nil {
		return nil, errors.ParseError(errors.CodeMissingColumn, bf.path, 1,
			fmt.Errorf("cannot read header: %w", err))
	}

	columns := newColumnMap(header)
	idIdx, ok := columns.find(bf.config.IDColumns)
	if !ok {
		return nil, errors.ParseError(errors.CodeMissingColumn, bf.path, 1,
			fmt.Errorf("no ID column found among %v", bf.config.IDColumns))
	}
	amountIdx, ok := columns.find(bf.config.AmountColumns)
	if !ok {
		return nil, errors.ParseError(errors.CodeMissingColumn, bf.path, 1,
			fmt.Errorf("no amount column found among %v", bf.config.AmountColumns))
	}
	dateIdx, ok := columns.find(bf.config.DateColumns)
	if !ok {
		return nil, errors.ParseError(errors.CodeMissingColumn, bf.path, 1,
			fmt.Errorf("no date column found among %v", bf.config.DateColumns))
	}
	descIdx, hasDesc := columns.find(bf.config.DescriptionColumns)
	extIdx, hasExt := columns.find(bf.config.ExternalIDColumns)

	var transactions []*models.BankTransaction

	err = readRows(reader, bf.path, stats, func(line int, record []string) {
		amount, err := models.ParseDecimalFromString(get(record, amountIdx))
		if err != nil {
			stats.AddError(errors.ParseError(errors.CodeInvalidRow, bf.path, line, err).
				WithContext("field", "amount"))
			return
		}

		date, err := models.ParseTimeWithFormats(get(record, dateIdx))
		if err != nil {
			stats.AddError(errors.ParseError(errors.CodeInvalidRow, bf.path, line, err).
				WithContext("field", "date"))
			return
		}

		tx := models.NewBankTransaction(get(record, idIdx), amount, date, "")
		if hasDesc {
			tx.Description = get(record, descIdx)
		}
		if hasExt {
			tx.ExternalID = get(record, extIdx)
		}

		if err := tx.Validate(); err != nil {
			stats.AddError(errors.ValidationError(errors.CodeMissingField, "bank_transaction", tx.ID, err).
				WithContext("line", line))
			return
		}

		stats.RowsLoaded++
		transactions = append(transactions, tx)
	})
	if err != nil {
		return nil, err
	}

	logLoad(bf.log, bf.path, stats)
	return transactions, nil
}
