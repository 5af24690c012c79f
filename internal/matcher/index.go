package matcher

import (
	"sort"
	"time"

	"reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

// BookIndex provides amount- and date-keyed lookup over the book transaction
// set so candidate retrieval does not scan the full list per bank transaction.
type BookIndex struct {
	// amountRange holds unique amounts sorted ascending for binary search
	amountRange []*amountEntry

	// dateIndex maps date strings (YYYY-MM-DD) to book transaction slices
	dateIndex map[string][]*models.BookTransaction

	// all holds every indexed book transaction in input order
	all []*models.BookTransaction
}

type amountEntry struct {
	amount       decimal.Decimal
	transactions []*models.BookTransaction
}

// NewBookIndex builds an index over the given book transactions
func NewBookIndex(transactions []*models.BookTransaction) *BookIndex {
	idx := &BookIndex{
		dateIndex: make(map[string][]*models.BookTransaction),
		all:       transactions,
	}

	amountMap := make(map[string]*amountEntry)
	for _, tx := range transactions {
		amountKey := tx.Amount.String()
		dateKey := tx.DateKey()

		idx.dateIndex[dateKey] = append(idx.dateIndex[dateKey], tx)

		if entry, exists := amountMap[amountKey]; exists {
			entry.transactions = append(entry.transactions, tx)
		} else {
			amountMap[amountKey] = &amountEntry{
				amount:       tx.Amount,
				transactions: []*models.BookTransaction{tx},
			}
		}
	}

	idx.amountRange = make([]*amountEntry, 0, len(amountMap))
	for _, entry := range amountMap {
		idx.amountRange = append(idx.amountRange, entry)
	}

	sort.Slice(idx.amountRange, func(i, j int) bool {
		return idx.amountRange[i].amount.LessThan(idx.amountRange[j].amount)
	})

	return idx
}

// All returns every indexed book transaction in input order
func (bi *BookIndex) All() []*models.BookTransaction {
	return bi.all
}

// Len returns the number of indexed book transactions
func (bi *BookIndex) Len() int {
	return len(bi.all)
}

// GetByAmountRange returns book transactions with amounts in [min, max],
// ordered by amount then input order
func (bi *BookIndex) GetByAmountRange(min, max decimal.Decimal) []*models.BookTransaction {
	var result []*models.BookTransaction

	start := sort.Search(len(bi.amountRange), func(i int) bool {
		return bi.amountRange[i].amount.GreaterThanOrEqual(min)
	})

	for i := start; i < len(bi.amountRange); i++ {
		entry := bi.amountRange[i]
		if entry.amount.GreaterThan(max) {
			break
		}
		result = append(result, entry.transactions...)
	}

	return result
}

// GetByDateWindow returns book transactions dated within toleranceDays
// calendar days of the given date, walking the day-keyed index directly
func (bi *BookIndex) GetByDateWindow(date time.Time, toleranceDays int) []*models.BookTransaction {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	var result []*models.BookTransaction
	for offset := -toleranceDays; offset <= toleranceDays; offset++ {
		key := day.AddDate(0, 0, offset).Format("2006-01-02")
		result = append(result, bi.dateIndex[key]...)
	}

	return result
}

// GetCandidates returns the plausible book-side candidates for a bank
// transaction: amounts strictly within the proximity tolerance and dates
// within the tolerance window. This coarse filter deliberately excludes
// pairs differing by more than the tolerance even when their descriptions
// would score highly.
func (bi *BookIndex) GetCandidates(bank *models.BankTransaction, config *Config) []*models.BookTransaction {
	min := bank.Amount.Sub(config.AmountProximity)
	max := bank.Amount.Add(config.AmountProximity)

	var candidates []*models.BookTransaction
	for _, book := range bi.GetByAmountRange(min, max) {
		if !bank.Amount.Sub(book.Amount).Abs().LessThan(config.AmountProximity) {
			continue
		}

		if models.DayDifference(bank.Date, book.Date) > config.DateToleranceDays {
			continue
		}

		candidates = append(candidates, book)
	}

	if config.MaxCandidatesPerTransaction > 0 && len(candidates) > config.MaxCandidatesPerTransaction {
		candidates = candidates[:config.MaxCandidatesPerTransaction]
	}

	return candidates
}

// HasProximateMatch reports whether any book transaction passes the coarse
// amount/date proximity test for the bank transaction. This drives the
// unmatched computation independently of match assignment. The date window
// comes straight from the day-keyed index, so only the handful of buckets
// around the bank date are scanned.
func (bi *BookIndex) HasProximateMatch(bank *models.BankTransaction, config *Config) bool {
	for _, book := range bi.GetByDateWindow(bank.Date, config.DateToleranceDays) {
		if bank.Amount.Sub(book.Amount).Abs().LessThan(config.AmountProximity) {
			return true
		}
	}

	return false
}

// Stats returns index cardinality statistics
func (bi *BookIndex) Stats() IndexStats {
	return IndexStats{
		TotalTransactions: len(bi.all),
		UniqueAmounts:     len(bi.amountRange),
		UniqueDates:       len(bi.dateIndex),
	}
}

// IndexStats provides statistics about index usage and efficiency
type IndexStats struct {
	TotalTransactions int
	UniqueAmounts     int
	UniqueDates       int
}
