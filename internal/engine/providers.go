package engine

import (
	"context"

	"reconciliation-engine/internal/models"
)

// BankFeedProvider supplies bank transactions for a reconciliation run
type BankFeedProvider interface {
	BankTransactions(ctx context.Context) ([]*models.BankTransaction, error)
}

// LedgerProvider supplies book transactions for a reconciliation run
type LedgerProvider interface {
	BookTransactions(ctx context.Context) ([]*models.BookTransaction, error)
}

// StaticBankFeed is a BankFeedProvider over an in-memory slice
type StaticBankFeed []*models.BankTransaction

// BankTransactions returns the wrapped slice
func (s StaticBankFeed) BankTransactions(ctx context.Context) ([]*models.BankTransaction, error) {
	return s, nil
}

// StaticLedger is a LedgerProvider over an in-memory slice
type StaticLedger []*models.BookTransaction

// BookTransactions returns the wrapped slice
func (s StaticLedger) BookTransactions(ctx context.Context) ([]*models.BookTransaction, error) {
	return s, nil
}
