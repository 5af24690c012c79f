package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"reconciliation-engine/internal/models"
	"reconciliation-engine/pkg/errors"
)

// AccountBatch is one account's transactions within a batch run
type AccountBatch struct {
	AccountID string                    `json:"account_id"`
	Bank      []*models.BankTransaction `json:"bank"`
	Book      []*models.BookTransaction `json:"book"`
}

// AccountResult is the per-account outcome of a batch run. Exactly one of
// Result and Err is set.
type AccountResult struct {
	AccountID string                       `json:"account_id"`
	Result    *models.ReconciliationResult `json:"result,omitempty"`
	Err       *errors.EngineError          `json:"error,omitempty"`
}

// BatchResult summarizes a multi-account reconciliation run. Accounts are
// reported in input order regardless of completion order.
type BatchResult struct {
	BatchID      string           `json:"batch_id"`
	TotalBatches int              `json:"total_batches"`
	Successful   int              `json:"successful"`
	Failed       int              `json:"failed"`
	Accounts     []*AccountResult `json:"accounts"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ReconcileBatch reconciles each account independently and in parallel. A
// failure in one account, including a panic inside its pipeline, is recorded
// on that account's slot and never affects the others.
func (e *Engine) ReconcileBatch(ctx context.Context, batches []*AccountBatch) (*BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &BatchResult{
		BatchID:      uuid.NewString(),
		TotalBatches: len(batches),
		Accounts:     make([]*AccountResult, len(batches)),
		CreatedAt:    time.Now().UTC(),
	}

	log := e.log.WithFields(map[string]interface{}{
		"batch_id": result.BatchID,
		"accounts": len(batches),
	})
	log.Info("starting batch reconciliation")

	sem := make(chan struct{}, batchConcurrency(e.config.MaxBatchConcurrency, len(batches)))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(slot int, batch *AccountBatch) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			result.Accounts[slot] = e.reconcileOne(ctx, batch)
		}(i, batch)
	}
	wg.Wait()

	for _, account := range result.Accounts {
		if account.Err != nil {
			result.Failed++
		} else {
			result.Successful++
		}
	}

	log.WithFields(map[string]interface{}{
		"successful": result.Successful,
		"failed":     result.Failed,
	}).Info("batch reconciliation complete")

	return result, nil
}

// reconcileOne runs a single account with panic isolation
func (e *Engine) reconcileOne(ctx context.Context, batch *AccountBatch) (account *AccountResult) {
	account = &AccountResult{}
	if batch != nil {
		account.AccountID = batch.AccountID
	}

	defer func() {
		if r := recover(); r != nil {
			account.Result = nil
			account.Err = errors.BatchError(account.AccountID,
				fmt.Errorf("panic during reconciliation: %v", r))
			e.log.WithField("account_id", account.AccountID).
				Errorf("account reconciliation panicked: %v", r)
		}
	}()

	if batch == nil {
		account.Err = errors.New(errors.CategoryBatch, errors.CodeAccountFailed, "nil account batch")
		return account
	}

	res, err := e.reconcileAccount(ctx, batch.AccountID, batch.Bank, batch.Book)
	if err != nil {
		if engineErr, ok := errors.AsEngineError(err); ok {
			account.Err = engineErr
		} else {
			account.Err = errors.BatchError(batch.AccountID, err)
		}
		return account
	}

	account.Result = res
	return account
}

func batchConcurrency(limit, accounts int) int {
	if limit <= 0 || limit > accounts {
		if accounts == 0 {
			return 1
		}
		return accounts
	}
	return limit
}
