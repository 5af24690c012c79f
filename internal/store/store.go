// Package store persists reconciliation snapshots. Snapshots are immutable:
// the store only ever inserts, never updates, and re-running an account
// produces a new snapshot row alongside the old one.
package store

import (
	"context"
	"sort"
	"sync"

	"reconciliation-engine/internal/models"
	"reconciliation-engine/pkg/errors"
)

// Store is the snapshot persistence interface
type Store interface {
	// SaveSnapshot persists a reconciliation result under its snapshot ID
	SaveSnapshot(ctx context.Context, result *models.ReconciliationResult) error

	// GetSnapshot retrieves a snapshot by ID
	GetSnapshot(ctx context.Context, snapshotID string) (*models.ReconciliationResult, error)

	// ListSnapshots returns all snapshots for an account, newest first
	ListSnapshots(ctx context.Context, accountID string) ([]*models.ReconciliationResult, error)

	// Close releases any resources held by the store
	Close() error
}

// MemoryStore is an in-memory Store, used by tests and single-shot CLI runs
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]*models.ReconciliationResult
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]*models.ReconciliationResult),
	}
}

// SaveSnapshot stores the result keyed by its snapshot ID
func (ms *MemoryStore) SaveSnapshot(ctx context.Context, result *models.ReconciliationResult) error {
	if result == nil || result.SnapshotID == "" {
		return errors.New(errors.CategoryStorage, errors.CodeSnapshotWrite, "snapshot requires a non-empty ID")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.snapshots[result.SnapshotID]; exists {
		return errors.New(errors.CategoryStorage, errors.CodeSnapshotWrite, "snapshot already exists").
			WithContext("snapshot_id", result.SnapshotID)
	}

	ms.snapshots[result.SnapshotID] = result
	return nil
}

// GetSnapshot retrieves a snapshot by ID
func (ms *MemoryStore) GetSnapshot(ctx context.Context, snapshotID string) (*models.ReconciliationResult, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	result, ok := ms.snapshots[snapshotID]
	if !ok {
		return nil, errors.New(errors.CategoryStorage, errors.CodeSnapshotRead, "snapshot not found").
			WithContext("snapshot_id", snapshotID)
	}

	return result, nil
}

// ListSnapshots returns snapshots for an account ordered newest first
func (ms *MemoryStore) ListSnapshots(ctx context.Context, accountID string) ([]*models.ReconciliationResult, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var results []*models.ReconciliationResult
	for _, result := range ms.snapshots {
		if result.AccountID == accountID {
			results = append(results, result)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	return results, nil
}

// Close is a no-op for the in-memory store
func (ms *MemoryStore) Close() error {
	return nil
}
