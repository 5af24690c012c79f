package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconciliation-engine/internal/models"
)

func testSnapshot(accountID string, createdAt time.Time) *models.ReconciliationResult {
	bank := models.NewBankTransaction("BANK001", decimal.NewFromFloat(100.50),
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), "Payment to Vendor A")

	return &models.ReconciliationResult{
		SnapshotID: uuid.NewString(),
		AccountID:  accountID,
		BankCount:  1,
		BookCount:  0,
		Unmatched:  []*models.BankTransaction{bank},
		CreatedAt:  createdAt.UTC(),
	}
}

func runStoreTests(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("save and get", func(t *testing.T) {
		snapshot := testSnapshot("acct-1", time.Now())
		require.NoError(t, s.SaveSnapshot(ctx, snapshot))

		got, err := s.GetSnapshot(ctx, snapshot.SnapshotID)
		require.NoError(t, err)
		assert.Equal(t, snapshot.SnapshotID, got.SnapshotID)
		assert.Equal(t, "acct-1", got.AccountID)
		require.Len(t, got.Unmatched, 1)
		assert.True(t, got.Unmatched[0].Amount.Equal(decimal.NewFromFloat(100.50)))
	})

	t.Run("duplicate snapshot rejected", func(t *testing.T) {
		snapshot := testSnapshot("acct-1", time.Now())
		require.NoError(t, s.SaveSnapshot(ctx, snapshot))
		assert.Error(t, s.SaveSnapshot(ctx, snapshot))
	})

	t.Run("missing snapshot", func(t *testing.T) {
		_, err := s.GetSnapshot(ctx, "no-such-snapshot")
		assert.Error(t, err)
	})

	t.Run("list newest first", func(t *testing.T) {
		base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		older := testSnapshot("acct-list", base)
		newer := testSnapshot("acct-list", base.Add(time.Hour))

		require.NoError(t, s.SaveSnapshot(ctx, older))
		require.NoError(t, s.SaveSnapshot(ctx, newer))

		results, err := s.ListSnapshots(ctx, "acct-list")
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, newer.SnapshotID, results[0].SnapshotID)
		assert.Equal(t, older.SnapshotID, results[1].SnapshotID)
	})

	t.Run("empty ID rejected", func(t *testing.T) {
		assert.Error(t, s.SaveSnapshot(ctx, &models.ReconciliationResult{}))
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	runStoreTests(t, s)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	runStoreTests(t, s)
}
