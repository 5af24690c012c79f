package store

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/mattn/go-sqlite3"

	"reconciliation-engine/internal/models"
	"reconciliation-engine/pkg/errors"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	snapshot_id TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL,
	payload     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_account ON snapshots(account_id, created_at DESC);
`

// SQLiteStore persists snapshots in a SQLite database. The full result is
// stored as a JSON payload; account ID and creation time are promoted to
// columns for listing.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed store at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.StorageError(errors.CodeSnapshotWrite, "open database", err)
	}

	if _, err := db.Exec(snapshotSchema); err != nil {
		db.Close()
		return nil, errors.StorageError(errors.CodeSnapshotWrite, "create schema", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveSnapshot inserts the result as a new row. Existing snapshots are never
// updated; a duplicate snapshot ID is an error.
func (ss *SQLiteStore) SaveSnapshot(ctx context.Context, result *models.ReconciliationResult) error {
	if result == nil || result.SnapshotID == "" {
		return errors.New(errors.CategoryStorage, errors.CodeSnapshotWrite, "snapshot requires a non-empty ID")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return errors.StorageError(errors.CodeSnapshotWrite, "encode snapshot", err).
			WithContext("snapshot_id", result.SnapshotID)
	}

	_, err = ss.db.ExecContext(ctx,
		`INSERT INTO snapshots (snapshot_id, account_id, created_at, payload) VALUES (?, ?, ?, ?)`,
		result.SnapshotID, result.AccountID, result.CreatedAt.UTC(), payload)
	if err != nil {
		return errors.StorageError(errors.CodeSnapshotWrite, "insert snapshot", err).
			WithContext("snapshot_id", result.SnapshotID)
	}

	return nil
}

// GetSnapshot retrieves a snapshot by ID
func (ss *SQLiteStore) GetSnapshot(ctx context.Context, snapshotID string) (*models.ReconciliationResult, error) {
	var payload []byte
	err := ss.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE snapshot_id = ?`, snapshotID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.CategoryStorage, errors.CodeSnapshotRead, "snapshot not found").
			WithContext("snapshot_id", snapshotID)
	}
	if err != nil {
		return nil, errors.StorageError(errors.CodeSnapshotRead, "query snapshot", err).
			WithContext("snapshot_id", snapshotID)
	}

	return decodeSnapshot(payload, snapshotID)
}

// ListSnapshots returns all snapshots for an account, newest first
func (ss *SQLiteStore) ListSnapshots(ctx context.Context, accountID string) ([]*models.ReconciliationResult, error) {
	rows, err := ss.db.QueryContext(ctx,
		`SELECT snapshot_id, payload FROM snapshots WHERE account_id = ? ORDER BY created_at DESC`,
		accountID)
	if err != nil {
		return nil, errors.StorageError(errors.CodeSnapshotRead, "list snapshots", err).
			WithContext("account_id", accountID)
	}
	defer rows.Close()

	var results []*models.ReconciliationResult
	for rows.Next() {
		var snapshotID string
		var payload []byte
		if err := rows.Scan(&snapshotID, &payload); err != nil {
			return nil, errors.StorageError(errors.CodeSnapshotRead, "scan snapshot row", err)
		}

		result, err := decodeSnapshot(payload, snapshotID)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.StorageError(errors.CodeSnapshotRead, "iterate snapshot rows", err)
	}

	return results, nil
}

// Close closes the underlying database
func (ss *SQLiteStore) Close() error {
	return ss.db.Close()
}

func decodeSnapshot(payload []byte, snapshotID string) (*models.ReconciliationResult, error) {
	var result models.ReconciliationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, errors.StorageError(errors.CodeSnapshotRead, "decode snapshot", err).
			WithContext("snapshot_id", snapshotID)
	}
	// CreatedAt round-trips through JSON as RFC3339; normalize to UTC
	result.CreatedAt = result.CreatedAt.UTC()
	return &result, nil
}
