package tokenstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionstate/internal/dbx"
)

const (
	sqliteTokenKey   = "session_token"
	sqliteSavedAtKey = "session_token_saved_at"
)

// SQLiteStore keeps the token in the session_state table, alongside a
// saved-at timestamp written in the same transaction. It normally shares the
// database of the SQLite storage backend (storage.SQLiteKV.DB()).
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) SetSessionToken(ctx context.Context, token string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := upsert(ctx, tx, sqliteTokenKey, []byte(token)); err != nil {
			return err
		}
		savedAt := time.Now().UTC().Format(time.RFC3339Nano)
		return upsert(ctx, tx, sqliteSavedAtKey, []byte(savedAt))
	})
}

func (s *SQLiteStore) SessionToken(ctx context.Context) (string, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE key = ?`, sqliteTokenKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session token: %w", err)
	}
	return string(value), nil
}

func (s *SQLiteStore) ClearSessionToken(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, key := range []string{sqliteTokenKey, sqliteSavedAtKey} {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM session_state WHERE key = ?`, key); err != nil {
				return fmt.Errorf("failed to clear session token: %w", err)
			}
		}
		return nil
	})
}

func upsert(ctx context.Context, tx dbx.DBTX, key string, value []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO session_state (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set session_state[%s]: %w", key, err)
	}
	return nil
}
