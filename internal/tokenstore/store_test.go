package tokenstore

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/sessionstate/internal/storage"
)

// ---- fixtures ----

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE session_state (
  key        TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);`)
	require.NoError(t, err)
	return NewSQLiteStore(db)
}

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(),
		"kv":     NewKVStore(storage.NewMemoryKV()),
		"sqlite": setupSQLiteStore(t),
	}
}

// ---- conformance ----

func TestStore_SetGetClear(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := s.SessionToken(ctx)
			require.NoError(t, err)
			assert.Empty(t, got, "absent token reads as empty string")

			require.NoError(t, s.SetSessionToken(ctx, "tok-123"))
			got, err = s.SessionToken(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-123", got)

			require.NoError(t, s.SetSessionToken(ctx, "tok-456"))
			got, err = s.SessionToken(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-456", got)

			require.NoError(t, s.ClearSessionToken(ctx))
			got, err = s.SessionToken(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)

			// clearing twice is a no-op
			require.NoError(t, s.ClearSessionToken(ctx))
		})
	}
}

func TestSQLiteStore_WritesSavedAt(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetSessionToken(ctx, "tok"))

	var savedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE key = ?`, sqliteSavedAtKey).Scan(&savedAt)
	require.NoError(t, err)
	assert.NotEmpty(t, savedAt)

	require.NoError(t, s.ClearSessionToken(ctx))
	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE key = ?`, sqliteSavedAtKey).Scan(&savedAt)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMint_ReturnsUniqueTokens(t *testing.T) {
	assert.NotEqual(t, Mint(), Mint())
	assert.NotEmpty(t, Mint())
}
