package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB opens a fresh migrated database in a temp directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(Config{DatabasePath: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDBCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "data", "test.db")
	db, err := NewDB(Config{DatabasePath: dbPath})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Connection().Ping())
}

func TestNewDBRequiresPath(t *testing.T) {
	_, err := NewDB(Config{})
	require.Error(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := NewDB(Config{DatabasePath: dbPath})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening runs goose over an already-migrated database.
	db, err = NewDB(Config{DatabasePath: dbPath})
	require.NoError(t, err)
	defer db.Close()

	var n int
	err = db.Connection().QueryRow(`SELECT COUNT(*) FROM movies`).Scan(&n)
	require.NoError(t, err)
	require.Zero(t, n)
}
