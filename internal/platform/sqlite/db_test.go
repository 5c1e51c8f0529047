package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMigrations = fstest.MapFS{
	"migrations/000001_items.up.sql":   {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")},
	"migrations/000001_items.down.sql": {Data: []byte("DROP TABLE items;")},
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, 4, opts.MaxOpenConns)
	assert.Equal(t, 10*time.Minute, opts.ConnMaxIdleTime)
	assert.Equal(t, 5*time.Second, opts.PingTimeout)
	assert.True(t, opts.WALMode)
	assert.Equal(t, 5*time.Second, opts.BusyTimeout)
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		dbPath   string
		opts     Options
		expected string
	}{
		{
			name:     "default options",
			dbPath:   "/tmp/test.db",
			opts:     DefaultOptions(),
			expected: "/tmp/test.db?_pragma=foreign_keys%281%29&_pragma=synchronous%28NORMAL%29&_pragma=busy_timeout%285000%29&_pragma=journal_mode%28WAL%29",
		},
		{
			name:     "in-memory skips WAL",
			dbPath:   ":memory:",
			opts:     Options{WALMode: true},
			expected: ":memory:?_pragma=foreign_keys%281%29&_pragma=synchronous%28NORMAL%29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildDSN(tt.dbPath, tt.opts))
		})
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "portal.db")

	db, err := Open(ctx, path, DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.GetContext(ctx, &mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.GetContext(ctx, &fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)
}

func TestApplyMigrations(t *testing.T) {
	ctx := context.Background()
	db, err := OpenInMemory(ctx)
	require.NoError(t, err)
	defer db.Close()

	v, dirty, err := MigrationVersion(db, testMigrations, "migrations")
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
	assert.False(t, dirty)

	require.NoError(t, ApplyMigrations(db, testMigrations, "migrations"))
	require.NoError(t, ApplyMigrations(db, testMigrations, "migrations"), "second run is a no-op")

	v, _, err = MigrationVersion(db, testMigrations, "migrations")
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	_, err = db.ExecContext(ctx, "INSERT INTO items (name) VALUES (?)", "x")
	require.NoError(t, err)
}

func TestWithinTx(t *testing.T) {
	ctx := context.Background()
	db, err := OpenInMemory(ctx)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, ApplyMigrations(db, testMigrations, "migrations"))

	count := func() int {
		var n int
		require.NoError(t, db.GetContext(ctx, &n, "SELECT COUNT(*) FROM items"))
		return n
	}

	err = WithinTx(ctx, db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES ('a')")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count())

	boom := errors.New("boom")
	err = WithinTx(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES ('b')"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, count(), "failed transaction is rolled back")

	assert.Panics(t, func() {
		_ = WithinTx(ctx, db, func(tx *sqlx.Tx) error {
			_, _ = tx.ExecContext(ctx, "INSERT INTO items (name) VALUES ('c')")
			panic("boom")
		})
	})
	assert.Equal(t, 1, count(), "panicking transaction is rolled back")
}
