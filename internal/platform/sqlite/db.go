package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql name registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Options configures the connection pool.
type Options struct {
	MaxOpenConns int
	ConnMaxIdleTime time.Duration
	// PingTimeout bounds the connectivity check in Open.
	PingTimeout time.Duration
	// WALMode is ignored for in-memory databases.
	WALMode bool
	// BusyTimeout is how long a writer waits on SQLITE_BUSY.
	BusyTimeout time.Duration
}

// DefaultOptions suits the embedded session store.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    4,
		ConnMaxIdleTime: 10 * time.Minute,
		PingTimeout:     5 * time.Second,
		WALMode:         true,
		BusyTimeout:     5 * time.Second,
	}
}

// Open opens the database file at dbPath, creating its directory if needed.
// Pragmas travel in the DSN so every pooled connection gets them.
func Open(ctx context.Context, dbPath string, opts Options) (*sqlx.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return open(ctx, buildDSN(dbPath, opts), opts)
}

// OpenInMemory opens a private in-memory database. The pool is capped at one
// connection, otherwise each connection would see its own empty database.
func OpenInMemory(ctx context.Context) (*sqlx.DB, error) {
	opts := DefaultOptions()
	opts.WALMode = false
	opts.MaxOpenConns = 1
	return open(ctx, buildDSN(":memory:", opts), opts)
}

func open(ctx context.Context, dsn string, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return db, nil
}

// buildDSN renders path?_pragma=name(value)&... as modernc expects.
func buildDSN(dbPath string, opts Options) string {
	pragmas := []string{"foreign_keys(1)", "synchronous(NORMAL)"}
	if opts.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	}
	if opts.WALMode && dbPath != ":memory:" {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}

	q := make([]string, len(pragmas))
	for i, p := range pragmas {
		q[i] = "_pragma=" + url.QueryEscape(p)
	}
	return dbPath + "?" + strings.Join(q, "&")
}
