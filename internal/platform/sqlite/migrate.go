package sqlite

import (
	"errors"
	"fmt"
	"io/fs"

	migrate "github.com/golang-migrate/migrate/v4"
	msqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

// newMigrate binds migrations in fsys/dir to an already open connection.
func newMigrate(db *sqlx.DB, fsys fs.FS, dir string) (*migrate.Migrate, func(), error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open migrations source: %w", err)
	}
	drv, err := msqlite.WithInstance(db.DB, &msqlite.Config{})
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("failed to create migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, DriverName, drv)
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m.Close would close db as well.
	return m, func() { _ = src.Close() }, nil
}

// ApplyMigrations runs all pending up migrations. Running it again is a no-op.
func ApplyMigrations(db *sqlx.DB, fsys fs.FS, dir string) error {
	m, done, err := newMigrate(db, fsys, dir)
	if err != nil {
		return err
	}
	defer done()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the schema version and dirty flag. Before the first
// migration it returns 0 and no error.
func MigrationVersion(db *sqlx.DB, fsys fs.FS, dir string) (uint, bool, error) {
	m, done, err := newMigrate(db, fsys, dir)
	if err != nil {
		return 0, false, err
	}
	defer done()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}
