// Package sqlite opens the embedded SQLite database (modernc.org/sqlite, no
// cgo) behind sqlx and applies golang-migrate migrations from an embedded FS.
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	db, err := sqlite.Open(ctx, "data/session.db", sqlite.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	if err := sqlite.ApplyMigrations(db, migrations, "migrations"); err != nil {
//		return err
//	}
package sqlite
