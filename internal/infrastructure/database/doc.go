// Package database provides SQLite connectivity for the durable directory.
//
// This package manages:
//   - Opening the database file with WAL mode, busy timeout and foreign keys
//   - Embedded, versioned schema migrations
//   - Health checks
//
// All queries issued through this package use parameterised statements and
// the database file is created with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql, and live at the root of the filesystem passed to
// Migrate.
package database
