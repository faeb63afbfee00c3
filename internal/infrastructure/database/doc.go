// Package database owns the SQLite connection for Breeze Core: opening
// the file with WAL mode and enforced foreign keys, running embedded
// schema migrations, and probing health for the daemon's check loop.
//
// The pool is deliberately a single connection. SQLite allows one writer
// at a time, and funnelling all statements through one pooled connection
// avoids lock churn between the attribute store and the history
// repository; WAL mode keeps reads concurrent regardless.
//
// Migrations are embedded in the binary (see the migrations package) so a
// deployed daemon never depends on loose .sql files. They are additive and
// forward-only: new columns arrive nullable or with defaults, and nothing
// is ever dropped or renamed. One file per change, named
// YYYYMMDD_HHMMSS_description.sql.
//
//	db, err := database.Open(database.Config{Path: "/var/lib/breeze/breeze.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
