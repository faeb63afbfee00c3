// Package migrations compiles the SQL schema migrations into the binary,
// so a deployed daemon never depends on loose .sql files.
package migrations

import (
	"embed"

	"github.com/breezehub/breeze-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

// The database package cannot import this one without a cycle, so the
// embedded filesystem is handed over at init.
func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
