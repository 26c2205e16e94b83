// Package migrations embeds SQL migration files into the binary.
//
// Importing this package registers the files with the database package, so
// the hub can migrate without the SQL files present on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/smarthome-hub/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.RegisterMigrations(migrationsFS, ".")
}
