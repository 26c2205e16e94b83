// Package database opens the SQLite file that holds the hub's audit trail
// and keeps its schema current.
//
// The registry is never persisted. Only audit entries live here, written
// by the audit recorder and paged through by GET /api/v1/audit.
//
// Schema changes are forward-only files named
// YYYYMMDD_HHMMSS_name.up.sql, embedded by the migrations package and
// applied in order by Migrate. SchemaVersion reports the newest applied
// step and is shown by the health endpoint.
//
//	db, err := database.Open(database.ConfigFrom(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if _, err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
