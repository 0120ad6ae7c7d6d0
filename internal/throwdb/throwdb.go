// Package throwdb persists detection sessions, fused throw results and the
// per-camera detections behind them in a local SQLite database. It is the
// storage layer behind the replay tooling: every triangulation run can be
// re-scored later against the recorded camera inputs.
package throwdb

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/dartsense/dartsense/internal/monitoring"

	_ "modernc.org/sqlite"
)

type ThrowDB struct {
	*sql.DB
}

// migrationsFS carries the versioned schema: sessions, fused throws, and
// the raw per-camera detections.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

func NewThrowDB(path string) (*ThrowDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	tdb := &ThrowDB{db}
	if err := tdb.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate throw database: %w", err)
	}

	monitoring.Logf("opened throw database at %s", path)

	return tdb, nil
}
