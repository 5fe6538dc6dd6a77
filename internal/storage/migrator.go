package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bluescore/assets"
)

const schemaVersionsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at INTEGER NOT NULL
);`

// runMigrations brings the scoreboard schema up to date. Embedded *.sql files are applied
// once each, in file name order, each inside its own transaction.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(schemaVersionsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	pending, err := pendingMigrations(db)
	if err != nil {
		return err
	}

	for _, name := range pending {
		if err := applyMigration(db, name); err != nil {
			return err
		}
	}

	if len(pending) > 0 {
		log.Info().Int("applied", len(pending)).Msg("Scoreboard schema upgraded")
	}

	return nil
}

// pendingMigrations lists embedded schema files not yet recorded in schema_migrations.
func pendingMigrations(db *sql.DB) ([]string, error) {
	entries, err := assets.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("list embedded schema files: %w", err)
	}

	var pending []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var one int
		err := db.QueryRow("SELECT 1 FROM schema_migrations WHERE version = ?", entry.Name()).Scan(&one)
		switch {
		case err == nil:
		case errors.Is(err, sql.ErrNoRows):
			pending = append(pending, entry.Name())
		default:
			return nil, fmt.Errorf("schema version %s: %w", entry.Name(), err)
		}
	}
	slices.Sort(pending)

	return pending, nil
}

func applyMigration(db *sql.DB, name string) error {
	ddl, err := assets.ReadFile(path.Join("migrations", name))
	if err != nil {
		return fmt.Errorf("read schema file %s: %w", name, err)
	}

	log.Debug().Str("file", name).Msg("Applying schema change")

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema change %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(string(ddl)); err != nil {
		return fmt.Errorf("apply schema file %s: %w", name, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		name, toMillis(time.Now())); err != nil {
		return fmt.Errorf("record schema version %s: %w", name, err)
	}

	return tx.Commit()
}
