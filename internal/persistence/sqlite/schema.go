package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mchestr/plex-maintenance-engine/internal/migration"
)

// schemaVersion tracks this database's DDL via the migration_history
// ledger (kept from the teacher's data-import migration tracker,
// repurposed here as a schema-version ledger: one row per applied
// schema revision instead of one row per imported data module).
const schemaVersion = migration.ModuleSchemaV1

const ddl = `
CREATE TABLE IF NOT EXISTS migration_history (
	module TEXT PRIMARY KEY,
	source_type TEXT,
	source_path TEXT,
	migrated_at_ms INTEGER,
	record_count INTEGER,
	checksum TEXT
);

CREATE TABLE IF NOT EXISTS maintenance_rule (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	enabled INTEGER NOT NULL,
	media_type TEXT NOT NULL,
	library_ids TEXT NOT NULL DEFAULT '[]',
	criteria TEXT NOT NULL,
	schedule TEXT,
	action_type TEXT NOT NULL,
	last_run_at TEXT,
	next_run_at TEXT,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS maintenance_scan (
	id TEXT PRIMARY KEY,
	rule_id TEXT NOT NULL REFERENCES maintenance_rule(id),
	status TEXT NOT NULL,
	started_at TEXT NOT NULL,
	completed_at TEXT,
	items_scanned INTEGER NOT NULL DEFAULT 0,
	items_flagged INTEGER NOT NULL DEFAULT 0,
	error TEXT
);
CREATE INDEX IF NOT EXISTS idx_maintenance_scan_rule ON maintenance_scan(rule_id);

CREATE TABLE IF NOT EXISTS maintenance_candidate (
	id TEXT PRIMARY KEY,
	scan_id TEXT NOT NULL REFERENCES maintenance_scan(id),
	media_type TEXT NOT NULL,
	plex_rating_key TEXT NOT NULL,
	external_id TEXT,
	radarr_id TEXT,
	sonarr_id TEXT,
	title TEXT NOT NULL,
	year INTEGER,
	poster TEXT,
	file_path TEXT,
	file_size INTEGER,
	play_count INTEGER NOT NULL DEFAULT 0,
	last_watched_at TEXT,
	added_at TEXT,
	matched_rules TEXT NOT NULL DEFAULT '[]',
	review_status TEXT NOT NULL,
	deletion_error TEXT,
	deleted_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_maintenance_candidate_scan ON maintenance_candidate(scan_id);
CREATE INDEX IF NOT EXISTS idx_maintenance_candidate_review_status ON maintenance_candidate(review_status);

CREATE TABLE IF NOT EXISTS maintenance_deletion_log (
	id TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL REFERENCES maintenance_candidate(id),
	media_type TEXT NOT NULL,
	title TEXT NOT NULL,
	year INTEGER,
	file_size INTEGER,
	deleted_by TEXT NOT NULL,
	deleted_from TEXT NOT NULL,
	files_deleted INTEGER NOT NULL,
	rule_names TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);
`

// Migrate applies the schema DDL (idempotent: every statement is
// CREATE ... IF NOT EXISTS) and records the applied revision in the
// migration ledger.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("sqlite: applying schema: %w", err)
	}

	migrated, err := migration.IsMigrated(db, schemaVersion)
	if err != nil {
		return fmt.Errorf("sqlite: checking schema ledger: %w", err)
	}
	if migrated {
		return nil
	}

	return migration.RecordMigration(db, migration.HistoryRecord{
		Module:       schemaVersion,
		SourceType:   "ddl",
		SourcePath:   "internal/persistence/sqlite/schema.go",
		MigratedAtMs: time.Now().UnixMilli(),
	})
}
