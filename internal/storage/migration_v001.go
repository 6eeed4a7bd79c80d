package storage

import "database/sql"

// migrateV001 creates the guide schema. Every statement uses IF NOT EXISTS
// so a partially applied schema can be completed.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS guide_groups (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			url  TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS channels (
			id    TEXT PRIMARY KEY,
			name  TEXT NOT NULL DEFAULT '',
			url   TEXT NOT NULL DEFAULT '',
			image TEXT NOT NULL DEFAULT ''
		)`,

		// id is group_id || '|' || channel_id so repeated inserts stay idempotent.
		`CREATE TABLE IF NOT EXISTS group_channels (
			id         TEXT PRIMARY KEY,
			group_id   TEXT NOT NULL,
			channel_id TEXT NOT NULL
		)`,

		// No foreign key to channels: orphaned favorites are tolerated.
		`CREATE TABLE IF NOT EXISTS favorites (
			position INTEGER NOT NULL UNIQUE,
			channel  TEXT NOT NULL UNIQUE
		)`,

		`CREATE TABLE IF NOT EXISTS programs (
			id                  TEXT PRIMARY KEY,
			url                 TEXT NOT NULL DEFAULT '',
			channel             TEXT NOT NULL,
			start               INTEGER NOT NULL,
			stop                INTEGER NOT NULL,
			title               TEXT NOT NULL DEFAULT '',
			subtitle            TEXT NOT NULL DEFAULT '',
			description         TEXT NOT NULL DEFAULT '',
			description_fetched BOOLEAN NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS program_categories (
			program  TEXT NOT NULL,
			category TEXT NOT NULL,
			seq      INTEGER NOT NULL DEFAULT 0,
			UNIQUE(program, category)
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_group_channels_channel ON group_channels(channel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_group_channels_group   ON group_channels(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_programs_channel_start ON programs(channel, start)`,
		`CREATE INDEX IF NOT EXISTS idx_programs_stop          ON programs(stop)`,
		`CREATE INDEX IF NOT EXISTS idx_program_categories     ON program_categories(program, seq)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// guideTables lists every table created by the migrations, in drop order.
var guideTables = []string{
	"program_categories",
	"programs",
	"favorites",
	"group_channels",
	"channels",
	"guide_groups",
	"settings",
}
