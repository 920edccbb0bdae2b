package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations upgrade the replica in place. Entry i moves the schema from
// user_version i to i+1; existing rows take the column defaults.
var migrations = [][]string{
	{
		// The 'questions' table is the local replica of the question set.
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			question_text TEXT NOT NULL,
			answer TEXT NOT NULL,
			description TEXT,
			score REAL NOT NULL,
			created_at INTEGER NOT NULL,
			last_reviewed_at INTEGER,
			dirty INTEGER NOT NULL DEFAULT 0
		);`,
		// The 'attempts' table is an append-only log of answers.
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			question_id TEXT NOT NULL,
			correct INTEGER NOT NULL,
			answered_at INTEGER NOT NULL,
			synced INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_dirty ON questions(dirty);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_synced ON attempts(synced);`,
	},
	{
		`ALTER TABLE questions ADD COLUMN tags TEXT NOT NULL DEFAULT '[]';`,
	},
	{
		`ALTER TABLE questions ADD COLUMN local_rev INTEGER NOT NULL DEFAULT 0;`,
		`ALTER TABLE questions ADD COLUMN pending_create INTEGER NOT NULL DEFAULT 0;`,
		`CREATE INDEX IF NOT EXISTS idx_questions_last_reviewed ON questions(last_reviewed_at);`,
	},
}

// SchemaVersion is the user_version of a fully migrated replica.
var SchemaVersion = len(migrations)

func migrate(ctx context.Context, conn *sql.DB) error {
	var version int
	if err := conn.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("replica schema version %d is newer than supported version %d", version, len(migrations))
	}

	for v := version; v < len(migrations); v++ {
		if err := applyMigration(ctx, conn, v+1, migrations[v]); err != nil {
			return fmt.Errorf("failed to migrate replica to version %d: %w", v+1, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, conn *sql.DB, version int, statements []string) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, version)); err != nil {
		return err
	}
	return tx.Commit()
}
