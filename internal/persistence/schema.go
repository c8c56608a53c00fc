package persistence

import (
	"context"
)

// initSchema creates the journal table if it doesn't exist.
// created_at and duration_ms are integer milliseconds.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS calls (
		id TEXT PRIMARY KEY,
		backend TEXT NOT NULL,
		stateful INTEGER NOT NULL,
		prompt_chars INTEGER NOT NULL,
		reply_chars INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calls_created_at ON calls(created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
