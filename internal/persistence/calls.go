package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultListLimit is used by ListCalls when limit <= 0.
const DefaultListLimit = 20

// SaveCall stores one journal entry. Saving the same ID twice replaces it.
func (s *SQLiteStore) SaveCall(ctx context.Context, call Call) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now()
	}

	var errText sql.NullString
	if call.Error != "" {
		errText = sql.NullString{String: call.Error, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (id, backend, stateful, prompt_chars, reply_chars, outcome, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			backend = excluded.backend,
			stateful = excluded.stateful,
			prompt_chars = excluded.prompt_chars,
			reply_chars = excluded.reply_chars,
			outcome = excluded.outcome,
			error = excluded.error,
			duration_ms = excluded.duration_ms,
			created_at = excluded.created_at
	`, call.ID, call.Backend, boolToInt(call.Stateful), call.PromptChars, call.ReplyChars,
		call.Outcome, errText, call.Duration.Milliseconds(), call.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save call %s: %w", call.ID, err)
	}
	return nil
}

// ListCalls returns the most recent calls, newest first.
func (s *SQLiteStore) ListCalls(ctx context.Context, limit int) ([]Call, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, backend, stateful, prompt_chars, reply_chars, outcome, error, duration_ms, created_at
		FROM calls
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query calls: %w", err)
	}
	defer rows.Close()

	var calls []Call
	for rows.Next() {
		var (
			c          Call
			stateful   int
			errText    sql.NullString
			durationMS int64
			createdMS  int64
		)
		if err := rows.Scan(&c.ID, &c.Backend, &stateful, &c.PromptChars, &c.ReplyChars,
			&c.Outcome, &errText, &durationMS, &createdMS); err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		c.Stateful = stateful != 0
		c.Error = errText.String
		c.Duration = time.Duration(durationMS) * time.Millisecond
		c.CreatedAt = time.UnixMilli(createdMS)
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calls: %w", err)
	}
	return calls, nil
}

// Stats aggregates the whole journal.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	st := Stats{ByOutcome: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM calls GROUP BY outcome`)
	if err != nil {
		return st, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return st, fmt.Errorf("failed to scan stats: %w", err)
		}
		st.ByOutcome[outcome] = n
		st.Total += n
		if outcome == OutcomeOK {
			st.Succeeded += n
		} else {
			st.Failed += n
		}
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("failed to iterate stats: %w", err)
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `SELECT AVG(duration_ms) FROM calls`).Scan(&avg); err != nil {
		return st, fmt.Errorf("failed to query average duration: %w", err)
	}
	if avg.Valid {
		st.AvgDuration = time.Duration(avg.Float64 * float64(time.Millisecond))
	}
	return st, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
