// Package persistence keeps a journal of bridge calls in SQLite.
// Only metadata is stored: backend, sizes, outcome and timing. Prompt and
// reply text never reach the database.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// OutcomeOK marks a call that returned a reply. Failed calls carry their
// error kind (e.g. "timeout") as outcome instead.
const OutcomeOK = "ok"

// Call is one journal entry.
type Call struct {
	ID          string
	Backend     string
	Stateful    bool
	PromptChars int
	ReplyChars  int
	Outcome     string
	Error       string
	Duration    time.Duration
	CreatedAt   time.Time
}

// Stats summarizes the journal.
type Stats struct {
	Total       int
	Succeeded   int
	Failed      int
	ByOutcome   map[string]int
	AvgDuration time.Duration
}

// Store defines the journal interface.
type Store interface {
	SaveCall(ctx context.Context, call Call) error
	ListCalls(ctx context.Context, limit int) ([]Call, error)
	Stats(ctx context.Context) (Stats, error)

	// Lifecycle
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the journal at dbPath.
// Creates parent directories if needed. Enables WAL mode and busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)
	return open(ctx, connStr)
}

// NewMemoryStore creates an in-memory journal for testing.
// Each store gets its own named database, shared across its connections.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("file:journal-%s?mode=memory&cache=shared", uuid.NewString())
	return open(ctx, connStr)
}

func open(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The CLI and the chat panel may write concurrently from one process.
	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
