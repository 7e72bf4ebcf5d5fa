// Package store implements durable persistence for queues and messages on a
// WAL-mode SQLite database. Every lifecycle transition is a single
// transactional statement or an immediate-mode transaction, so the at-most-one
// lease invariant holds without any process-level locking.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hq/internal/logging"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MemoryPath selects an in-memory database instead of a file.
const MemoryPath = ":memory:"

// Errors surfaced by the store. The engine wraps them into the domain
// error taxonomy.
var (
	// ErrDuplicateName reports a unique-constraint violation on a queue name.
	ErrDuplicateName = errors.New("queue name already exists")

	// ErrQueueNotFound reports an operation addressing a missing queue row.
	ErrQueueNotFound = errors.New("queue not found")
)

// sqliteNow is the UTC millisecond timestamp expression used for every
// written timestamp, matching the schema column defaults.
const sqliteNow = "STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW')"

// Store wraps the connection pool. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (or creates) the SQLite database at path and configures it for
// queue workloads: WAL journal, 5s busy timeout, enforced foreign keys, and
// immediate-mode write transactions. Pass MemoryPath for an in-memory
// database; it is limited to a single connection because each SQLite memory
// connection is otherwise a separate database.
func Open(path string, logger logging.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := "file:" + path
	inMemory := path == MemoryPath
	if inMemory {
		dsn = "file::memory:"
	}
	dsn += "?_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}

	if inMemory {
		db.SetMaxOpenConns(1)
	} else {
		// WAL lets readers proceed alongside the single writer; writer-writer
		// conflicts queue up behind the busy timeout.
		db.SetMaxOpenConns(8)
	}

	return &Store{db: db, logger: logging.OrNop(logger)}, nil
}

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate idempotently creates tables, indices, and the updated_at triggers.
func (s *Store) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS hq_queues (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    max_attempts INTEGER NOT NULL,
    visibility_timeout_seconds INTEGER NOT NULL,
    inserted_at TEXT NOT NULL DEFAULT (STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW')),
    updated_at TEXT NOT NULL DEFAULT (STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW'))
);

CREATE UNIQUE INDEX IF NOT EXISTS hq_queues_name_idx ON hq_queues(name);

CREATE TRIGGER IF NOT EXISTS hq_queues_updated_at AFTER UPDATE ON hq_queues
BEGIN
    UPDATE hq_queues SET updated_at = STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW')
    WHERE id = OLD.id;
END;

CREATE TABLE IF NOT EXISTS hq_messages (
    id TEXT PRIMARY KEY,
    args TEXT NOT NULL,
    queue_id TEXT NOT NULL REFERENCES hq_queues(id) ON DELETE CASCADE,
    attempts INTEGER NOT NULL DEFAULT 0,
    inserted_at TEXT NOT NULL DEFAULT (STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW')),
    updated_at TEXT NOT NULL DEFAULT (STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW')),
    locked_at TEXT,
    completed_at TEXT,
    failed_at TEXT
);

CREATE TRIGGER IF NOT EXISTS hq_messages_updated_at AFTER UPDATE ON hq_messages
BEGIN
    UPDATE hq_messages SET updated_at = STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW')
    WHERE id = OLD.id;
END;

CREATE INDEX IF NOT EXISTS hq_messages_queue_id_idx ON hq_messages(queue_id);
CREATE INDEX IF NOT EXISTS hq_messages_inserted_at_idx ON hq_messages(inserted_at);
CREATE INDEX IF NOT EXISTS hq_messages_locked_at_idx ON hq_messages(locked_at);
CREATE INDEX IF NOT EXISTS hq_messages_completed_at_idx ON hq_messages(completed_at);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Ping verifies the pool can reach the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a SQLite unique-constraint error.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
