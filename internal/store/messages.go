package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hq/internal/queue"

	"github.com/google/uuid"
)

// Enqueue inserts a ready message into the named queue and returns its id.
// The queue lookup and the insert run in one immediate transaction so a
// concurrent queue delete cannot orphan the message.
func (s *Store) Enqueue(ctx context.Context, queueName string, body []byte) (uuid.UUID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue to %q: begin: %w", queueName, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var queueID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM hq_queues WHERE name = ?`, queueName).Scan(&queueID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("enqueue to %q: %w", queueName, ErrQueueNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue to %q: resolve queue: %w", queueName, err)
	}

	messageID := uuid.New()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO hq_messages (id, args, queue_id) VALUES (?, ?, ?)`,
		messageID.String(), string(body), queueID,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue to %q: insert: %w", queueName, err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue to %q: commit: %w", queueName, err)
	}
	return messageID, nil
}

// Receive atomically selects and leases the oldest eligible ready message in
// the queue. Eligible means no lease, not terminal, and attempts below the
// queue's budget. The selection and the lock are one UPDATE statement, which
// is what guarantees at most one concurrent lease per message even under
// racing receivers. Returns nil when no message is eligible, including when
// the queue itself does not exist.
//
// Ordering is by updated_at ascending: a message whose lease expired was
// touched by the sweeper, so redeliveries naturally move to the back of the
// queue instead of starving fresh messages.
func (s *Store) Receive(ctx context.Context, queueName string) (*queue.Message, error) {
	const query = `
UPDATE hq_messages
SET
    attempts = attempts + 1,
    locked_at = ` + sqliteNow + `,
    updated_at = ` + sqliteNow + `
WHERE id = (
    SELECT m.id
    FROM hq_messages m
    INNER JOIN hq_queues q
        ON q.id = m.queue_id
        AND q.name = ?
    WHERE m.completed_at IS NULL
      AND m.failed_at IS NULL
      AND m.locked_at IS NULL
      AND m.attempts < q.max_attempts
    ORDER BY m.updated_at ASC, m.id ASC
    LIMIT 1
)
RETURNING id, args, attempts`

	var (
		rawID string
		args  string
		msg   queue.Message
	)
	err := s.db.QueryRowContext(ctx, query, queueName).Scan(&rawID, &args, &msg.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("receive from %q: %w", queueName, err)
	}

	if msg.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("receive from %q: corrupt id %q: %w", queueName, rawID, err)
	}
	msg.Args = []byte(args)
	msg.Queue = queueName
	return &msg, nil
}

// Complete transitions a leased message to the terminal completed state.
// Messages that are not currently leased are left untouched; callers treat
// the operation as idempotent. Returns whether a row transitioned.
func (s *Store) Complete(ctx context.Context, messageID uuid.UUID) (bool, error) {
	const query = `
UPDATE hq_messages
SET
    completed_at = ` + sqliteNow + `,
    locked_at = NULL
WHERE id = ?
  AND locked_at IS NOT NULL
  AND completed_at IS NULL
  AND failed_at IS NULL`

	result, err := s.db.ExecContext(ctx, query, messageID.String())
	if err != nil {
		return false, fmt.Errorf("complete message %s: %w", messageID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete message %s: %w", messageID, err)
	}
	return affected > 0, nil
}

// Fail transitions a leased message to the terminal failed state. Symmetric
// to Complete, including the silent no-op on non-leased rows.
func (s *Store) Fail(ctx context.Context, messageID uuid.UUID) (bool, error) {
	const query = `
UPDATE hq_messages
SET
    failed_at = ` + sqliteNow + `,
    locked_at = NULL
WHERE id = ?
  AND locked_at IS NOT NULL
  AND completed_at IS NULL
  AND failed_at IS NULL`

	result, err := s.db.ExecContext(ctx, query, messageID.String())
	if err != nil {
		return false, fmt.Errorf("fail message %s: %w", messageID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("fail message %s: %w", messageID, err)
	}
	return affected > 0, nil
}

// SampleRecent returns the limit most recently touched messages joined with
// their queue name, newest first. Read-only dashboard projection.
func (s *Store) SampleRecent(ctx context.Context, limit int) ([]queue.MessageView, error) {
	const query = `
SELECT
    m.id,
    q.name,
    m.args,
    m.attempts,
    m.inserted_at,
    m.updated_at,
    COALESCE(m.locked_at, ''),
    COALESCE(m.completed_at, ''),
    COALESCE(m.failed_at, '')
FROM hq_messages m
INNER JOIN hq_queues q ON q.id = m.queue_id
ORDER BY m.updated_at DESC, m.inserted_at DESC, m.id ASC
LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sample recent messages: %w", err)
	}
	defer rows.Close()

	views := []queue.MessageView{}
	for rows.Next() {
		var (
			v     queue.MessageView
			rawID string
		)
		if err := rows.Scan(&rawID, &v.Queue, &v.Args, &v.Attempts,
			&v.InsertedAt, &v.UpdatedAt, &v.LockedAt, &v.CompletedAt, &v.FailedAt); err != nil {
			return nil, fmt.Errorf("sample recent messages: %w", err)
		}
		if v.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("sample recent messages: corrupt id %q: %w", rawID, err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}
