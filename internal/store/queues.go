package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"hq/internal/queue"

	"github.com/google/uuid"
)

// CreateQueue inserts a fresh queue row. Numeric bounds are enforced by the
// engine; the store only guards name uniqueness.
func (s *Store) CreateQueue(ctx context.Context, name string, maxAttempts, visibilityTimeoutSeconds int64) error {
	const query = `
INSERT INTO hq_queues (id, name, max_attempts, visibility_timeout_seconds)
VALUES (?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, uuid.NewString(), name, maxAttempts, visibilityTimeoutSeconds)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create queue %q: %w", name, ErrDuplicateName)
		}
		return fmt.Errorf("create queue %q: %w", name, err)
	}
	return nil
}

// GetQueue returns the queue named name, or nil when it does not exist.
func (s *Store) GetQueue(ctx context.Context, name string) (*queue.Queue, error) {
	const query = `
SELECT id, name, max_attempts, visibility_timeout_seconds, inserted_at, updated_at
FROM hq_queues
WHERE name = ?`

	var (
		q     queue.Queue
		rawID string
	)
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&rawID, &q.Name, &q.MaxAttempts, &q.VisibilityTimeoutSeconds, &q.InsertedAt, &q.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queue %q: %w", name, err)
	}

	q.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("get queue %q: corrupt id %q: %w", name, rawID, err)
	}
	return &q, nil
}

// ListQueues returns all queues ordered by name ascending.
func (s *Store) ListQueues(ctx context.Context) ([]queue.Queue, error) {
	const query = `
SELECT id, name, max_attempts, visibility_timeout_seconds, inserted_at, updated_at
FROM hq_queues
ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	defer rows.Close()

	queues := []queue.Queue{}
	for rows.Next() {
		var (
			q     queue.Queue
			rawID string
		)
		if err := rows.Scan(&rawID, &q.Name, &q.MaxAttempts, &q.VisibilityTimeoutSeconds, &q.InsertedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list queues: %w", err)
		}
		if q.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("list queues: corrupt id %q: %w", rawID, err)
		}
		queues = append(queues, q)
	}
	return queues, rows.Err()
}

// UpdateQueue writes the provided patch fields. An empty patch is a no-op;
// updating a nonexistent queue is silently ignored.
func (s *Store) UpdateQueue(ctx context.Context, name string, patch queue.QueuePatch) error {
	if patch.IsZero() {
		return nil
	}

	assignments := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if patch.MaxAttempts != nil {
		assignments = append(assignments, "max_attempts = ?")
		args = append(args, *patch.MaxAttempts)
	}
	if patch.VisibilityTimeoutSeconds != nil {
		assignments = append(assignments, "visibility_timeout_seconds = ?")
		args = append(args, *patch.VisibilityTimeoutSeconds)
	}
	args = append(args, name)

	query := "UPDATE hq_queues SET " + strings.Join(assignments, ", ") + " WHERE name = ?"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update queue %q: %w", name, ErrDuplicateName)
		}
		return fmt.Errorf("update queue %q: %w", name, err)
	}
	return nil
}

// DeleteQueue removes the queue and, via the referential cascade, every
// message belonging to it. Deleting a nonexistent queue is silently ignored.
func (s *Store) DeleteQueue(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM hq_queues WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete queue %q: %w", name, err)
	}
	return nil
}
