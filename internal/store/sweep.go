package store

import (
	"context"
	"fmt"
)

// SweepResult reports what one sweep pass reclaimed.
type SweepResult struct {
	// Unlocked counts expired leases returned to ready.
	Unlocked int64
	// Retired counts expired leases moved to the terminal failed state
	// because the message exhausted its attempt budget.
	Retired int64
}

// expiredLeases selects leased messages whose visibility timeout has lapsed.
// The comparison runs in floating-point seconds so sub-second precision in
// both the timestamps and the timeout is honored.
const expiredLeases = `
    SELECT m.id
    FROM hq_messages m
    INNER JOIN hq_queues q ON q.id = m.queue_id
    WHERE m.locked_at IS NOT NULL
      AND m.completed_at IS NULL
      AND m.failed_at IS NULL
      AND (JULIANDAY('NOW') - JULIANDAY(m.locked_at)) * 86400.0
          > CAST(q.visibility_timeout_seconds AS REAL)`

// SweepExpiredLeases reconciles every leased message whose lease has expired,
// in one immediate transaction. Messages with attempts remaining return to
// ready; messages at or over their queue's budget are retired to failed.
// The two predicates partition the expired set, so the statement order only
// matters for readability.
func (s *Store) SweepExpiredLeases(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("sweep: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	unlock, err := tx.ExecContext(ctx, `
UPDATE hq_messages
SET locked_at = NULL
WHERE id IN (`+expiredLeases+`
      AND m.attempts < q.max_attempts
)`)
	if err != nil {
		return result, fmt.Errorf("sweep: unlock expired: %w", err)
	}
	if result.Unlocked, err = unlock.RowsAffected(); err != nil {
		return result, fmt.Errorf("sweep: unlock expired: %w", err)
	}

	retire, err := tx.ExecContext(ctx, `
UPDATE hq_messages
SET
    failed_at = `+sqliteNow+`,
    locked_at = NULL
WHERE id IN (`+expiredLeases+`
      AND m.attempts >= q.max_attempts
)`)
	if err != nil {
		return result, fmt.Errorf("sweep: retire exhausted: %w", err)
	}
	if result.Retired, err = retire.RowsAffected(); err != nil {
		return result, fmt.Errorf("sweep: retire exhausted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("sweep: commit: %w", err)
	}

	if result.Unlocked > 0 || result.Retired > 0 {
		s.logger.Debug("sweep reclaimed leases: unlocked=%d retired=%d", result.Unlocked, result.Retired)
	}
	return result, nil
}
