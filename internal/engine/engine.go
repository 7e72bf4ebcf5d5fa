// Package engine enforces the message lifecycle state machine over the
// store: enqueue validation, lease acquisition, completion, explicit failure,
// and visibility-timeout reconciliation. The engine owns no state beyond its
// handles; every method is reentrant and safe under concurrent invocation.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hq/internal/logging"
	"hq/internal/observability"
	"hq/internal/queue"
	"hq/internal/store"

	"github.com/google/uuid"
)

// Engine is the policy layer between the HTTP adapter and the store.
type Engine struct {
	store   *store.Store
	logger  logging.Logger
	metrics *observability.MetricsCollector
}

// New constructs an engine over store. Logger and metrics may be nil.
func New(s *store.Store, logger logging.Logger, metrics *observability.MetricsCollector) *Engine {
	return &Engine{
		store:   s,
		logger:  logging.OrNop(logger),
		metrics: metrics,
	}
}

// validateQueueSettings enforces the numeric bounds shared by create and
// update: both attempt budget and lease duration must be at least 1.
func validateQueueSettings(maxAttempts, visibilityTimeoutSeconds *int64) error {
	if maxAttempts != nil && *maxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1: %w", queue.ErrValidation)
	}
	if visibilityTimeoutSeconds != nil && *visibilityTimeoutSeconds < 1 {
		return fmt.Errorf("visibility_timeout_seconds must be >= 1: %w", queue.ErrValidation)
	}
	return nil
}

// CreateQueue creates a queue definition. Duplicate names surface
// queue.ErrConflict; out-of-range settings surface queue.ErrValidation.
func (e *Engine) CreateQueue(ctx context.Context, name string, maxAttempts, visibilityTimeoutSeconds int64) error {
	if name == "" {
		return fmt.Errorf("queue name is required: %w", queue.ErrValidation)
	}
	if err := validateQueueSettings(&maxAttempts, &visibilityTimeoutSeconds); err != nil {
		return err
	}

	err := e.store.CreateQueue(ctx, name, maxAttempts, visibilityTimeoutSeconds)
	if errors.Is(err, store.ErrDuplicateName) {
		return fmt.Errorf("queue name must be unique: %w", queue.ErrConflict)
	}
	if err != nil {
		return err
	}

	e.logger.Info("queue created: name=%s max_attempts=%d visibility_timeout=%ds",
		name, maxAttempts, visibilityTimeoutSeconds)
	return nil
}

// GetQueue returns the queue definition, or nil when no such queue exists.
func (e *Engine) GetQueue(ctx context.Context, name string) (*queue.Queue, error) {
	return e.store.GetQueue(ctx, name)
}

// ListQueues returns all queue definitions ordered by name.
func (e *Engine) ListQueues(ctx context.Context) ([]queue.Queue, error) {
	return e.store.ListQueues(ctx)
}

// UpdateQueue applies the patch to an existing queue. Present fields are
// validated with the same bounds as create; an empty patch is a no-op.
func (e *Engine) UpdateQueue(ctx context.Context, name string, patch queue.QueuePatch) error {
	if err := validateQueueSettings(patch.MaxAttempts, patch.VisibilityTimeoutSeconds); err != nil {
		return err
	}
	if patch.IsZero() {
		return nil
	}

	err := e.store.UpdateQueue(ctx, name, patch)
	if errors.Is(err, store.ErrDuplicateName) {
		return fmt.Errorf("queue name must be unique: %w", queue.ErrConflict)
	}
	return err
}

// DeleteQueue removes the queue and all of its messages.
func (e *Engine) DeleteQueue(ctx context.Context, name string) error {
	if err := e.store.DeleteQueue(ctx, name); err != nil {
		return err
	}
	e.logger.Info("queue deleted: name=%s", name)
	return nil
}

// Enqueue validates that body is well-formed JSON and inserts a ready
// message. The payload is otherwise uninterpreted. Malformed JSON surfaces
// queue.ErrBadInput; a missing queue surfaces queue.ErrNotFound.
func (e *Engine) Enqueue(ctx context.Context, queueName string, body []byte) (uuid.UUID, error) {
	if !json.Valid(body) {
		return uuid.Nil, fmt.Errorf("enqueue payload must be well-formed JSON: %w", queue.ErrBadInput)
	}

	id, err := e.store.Enqueue(ctx, queueName, body)
	if errors.Is(err, store.ErrQueueNotFound) {
		return uuid.Nil, fmt.Errorf("queue %q does not exist: %w", queueName, queue.ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, err
	}

	e.metrics.RecordEnqueue(ctx, queueName)
	return id, nil
}

// Receive leases the oldest eligible ready message from the queue, or
// returns nil when none is available. A nonexistent queue also yields nil;
// consumers polling a queue that has not been created yet see an empty queue,
// not an error.
func (e *Engine) Receive(ctx context.Context, queueName string) (*queue.Message, error) {
	msg, err := e.store.Receive(ctx, queueName)
	if err != nil || msg == nil {
		return msg, err
	}
	e.metrics.RecordReceive(ctx, queueName)
	return msg, nil
}

// Complete moves a leased message to the terminal completed state. Complete
// on a message that is not leased, already completed, or already failed is a
// silent no-op: terminal states are absorbing and the operation idempotent.
func (e *Engine) Complete(ctx context.Context, messageID uuid.UUID) error {
	applied, err := e.store.Complete(ctx, messageID)
	if err != nil {
		return err
	}
	if applied {
		e.metrics.RecordComplete(ctx)
	}
	return nil
}

// Fail moves a leased message to the terminal failed state. Same idempotency
// rules as Complete.
func (e *Engine) Fail(ctx context.Context, messageID uuid.UUID) error {
	applied, err := e.store.Fail(ctx, messageID)
	if err != nil {
		return err
	}
	if applied {
		e.metrics.RecordFail(ctx)
	}
	return nil
}

// SweepExpiredLeases reconciles expired leases: messages with attempts
// remaining return to ready, exhausted ones are retired to failed.
func (e *Engine) SweepExpiredLeases(ctx context.Context) (store.SweepResult, error) {
	return e.store.SweepExpiredLeases(ctx)
}

// SampleRecent returns the most recently touched messages for the dashboard.
func (e *Engine) SampleRecent(ctx context.Context, limit int) ([]queue.MessageView, error) {
	if limit <= 0 {
		limit = 10
	}
	return e.store.SampleRecent(ctx, limit)
}

// Ping reports whether the store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}
