// Package queue holds the domain types of the message queue: queue
// definitions, messages, and the four-state message lifecycle.
package queue

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Queue is a named stream of messages with an attempt budget and a lease
// duration. Name is the external handle; ID never leaves the store layer.
type Queue struct {
	ID                       uuid.UUID `json:"-"`
	Name                     string    `json:"name"`
	MaxAttempts              int64     `json:"max_attempts"`
	VisibilityTimeoutSeconds int64     `json:"visibility_timeout_seconds"`
	InsertedAt               string    `json:"inserted_at"`
	UpdatedAt                string    `json:"updated_at"`
}

// QueuePatch carries the optional fields of a queue update. Nil fields are
// left untouched; a patch with no fields set is a no-op.
type QueuePatch struct {
	MaxAttempts              *int64
	VisibilityTimeoutSeconds *int64
}

// IsZero reports whether the patch carries no fields.
func (p QueuePatch) IsZero() bool {
	return p.MaxAttempts == nil && p.VisibilityTimeoutSeconds == nil
}

// Message is a leased delivery as returned by receive. Attempts reflects the
// count after the lease was granted, so the first delivery reports 1.
type Message struct {
	ID       uuid.UUID       `json:"id"`
	Args     json.RawMessage `json:"args"`
	Queue    string          `json:"queue"`
	Attempts int64           `json:"attempts"`
}

// MessageView is the flat dashboard projection of a message joined with its
// queue name. Timestamps are the store's UTC text representation; lifecycle
// timestamps are empty strings while unset.
type MessageView struct {
	ID          uuid.UUID `json:"id"`
	Queue       string    `json:"queue"`
	Args        string    `json:"args"`
	Attempts    int64     `json:"attempts"`
	InsertedAt  string    `json:"inserted_at"`
	UpdatedAt   string    `json:"updated_at"`
	LockedAt    string    `json:"locked_at"`
	CompletedAt string    `json:"completed_at"`
	FailedAt    string    `json:"failed_at"`
}

// State is the derived lifecycle state of a message.
type State string

const (
	// StateReady means the message is eligible for delivery.
	StateReady State = "ready"
	// StateLeased means a consumer holds the message under a visibility timeout.
	StateLeased State = "leased"
	// StateCompleted is the terminal success state.
	StateCompleted State = "completed"
	// StateFailed is the terminal failure state.
	StateFailed State = "failed"
)

// StateOf derives the lifecycle state from the three nullable timestamps.
func (v MessageView) StateOf() State {
	switch {
	case v.CompletedAt != "":
		return StateCompleted
	case v.FailedAt != "":
		return StateFailed
	case v.LockedAt != "":
		return StateLeased
	default:
		return StateReady
	}
}
