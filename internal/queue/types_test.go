package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateOf(t *testing.T) {
	ts := "2026-01-02 15:04:05.000"

	tests := []struct {
		name string
		view MessageView
		want State
	}{
		{"ready", MessageView{}, StateReady},
		{"leased", MessageView{LockedAt: ts}, StateLeased},
		{"completed", MessageView{LockedAt: ts, CompletedAt: ts}, StateCompleted},
		{"failed", MessageView{FailedAt: ts}, StateFailed},
		{"completed wins over failed", MessageView{CompletedAt: ts, FailedAt: ts}, StateCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.view.StateOf())
		})
	}
}

func TestQueuePatchIsZero(t *testing.T) {
	v := int64(5)

	assert.True(t, QueuePatch{}.IsZero())
	assert.False(t, QueuePatch{MaxAttempts: &v}.IsZero())
	assert.False(t, QueuePatch{VisibilityTimeoutSeconds: &v}.IsZero())
}
