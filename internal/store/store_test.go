package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hq/internal/logging"
	"hq/internal/queue"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(MemoryPath, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("", logging.Nop())
	require.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestCreateAndGetQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateQueue(ctx, "q", 5, 30))

	q, err := s.GetQueue(ctx, "q")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "q", q.Name)
	assert.Equal(t, int64(5), q.MaxAttempts)
	assert.Equal(t, int64(30), q.VisibilityTimeoutSeconds)
	assert.NotEmpty(t, q.InsertedAt)
	assert.NotEmpty(t, q.UpdatedAt)
}

func TestGetQueueMissing(t *testing.T) {
	s := newTestStore(t)

	q, err := s.GetQueue(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestCreateQueueDuplicateName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateQueue(ctx, "q", 5, 30))
	err := s.CreateQueue(ctx, "q", 5, 30)
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestListQueuesOrderedByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateQueue(ctx, "zeta", 1, 1))
	require.NoError(t, s.CreateQueue(ctx, "alpha", 1, 1))
	require.NoError(t, s.CreateQueue(ctx, "mid", 1, 1))

	queues, err := s.ListQueues(ctx)
	require.NoError(t, err)
	require.Len(t, queues, 3)
	assert.Equal(t, "alpha", queues[0].Name)
	assert.Equal(t, "mid", queues[1].Name)
	assert.Equal(t, "zeta", queues[2].Name)
}

func TestListQueuesEmpty(t *testing.T) {
	s := newTestStore(t)

	queues, err := s.ListQueues(context.Background())
	require.NoError(t, err)
	assert.Empty(t, queues)
}

func TestUpdateQueuePartialPatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateQueue(ctx, "q", 5, 30))

	// Patch max_attempts only; the lease duration must survive.
	require.NoError(t, s.UpdateQueue(ctx, "q", queue.QueuePatch{MaxAttempts: int64Ptr(6)}))
	q, err := s.GetQueue(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(6), q.MaxAttempts)
	assert.Equal(t, int64(30), q.VisibilityTimeoutSeconds)

	// Patch the lease duration only.
	require.NoError(t, s.UpdateQueue(ctx, "q", queue.QueuePatch{VisibilityTimeoutSeconds: int64Ptr(10)}))
	q, err = s.GetQueue(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(6), q.MaxAttempts)
	assert.Equal(t, int64(10), q.VisibilityTimeoutSeconds)

	// An empty patch changes nothing.
	require.NoError(t, s.UpdateQueue(ctx, "q", queue.QueuePatch{}))
	q, err = s.GetQueue(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(6), q.MaxAttempts)
	assert.Equal(t, int64(10), q.VisibilityTimeoutSeconds)
}

func TestUpdateQueueMissingIsSilent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpdateQueue(context.Background(), "nope", queue.QueuePatch{MaxAttempts: int64Ptr(3)}))
}

func TestDeleteQueueCascadesToMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateQueue(ctx, "q", 5, 30))
	for i := 0; i < 3; i++ {
		_, err := s.Enqueue(ctx, "q", []byte(`{"n":1}`))
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteQueue(ctx, "q"))

	queues, err := s.ListQueues(ctx)
	require.NoError(t, err)
	assert.Empty(t, queues)

	views, err := s.SampleRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, views, "messages must cascade with their queue")

	// Recreating the queue starts from a clean slate.
	require.NoError(t, s.CreateQueue(ctx, "q", 5, 30))
	msg, err := s.Receive(ctx, "q")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestDeleteQueueMissingIsSilent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.DeleteQueue(context.Background(), "nope"))
}
