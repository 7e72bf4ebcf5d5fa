package sweeper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hq/internal/engine"
	"hq/internal/logging"
	"hq/internal/store"
)

func newTestEngine(t *testing.T) (*engine.Engine, *store.Store) {
	t.Helper()

	s, err := store.Open(store.MemoryPath, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	return engine.New(s, logging.Nop(), nil), s
}

func TestNewDefaultsTick(t *testing.T) {
	e, _ := newTestEngine(t)

	s := New(e, 0, logging.Nop(), nil)
	assert.Equal(t, DefaultTick, s.tick)

	s = New(e, -time.Second, logging.Nop(), nil)
	assert.Equal(t, DefaultTick, s.tick)

	s = New(e, 5*time.Second, logging.Nop(), nil)
	assert.Equal(t, 5*time.Second, s.tick)
}

func TestRunReturnsNilOnCancel(t *testing.T) {
	e, _ := newTestEngine(t)
	s := New(e, 10*time.Millisecond, logging.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestRunRecoversExpiredLease(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.CreateQueue(ctx, "q", 5, 1))
	_, err := e.Enqueue(ctx, "q", []byte(`{}`))
	require.NoError(t, err)

	msg, err := e.Receive(ctx, "q")
	require.NoError(t, err)
	require.NotNil(t, msg)

	// Backdate the lease past the visibility timeout so the next sweep
	// re-readies the message.
	_, err = st.DB().ExecContext(ctx,
		`UPDATE hq_messages SET locked_at = STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW', ?) WHERE id = ?`,
		fmt.Sprintf("-%d seconds", 10), msg.ID.String())
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- New(e, 10*time.Millisecond, logging.Nop(), nil).Run(runCtx) }()

	require.Eventually(t, func() bool {
		again, err := e.Receive(ctx, "q")
		if err != nil || again == nil {
			return false
		}
		assert.Equal(t, msg.ID, again.ID)
		assert.Equal(t, int64(2), again.Attempts)
		return true
	}, 2*time.Second, 20*time.Millisecond, "message was not redelivered after lease expiry")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestRunReturnsOnClosedStore(t *testing.T) {
	e, st := newTestEngine(t)
	require.NoError(t, st.Close())

	s := New(e, 10*time.Millisecond, logging.Nop(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := s.Run(ctx)
	require.Error(t, err)
	assert.True(t, isFatal(err))
}

func TestSuperviseReturnsOnCancel(t *testing.T) {
	e, _ := newTestEngine(t)
	s := New(e, 10*time.Millisecond, logging.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Supervise(ctx, s)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop after cancel")
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, isFatal(sql.ErrConnDone))
	assert.True(t, isFatal(fmt.Errorf("sweep: %w", sql.ErrConnDone)))
	assert.True(t, isFatal(errors.New("sql: database is closed")))
	assert.False(t, isFatal(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, isFatal(errors.New("context deadline exceeded")))
}
