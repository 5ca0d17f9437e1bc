package queue

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "contextd/internal/errors"
)

func newTestQueue(size int) *Queue {
	return New(size, zerolog.Nop())
}

func TestPublishAndReceive(t *testing.T) {
	q := newTestQueue(4)
	sessionID := uuid.New()

	trig, err := q.Publish(context.Background(), sessionID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, trig.ID)
	assert.Equal(t, sessionID, trig.SessionID)
	assert.False(t, trig.EnqueuedAt.IsZero())

	got := <-q.Receive()
	assert.Equal(t, trig.ID, got.ID)
}

func TestPublishQueueFull(t *testing.T) {
	q := newTestQueue(2)
	ctx := context.Background()

	_, err := q.Publish(ctx, uuid.New())
	require.NoError(t, err)
	_, err = q.Publish(ctx, uuid.New())
	require.NoError(t, err)

	_, err = q.Publish(ctx, uuid.New())
	assert.ErrorIs(t, err, cerrors.ErrQueueFull)
	assert.Equal(t, 2, q.Len())
}

func TestPublishAfterClose(t *testing.T) {
	q := newTestQueue(4)
	q.Close()

	_, err := q.Publish(context.Background(), uuid.New())
	assert.ErrorIs(t, err, cerrors.ErrQueueClosed)
}

func TestCloseDrainsBuffered(t *testing.T) {
	q := newTestQueue(4)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := q.Publish(ctx, uuid.New())
		require.NoError(t, err)
	}
	q.Close()

	var drained int
	for range q.Receive() {
		drained++
	}
	assert.Equal(t, 3, drained)
}

func TestCloseIdempotent(t *testing.T) {
	q := newTestQueue(1)
	q.Close()
	q.Close() // must not panic
}

func TestHealthCheck(t *testing.T) {
	q := newTestQueue(1)
	assert.True(t, q.HealthCheck(context.Background()))
	q.Close()
	assert.False(t, q.HealthCheck(context.Background()))
}

func TestPublishCancelledContext(t *testing.T) {
	q := newTestQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Publish(ctx, uuid.New())
	assert.ErrorIs(t, err, context.Canceled)
}
