// Package queue provides the in-process trigger queue that connects the API
// surface to the session consumer.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	cerrors "contextd/internal/errors"
)

// Trigger asks the consumer to drain pending messages for one session.
type Trigger struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	EnqueuedAt time.Time
}

// Queue is a bounded in-process trigger broker. Publishing never blocks:
// when the buffer is full the trigger is rejected and the caller decides
// what to do with the pending messages left behind.
type Queue struct {
	triggers chan Trigger
	logger   zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a queue with the given buffer size.
func New(size int, logger zerolog.Logger) *Queue {
	if size <= 0 {
		size = 1024
	}
	return &Queue{
		triggers: make(chan Trigger, size),
		logger:   logger.With().Str("component", "queue").Logger(),
	}
}

// Publish enqueues a processing trigger for a session.
// Returns ErrQueueFull when the buffer is full and ErrQueueClosed after Close.
func (q *Queue) Publish(ctx context.Context, sessionID uuid.UUID) (Trigger, error) {
	trig := Trigger{
		ID:         uuid.New(),
		SessionID:  sessionID,
		EnqueuedAt: time.Now().UTC(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return Trigger{}, cerrors.ErrQueueClosed
	}

	if err := ctx.Err(); err != nil {
		return Trigger{}, err
	}

	select {
	case q.triggers <- trig:
		q.logger.Debug().
			Str("trigger_id", trig.ID.String()).
			Str("session_id", sessionID.String()).
			Msg("trigger published")
		return trig, nil
	default:
		q.logger.Warn().Str("session_id", sessionID.String()).Msg("trigger queue full")
		return Trigger{}, cerrors.ErrQueueFull
	}
}

// Receive returns the channel consumers read triggers from. The channel is
// closed by Close once the buffer drains, so plain range loops terminate.
func (q *Queue) Receive() <-chan Trigger {
	return q.triggers
}

// Len reports the number of buffered triggers.
func (q *Queue) Len() int {
	return len(q.triggers)
}

// HealthCheck reports whether the queue is accepting triggers.
func (q *Queue) HealthCheck(ctx context.Context) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.closed
}

// Close stops intake. Buffered triggers remain readable until drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.triggers)
	q.logger.Info().Msg("queue closed")
}
