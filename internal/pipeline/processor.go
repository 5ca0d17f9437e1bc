// Package pipeline drains pending session messages: claim, render, dispatch,
// and settle each message in a terminal state.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"contextd/internal/dispatch"
	"contextd/internal/metrics"
	"contextd/internal/model"
	"contextd/internal/render"
	"contextd/internal/store"
)

// SessionProcessor runs one drain pass over a session's pending messages.
type SessionProcessor struct {
	store      *store.Store
	dispatcher dispatch.Dispatcher
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewSessionProcessor wires the processor to its collaborators.
func NewSessionProcessor(st *store.Store, d dispatch.Dispatcher, m *metrics.Metrics, logger zerolog.Logger) *SessionProcessor {
	return &SessionProcessor{
		store:      st,
		dispatcher: d,
		metrics:    m,
		logger:     logger.With().Str("component", "processor").Logger(),
	}
}

// Process claims the session's pending messages and settles each one.
// The claim happens inside a single transaction so concurrent passes over the
// same session claim disjoint sets. Rendering and dispatch happen outside the
// transaction; each claimed message ends completed or failed regardless of
// how its siblings fare. Returns the number of messages claimed.
func (p *SessionProcessor) Process(ctx context.Context, sessionID uuid.UUID) (int, error) {
	start := time.Now()
	p.metrics.InFlightSessions.Inc()
	defer func() {
		p.metrics.InFlightSessions.Dec()
		p.metrics.ProcessDuration.Observe(time.Since(start).Seconds())
	}()

	var claimed []model.MessageSnapshot
	err := p.store.WithTx(ctx, func(tx *gorm.DB) error {
		pending, errs := p.store.PendingMessages(tx, sessionID).Unpack()
		if len(errs) > 0 {
			return fmt.Errorf("fetch pending: %s", strings.Join(errs, "; "))
		}
		if len(pending) == 0 {
			return nil
		}

		// Claim one message at a time so the claimed set holds exactly the
		// rows this pass owns; rows taken by a concurrent pass are skipped.
		claimed = make([]model.MessageSnapshot, 0, len(pending))
		for i := range pending {
			n, err := p.store.ClaimRunning(tx, []uuid.UUID{pending[i].ID})
			if err != nil {
				return err
			}
			if n == 0 {
				continue
			}
			claimed = append(claimed, pending[i].Snapshot())
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("claiming session %s: %w", sessionID, err)
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	for _, msg := range claimed {
		p.settle(ctx, msg)
	}
	return len(claimed), nil
}

// settle renders and dispatches one claimed message, then records its
// terminal state. Failures mark the message failed with the cause; they do
// not propagate, so one bad message cannot wedge the session.
func (p *SessionProcessor) settle(ctx context.Context, msg model.MessageSnapshot) {
	transcript := render.Transcript(msg.Role, msg.Parts)

	err := p.dispatcher.Dispatch(ctx, dispatch.Delivery{
		MessageID:  msg.ID,
		SessionID:  msg.SessionID,
		Role:       msg.Role,
		Transcript: transcript,
	})
	if err != nil {
		p.metrics.DispatchFailures.Inc()
		p.fail(ctx, msg.ID, err)
		return
	}

	if err := p.store.MarkTerminal(ctx, msg.ID, model.TaskCompleted, ""); err != nil {
		p.logger.Error().Err(err).
			Str("message_id", msg.ID.String()).
			Msg("failed to mark message completed")
		return
	}
	p.metrics.MessagesTotal.WithLabelValues(string(model.TaskCompleted)).Inc()
}

func (p *SessionProcessor) fail(ctx context.Context, id uuid.UUID, cause error) {
	p.logger.Warn().Err(cause).
		Str("message_id", id.String()).
		Msg("message processing failed")
	if err := p.store.MarkTerminal(ctx, id, model.TaskFailed, cause.Error()); err != nil {
		p.logger.Error().Err(err).
			Str("message_id", id.String()).
			Msg("failed to mark message failed")
		return
	}
	p.metrics.MessagesTotal.WithLabelValues(string(model.TaskFailed)).Inc()
}
