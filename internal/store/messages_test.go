package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	cerrors "contextd/internal/errors"
	"contextd/internal/model"
)

func appendText(t *testing.T, s *Store, sessionID uuid.UUID, text string) *model.Message {
	t.Helper()
	msg, err := s.AppendMessage(context.Background(), sessionID, "user",
		[]model.Part{{Type: model.PartText, Text: text}})
	require.NoError(t, err)
	return msg
}

func TestAppendMessage_AssignsSeqAndPending(t *testing.T) {
	s := newTestStore(t)
	sessionID := seedSession(t, s)

	first := appendText(t, s, sessionID, "one")
	second := appendText(t, s, sessionID, "two")

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, model.TaskPending, first.Status)
}

func TestAppendMessage_UnknownSession(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AppendMessage(context.Background(), uuid.New(), "user",
		[]model.Part{{Type: model.PartText, Text: "hi"}})
	assert.ErrorIs(t, err, cerrors.ErrNotFound)
}

func TestPendingMessages_EmptyIsSuccess(t *testing.T) {
	s := newTestStore(t)
	sessionID := seedSession(t, s)

	err := s.WithTx(context.Background(), func(tx *gorm.DB) error {
		msgs, errs := s.PendingMessages(tx, sessionID).Unpack()
		assert.Empty(t, errs)
		assert.Empty(t, msgs)
		return nil
	})
	require.NoError(t, err)
}

func TestPendingMessages_OrderedBySeq(t *testing.T) {
	s := newTestStore(t)
	sessionID := seedSession(t, s)
	appendText(t, s, sessionID, "first")
	appendText(t, s, sessionID, "second")
	appendText(t, s, sessionID, "third")

	err := s.WithTx(context.Background(), func(tx *gorm.DB) error {
		msgs, errs := s.PendingMessages(tx, sessionID).Unpack()
		require.Empty(t, errs)
		require.Len(t, msgs, 3)
		assert.Equal(t, "first", msgs[0].Parts[0].Text)
		assert.Equal(t, "third", msgs[2].Parts[0].Text)
		return nil
	})
	require.NoError(t, err)
}

func TestPendingMessages_ScopedToSession(t *testing.T) {
	s := newTestStore(t)
	a := seedSession(t, s)
	b := seedSession(t, s)
	appendText(t, s, a, "for a")

	err := s.WithTx(context.Background(), func(tx *gorm.DB) error {
		msgs, errs := s.PendingMessages(tx, b).Unpack()
		assert.Empty(t, errs)
		assert.Empty(t, msgs)
		return nil
	})
	require.NoError(t, err)
}

func TestClaimRunning_TransitionsStatus(t *testing.T) {
	s := newTestStore(t)
	sessionID := seedSession(t, s)
	msg := appendText(t, s, sessionID, "hi")

	err := s.WithTx(context.Background(), func(tx *gorm.DB) error {
		claimed, err := s.ClaimRunning(tx, []uuid.UUID{msg.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), claimed)
		return nil
	})
	require.NoError(t, err)

	got, err := s.GetMessage(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskRunning, got.Status)
}

func TestClaimRunning_SecondPassClaimsNothing(t *testing.T) {
	s := newTestStore(t)
	sessionID := seedSession(t, s)
	appendText(t, s, sessionID, "hi")
	ctx := context.Background()

	claimOnce := func() []uuid.UUID {
		var claimed []uuid.UUID
		err := s.WithTx(ctx, func(tx *gorm.DB) error {
			msgs, errs := s.PendingMessages(tx, sessionID).Unpack()
			require.Empty(t, errs)
			for _, m := range msgs {
				n, err := s.ClaimRunning(tx, []uuid.UUID{m.ID})
				if err != nil {
					return err
				}
				if n == 1 {
					claimed = append(claimed, m.ID)
				}
			}
			return nil
		})
		require.NoError(t, err)
		return claimed
	}

	first := claimOnce()
	second := claimOnce()
	assert.Len(t, first, 1)
	assert.Empty(t, second)
}

func TestClaimRunning_ConcurrentClaimsAreDisjoint(t *testing.T) {
	s := newTestStore(t)
	sessionID := seedSession(t, s)
	const total = 8
	for i := 0; i < total; i++ {
		appendText(t, s, sessionID, "m")
	}

	// Each claimer retries its transaction until it commits; sqlite may abort
	// one of two overlapping write transactions.
	claim := func() map[uuid.UUID]bool {
		for {
			claimed := make(map[uuid.UUID]bool)
			err := s.WithTx(context.Background(), func(tx *gorm.DB) error {
				msgs, errs := s.PendingMessages(tx, sessionID).Unpack()
				if len(errs) > 0 {
					return cerrors.ErrUnavailable
				}
				for _, m := range msgs {
					n, err := s.ClaimRunning(tx, []uuid.UUID{m.ID})
					if err != nil {
						return err
					}
					if n == 1 {
						claimed[m.ID] = true
					}
				}
				return nil
			})
			if err == nil {
				return claimed
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	var wg sync.WaitGroup
	results := make([]map[uuid.UUID]bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = claim()
		}(i)
	}
	wg.Wait()

	for id := range results[0] {
		assert.False(t, results[1][id], "message %s claimed by both passes", id)
	}
	assert.Equal(t, total, len(results[0])+len(results[1]))
}

func TestMarkTerminal(t *testing.T) {
	s := newTestStore(t)
	sessionID := seedSession(t, s)
	msg := appendText(t, s, sessionID, "hi")
	ctx := context.Background()

	// Pending messages cannot jump straight to a terminal state.
	err := s.MarkTerminal(ctx, msg.ID, model.TaskCompleted, "")
	assert.ErrorIs(t, err, cerrors.ErrInvalidInput)

	require.NoError(t, s.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.ClaimRunning(tx, []uuid.UUID{msg.ID})
		return err
	}))

	require.NoError(t, s.MarkTerminal(ctx, msg.ID, model.TaskCompleted, ""))
	got, err := s.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, got.Status)

	// Terminal transitions are idempotent and never regress.
	require.NoError(t, s.MarkTerminal(ctx, msg.ID, model.TaskFailed, "late failure"))
	got, err = s.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, got.Status)
}

func TestMarkTerminal_Validation(t *testing.T) {
	s := newTestStore(t)
	err := s.MarkTerminal(context.Background(), uuid.New(), model.TaskRunning, "")
	assert.ErrorIs(t, err, cerrors.ErrInvalidInput)

	err = s.MarkTerminal(context.Background(), uuid.New(), model.TaskFailed, "x")
	assert.ErrorIs(t, err, cerrors.ErrNotFound)
}

func TestListMessages_StatusFilter(t *testing.T) {
	s := newTestStore(t)
	sessionID := seedSession(t, s)
	msg := appendText(t, s, sessionID, "hi")
	appendText(t, s, sessionID, "still pending")

	require.NoError(t, s.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := s.ClaimRunning(tx, []uuid.UUID{msg.ID})
		return err
	}))

	pending, err := s.ListMessages(context.Background(), sessionID, model.TaskPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := s.ListMessages(context.Background(), sessionID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFindAsset(t *testing.T) {
	s := newTestStore(t)
	sessionID := seedSession(t, s)

	parts := []model.Part{{
		Type:     "image",
		Filename: "a.png",
		Asset:    &model.Asset{SHA256: "abc123", MIME: "image/png"},
	}}
	_, err := s.AppendMessage(context.Background(), sessionID, "user", parts)
	require.NoError(t, err)

	asset, err := s.FindAsset(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "image/png", asset.MIME)

	_, err = s.FindAsset(context.Background(), "missing")
	assert.ErrorIs(t, err, cerrors.ErrNotFound)
}
