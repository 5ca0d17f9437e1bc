package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	cerrors "contextd/internal/errors"
	"contextd/internal/model"
	"contextd/internal/result"
)

// AppendMessage persists a message as pending, assigning the next per-session
// sequence number inside one transaction.
func (s *Store) AppendMessage(ctx context.Context, sessionID uuid.UUID, role string, parts []model.Part) (*model.Message, error) {
	msg := &model.Message{
		SessionID: sessionID,
		Role:      role,
		Parts:     parts,
		Status:    model.TaskPending,
	}

	err := s.WithTx(ctx, func(tx *gorm.DB) error {
		var sess model.Session
		if err := tx.First(&sess, "id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("session %s: %w", sessionID, cerrors.ErrNotFound)
			}
			return fmt.Errorf("lookup session: %w", err)
		}

		var maxSeq int64
		if err := tx.Model(&model.Message{}).
			Where("session_id = ?", sessionID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return fmt.Errorf("next message seq: %w", err)
		}
		msg.Seq = maxSeq + 1

		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// PendingMessages fetches a session's messages awaiting processing, in
// creation order. No pending messages is a success with an empty slice, not a
// rejection; only storage faults reject.
func (s *Store) PendingMessages(tx *gorm.DB, sessionID uuid.UUID) result.Result[[]model.Message] {
	var msgs []model.Message
	err := tx.
		Where("session_id = ? AND status = ?", sessionID, model.TaskPending).
		Order("seq ASC").
		Find(&msgs).Error
	if err != nil {
		return result.Reject[[]model.Message](fmt.Sprintf("fetch pending messages for session %s: %v", sessionID, err))
	}
	return result.Resolve(msgs)
}

// ClaimRunning transitions the given messages from pending to running.
// It must be called on the same transaction that fetched the IDs, so the
// read-then-mark pair is one atomic unit; calling it outside a transaction is
// a programming error. Returns the number of rows actually claimed — messages
// already claimed by a concurrent pass are skipped, which keeps claimed sets
// disjoint across processors.
func (s *Store) ClaimRunning(tx *gorm.DB, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := tx.Model(&model.Message{}).
		Where("id IN ? AND status = ?", ids, model.TaskPending).
		Update("status", model.TaskRunning)
	if res.Error != nil {
		return 0, fmt.Errorf("claim messages: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MarkTerminal sets a running message to completed or failed. Re-marking a
// message that already reached a terminal state is a no-op, so dispatch
// outcomes can be applied idempotently. A terminal state other than
// completed/failed, or a message still pending, is rejected.
func (s *Store) MarkTerminal(ctx context.Context, id uuid.UUID, status model.TaskStatus, errMsg string) error {
	if !status.Terminal() {
		return fmt.Errorf("status %q is not terminal: %w", status, cerrors.ErrInvalidInput)
	}

	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND status = ?", id, model.TaskRunning).
		Updates(map[string]any{"status": status, "error": errMsg})
	if res.Error != nil {
		return fmt.Errorf("mark message %s %s: %w", id, status, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var cur model.Message
	err := s.db.WithContext(ctx).Select("status").First(&cur, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("message %s: %w", id, cerrors.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check message %s: %w", id, err)
	}
	if cur.Status.Terminal() {
		return nil
	}
	return fmt.Errorf("message %s is %s, not running: %w", id, cur.Status, cerrors.ErrInvalidInput)
}

// ListMessages returns a session's messages in creation order, optionally
// filtered by status.
func (s *Store) ListMessages(ctx context.Context, sessionID uuid.UUID, status model.TaskStatus) ([]model.Message, error) {
	q := s.db.WithContext(ctx).Where("session_id = ?", sessionID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var msgs []model.Message
	if err := q.Order("seq ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// GetMessage fetches one message by ID.
func (s *Store) GetMessage(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	var msg model.Message
	err := s.db.WithContext(ctx).First(&msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("message %s: %w", id, cerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &msg, nil
}

// FindAsset looks up a stored file part by blob hash and returns its asset
// metadata. Used by the signed-URL endpoint.
func (s *Store) FindAsset(ctx context.Context, sha256 string) (*model.Asset, error) {
	var msgs []model.Message
	// Parts are a JSON column; sqlite LIKE keeps this a single scan without a
	// JSON1 dependency. The match is verified against the decoded parts.
	pattern := "%" + sha256 + "%"
	if err := s.db.WithContext(ctx).Where("parts LIKE ?", pattern).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("scan assets: %w", err)
	}
	for _, m := range msgs {
		for _, p := range m.Parts {
			if p.Asset != nil && p.Asset.SHA256 == sha256 {
				a := *p.Asset
				return &a, nil
			}
		}
	}
	return nil, fmt.Errorf("asset %s: %w", sha256, cerrors.ErrNotFound)
}
