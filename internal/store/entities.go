package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	cerrors "contextd/internal/errors"
	"contextd/internal/model"
)

// CreateProject persists a new project.
func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetProject fetches a project by ID.
func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var p model.Project
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("project %s: %w", id, cerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns all projects ordered by creation time.
func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// DeleteProject removes a project and cascade-deletes the spaces, sessions,
// messages and page trees it owns, in one transaction.
func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		spaceIDs := tx.Model(&model.Space{}).Select("id").Where("project_id = ?", id)
		sessionIDs := tx.Model(&model.Session{}).Select("id").Where("space_id IN (?)", spaceIDs)
		if err := tx.Where("session_id IN (?)", sessionIDs).Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("delete project messages: %w", err)
		}
		if err := tx.Where("space_id IN (?)", spaceIDs).Delete(&model.Session{}).Error; err != nil {
			return fmt.Errorf("delete project sessions: %w", err)
		}
		if err := tx.Where("space_id IN (?)", spaceIDs).Delete(&model.Block{}).Error; err != nil {
			return fmt.Errorf("delete project blocks: %w", err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.Space{}).Error; err != nil {
			return fmt.Errorf("delete project spaces: %w", err)
		}
		res := tx.Delete(&model.Project{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete project: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("project %s: %w", id, cerrors.ErrNotFound)
		}
		return nil
	})
}

// CreateSpace persists a new space under an existing project.
func (s *Store) CreateSpace(ctx context.Context, sp *model.Space) error {
	if _, err := s.GetProject(ctx, sp.ProjectID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(sp).Error; err != nil {
		return fmt.Errorf("create space: %w", err)
	}
	return nil
}

// GetSpace fetches a space by ID.
func (s *Store) GetSpace(ctx context.Context, id uuid.UUID) (*model.Space, error) {
	var sp model.Space
	err := s.db.WithContext(ctx).First(&sp, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("space %s: %w", id, cerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get space: %w", err)
	}
	return &sp, nil
}

// ListSpaces returns a project's spaces ordered by creation time.
func (s *Store) ListSpaces(ctx context.Context, projectID uuid.UUID) ([]model.Space, error) {
	var spaces []model.Space
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&spaces).Error
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	return spaces, nil
}

// DeleteSpace removes a space and everything under it.
func (s *Store) DeleteSpace(ctx context.Context, id uuid.UUID) error {
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		sessionIDs := tx.Model(&model.Session{}).Select("id").Where("space_id = ?", id)
		if err := tx.Where("session_id IN (?)", sessionIDs).Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("delete space messages: %w", err)
		}
		if err := tx.Where("space_id = ?", id).Delete(&model.Session{}).Error; err != nil {
			return fmt.Errorf("delete space sessions: %w", err)
		}
		if err := tx.Where("space_id = ?", id).Delete(&model.Block{}).Error; err != nil {
			return fmt.Errorf("delete space blocks: %w", err)
		}
		res := tx.Delete(&model.Space{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete space: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("space %s: %w", id, cerrors.ErrNotFound)
		}
		return nil
	})
}

// CreateSession persists a new session under an existing space.
func (s *Store) CreateSession(ctx context.Context, sess *model.Session) error {
	if _, err := s.GetSpace(ctx, sess.SpaceID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession fetches a session by ID.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var sess model.Session
	err := s.db.WithContext(ctx).First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("session %s: %w", id, cerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// ListSessions returns a space's sessions ordered by creation time.
func (s *Store) ListSessions(ctx context.Context, spaceID uuid.UUID) ([]model.Session, error) {
	var sessions []model.Session
	err := s.db.WithContext(ctx).
		Where("space_id = ?", spaceID).
		Order("created_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes a session and its messages.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("delete session messages: %w", err)
		}
		res := tx.Delete(&model.Session{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("session %s: %w", id, cerrors.ErrNotFound)
		}
		return nil
	})
}
