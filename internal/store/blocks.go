package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	cerrors "contextd/internal/errors"
	"contextd/internal/model"
)

// CreatePage persists a page node under an existing space. An optional parent
// must itself be a page in the same space. Sort is assigned as the next slot
// in the sibling group.
func (s *Store) CreatePage(ctx context.Context, b *model.Block) error {
	b.Type = model.BlockTypePage
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		if err := spaceExists(tx, b.SpaceID); err != nil {
			return err
		}
		if b.ParentID != nil {
			parent, err := getBlock(tx, *b.ParentID)
			if err != nil {
				return err
			}
			if parent.SpaceID != b.SpaceID {
				return fmt.Errorf("parent %s belongs to a different space: %w", parent.ID, cerrors.ErrInvalidInput)
			}
			if parent.Type != model.BlockTypePage {
				return fmt.Errorf("page parent must be a page: %w", cerrors.ErrInvalidInput)
			}
		}
		sort, err := nextSort(tx, b.SpaceID, b.ParentID)
		if err != nil {
			return err
		}
		b.Sort = sort
		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("create page: %w", err)
		}
		return nil
	})
}

// CreateBlock persists a content node under an existing parent. The parent
// may be a page or another block.
func (s *Store) CreateBlock(ctx context.Context, b *model.Block) error {
	b.Type = model.BlockTypeBlock
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		if b.ParentID == nil {
			return fmt.Errorf("block requires a parent node: %w", cerrors.ErrInvalidInput)
		}
		parent, err := getBlock(tx, *b.ParentID)
		if err != nil {
			return err
		}
		if b.SpaceID == uuid.Nil {
			b.SpaceID = parent.SpaceID
		}
		if parent.SpaceID != b.SpaceID {
			return fmt.Errorf("parent %s belongs to a different space: %w", parent.ID, cerrors.ErrInvalidInput)
		}
		sort, err := nextSort(tx, b.SpaceID, b.ParentID)
		if err != nil {
			return err
		}
		b.Sort = sort
		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("create block: %w", err)
		}
		return nil
	})
}

// GetBlock fetches a page-tree node by ID.
func (s *Store) GetBlock(ctx context.Context, id uuid.UUID) (*model.Block, error) {
	return getBlock(s.db.WithContext(ctx), id)
}

// ListPages returns a space's root pages ordered by sort.
func (s *Store) ListPages(ctx context.Context, spaceID uuid.UUID, includeArchived bool) ([]model.Block, error) {
	q := s.db.WithContext(ctx).
		Where("space_id = ? AND type = ? AND parent_id IS NULL", spaceID, model.BlockTypePage)
	if !includeArchived {
		q = q.Where("is_archived = ?", false)
	}
	var pages []model.Block
	if err := q.Order("sort ASC").Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

// ListBlockChildren returns a node's direct children ordered by sort.
func (s *Store) ListBlockChildren(ctx context.Context, parentID uuid.UUID, includeArchived bool) ([]model.Block, error) {
	if _, err := s.GetBlock(ctx, parentID); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("parent_id = ?", parentID)
	if !includeArchived {
		q = q.Where("is_archived = ?", false)
	}
	var children []model.Block
	if err := q.Order("sort ASC").Find(&children).Error; err != nil {
		return nil, fmt.Errorf("list block children: %w", err)
	}
	return children, nil
}

// UpdateBlock patches a node's title and properties. Nil title or props leave
// the stored value untouched.
func (s *Store) UpdateBlock(ctx context.Context, id uuid.UUID, title *string, props map[string]any) (*model.Block, error) {
	var updated *model.Block
	err := s.WithTx(ctx, func(tx *gorm.DB) error {
		b, err := getBlock(tx, id)
		if err != nil {
			return err
		}
		patch := map[string]any{}
		if title != nil {
			patch["title"] = *title
		}
		if props != nil {
			patch["props"] = datatypes.JSONMap(props)
		}
		if len(patch) > 0 {
			if err := tx.Model(b).Updates(patch).Error; err != nil {
				return fmt.Errorf("update block: %w", err)
			}
		}
		updated, err = getBlock(tx, id)
		return err
	})
	return updated, err
}

// MoveBlock reparents a node. A nil targetSort appends to the new sibling
// group; otherwise siblings at or past the slot shift up to make room. Pages
// may move to the space root (nil parent), blocks cannot.
func (s *Store) MoveBlock(ctx context.Context, id uuid.UUID, newParentID *uuid.UUID, targetSort *int64) error {
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		b, err := getBlock(tx, id)
		if err != nil {
			return err
		}
		if newParentID == nil && b.Type == model.BlockTypeBlock {
			return fmt.Errorf("block %s requires a parent node: %w", id, cerrors.ErrInvalidInput)
		}
		if newParentID != nil {
			parent, err := getBlock(tx, *newParentID)
			if err != nil {
				return err
			}
			if parent.SpaceID != b.SpaceID {
				return fmt.Errorf("parent %s belongs to a different space: %w", parent.ID, cerrors.ErrInvalidInput)
			}
			if b.Type == model.BlockTypePage && parent.Type != model.BlockTypePage {
				return fmt.Errorf("page parent must be a page: %w", cerrors.ErrInvalidInput)
			}
			if err := ensureNoCycle(tx, b.ID, parent); err != nil {
				return err
			}
		}

		var sort int64
		if targetSort == nil {
			sort, err = nextSort(tx, b.SpaceID, newParentID)
			if err != nil {
				return err
			}
		} else {
			sort = *targetSort
			err := siblingScope(tx, b.SpaceID, newParentID).
				Where("sort >= ? AND id <> ?", sort, b.ID).
				Update("sort", gorm.Expr("sort + 1")).Error
			if err != nil {
				return fmt.Errorf("shift siblings: %w", err)
			}
		}

		err = tx.Model(&model.Block{}).Where("id = ?", b.ID).
			Updates(map[string]any{"parent_id": newParentID, "sort": sort}).Error
		if err != nil {
			return fmt.Errorf("move block: %w", err)
		}
		return nil
	})
}

// SetBlockSort moves a node to a new slot within its current sibling group,
// shifting the siblings in between.
func (s *Store) SetBlockSort(ctx context.Context, id uuid.UUID, sort int64) error {
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		b, err := getBlock(tx, id)
		if err != nil {
			return err
		}
		if sort == b.Sort {
			return nil
		}
		scope := siblingScope(tx, b.SpaceID, b.ParentID).Where("id <> ?", b.ID)
		if sort > b.Sort {
			err = scope.Where("sort > ? AND sort <= ?", b.Sort, sort).
				Update("sort", gorm.Expr("sort - 1")).Error
		} else {
			err = scope.Where("sort >= ? AND sort < ?", sort, b.Sort).
				Update("sort", gorm.Expr("sort + 1")).Error
		}
		if err != nil {
			return fmt.Errorf("shift siblings: %w", err)
		}
		if err := tx.Model(&model.Block{}).Where("id = ?", b.ID).Update("sort", sort).Error; err != nil {
			return fmt.Errorf("set block sort: %w", err)
		}
		return nil
	})
}

// SetBlockArchived flags a node and its whole subtree.
func (s *Store) SetBlockArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := getBlock(tx, id); err != nil {
			return err
		}
		ids, err := subtreeIDs(tx, id)
		if err != nil {
			return err
		}
		err = tx.Model(&model.Block{}).Where("id IN (?)", ids).
			Update("is_archived", archived).Error
		if err != nil {
			return fmt.Errorf("archive block: %w", err)
		}
		return nil
	})
}

// DeleteBlock removes a node and its whole subtree.
func (s *Store) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := getBlock(tx, id); err != nil {
			return err
		}
		ids, err := subtreeIDs(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Where("id IN (?)", ids).Delete(&model.Block{}).Error; err != nil {
			return fmt.Errorf("delete block: %w", err)
		}
		return nil
	})
}

func getBlock(tx *gorm.DB, id uuid.UUID) (*model.Block, error) {
	var b model.Block
	err := tx.First(&b, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("block %s: %w", id, cerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get block: %w", err)
	}
	return &b, nil
}

func spaceExists(tx *gorm.DB, id uuid.UUID) error {
	var n int64
	if err := tx.Model(&model.Space{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("check space: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("space %s: %w", id, cerrors.ErrNotFound)
	}
	return nil
}

// siblingScope scopes a query to one sort group: nodes sharing a space and
// parent (or the space root when parentID is nil).
func siblingScope(tx *gorm.DB, spaceID uuid.UUID, parentID *uuid.UUID) *gorm.DB {
	q := tx.Model(&model.Block{}).Where("space_id = ?", spaceID)
	if parentID == nil {
		return q.Where("parent_id IS NULL")
	}
	return q.Where("parent_id = ?", *parentID)
}

func nextSort(tx *gorm.DB, spaceID uuid.UUID, parentID *uuid.UUID) (int64, error) {
	var next int64
	err := siblingScope(tx, spaceID, parentID).
		Select("COALESCE(MAX(sort) + 1, 0)").Scan(&next).Error
	if err != nil {
		return 0, fmt.Errorf("next sort: %w", err)
	}
	return next, nil
}

// subtreeIDs walks the tree breadth-first from root; sqlite gets no recursive
// cascade from the ORM, so deletion and archival expand the subtree here.
func subtreeIDs(tx *gorm.DB, root uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{root}
	frontier := []uuid.UUID{root}
	for len(frontier) > 0 {
		var children []uuid.UUID
		err := tx.Model(&model.Block{}).Where("parent_id IN (?)", frontier).
			Pluck("id", &children).Error
		if err != nil {
			return nil, fmt.Errorf("walk subtree: %w", err)
		}
		ids = append(ids, children...)
		frontier = children
	}
	return ids, nil
}

// ensureNoCycle rejects moving a node under its own subtree by walking from
// the candidate parent up to the root.
func ensureNoCycle(tx *gorm.DB, id uuid.UUID, parent *model.Block) error {
	for {
		if parent.ID == id {
			return fmt.Errorf("cannot move a node under its own subtree: %w", cerrors.ErrInvalidInput)
		}
		if parent.ParentID == nil {
			return nil
		}
		next, err := getBlock(tx, *parent.ParentID)
		if err != nil {
			return err
		}
		parent = next
	}
}
