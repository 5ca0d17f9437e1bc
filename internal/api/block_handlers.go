package api

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"contextd/internal/model"
)

// CreatePage handles POST /api/v1/spaces/:id/pages.
func (h *Handlers) CreatePage(c *fiber.Ctx) error {
	spaceID, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var req CreatePageRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	b := &model.Block{
		SpaceID:  spaceID,
		Type:     model.BlockTypePage,
		ParentID: req.ParentID,
		Title:    req.Title,
		Props:    datatypes.JSONMap(req.Props),
	}
	if err := model.ValidateBlock(b); err != nil {
		return storeError(c, err)
	}
	if err := h.store.CreatePage(c.Context(), b); err != nil {
		return storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

// ListPages handles GET /api/v1/spaces/:id/pages. Root pages only; archived
// ones are included with ?archived=true.
func (h *Handlers) ListPages(c *fiber.Ctx) error {
	spaceID, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	pages, err := h.store.ListPages(c.Context(), spaceID, c.QueryBool("archived"))
	if err != nil {
		return storeError(c, err)
	}
	if pages == nil {
		pages = []model.Block{}
	}
	return c.JSON(BlockListResponse{Blocks: pages, Total: len(pages)})
}

// GetBlock handles GET /api/v1/blocks/:id.
func (h *Handlers) GetBlock(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	b, err := h.store.GetBlock(c.Context(), id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(b)
}

// CreateChildBlock handles POST /api/v1/blocks/:id/children. The new block
// inherits the parent's space.
func (h *Handlers) CreateChildBlock(c *fiber.Ctx) error {
	parentID, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var req CreateBlockRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	parent, err := h.store.GetBlock(c.Context(), parentID)
	if err != nil {
		return storeError(c, err)
	}

	b := &model.Block{
		SpaceID:  parent.SpaceID,
		Type:     model.BlockTypeBlock,
		ParentID: &parentID,
		Title:    req.Title,
		Props:    datatypes.JSONMap(req.Props),
	}
	if err := model.ValidateBlock(b); err != nil {
		return storeError(c, err)
	}
	if err := h.store.CreateBlock(c.Context(), b); err != nil {
		return storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

// ListBlockChildren handles GET /api/v1/blocks/:id/children.
func (h *Handlers) ListBlockChildren(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	children, err := h.store.ListBlockChildren(c.Context(), id, c.QueryBool("archived"))
	if err != nil {
		return storeError(c, err)
	}
	if children == nil {
		children = []model.Block{}
	}
	return c.JSON(BlockListResponse{Blocks: children, Total: len(children)})
}

// UpdateBlock handles PATCH /api/v1/blocks/:id.
func (h *Handlers) UpdateBlock(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var req UpdateBlockRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	b, err := h.store.UpdateBlock(c.Context(), id, req.Title, req.Props)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(b)
}

// MoveBlock handles PUT /api/v1/blocks/:id/move.
func (h *Handlers) MoveBlock(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var req MoveBlockRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if err := h.store.MoveBlock(c.Context(), id, req.ParentID, req.Sort); err != nil {
		return storeError(c, err)
	}
	b, err := h.store.GetBlock(c.Context(), id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(b)
}

// SetBlockSort handles PUT /api/v1/blocks/:id/sort.
func (h *Handlers) SetBlockSort(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var req SetBlockSortRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if err := h.store.SetBlockSort(c.Context(), id, req.Sort); err != nil {
		return storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetBlockArchived handles PUT /api/v1/blocks/:id/archive. Applies to the
// node and its whole subtree.
func (h *Handlers) SetBlockArchived(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var req ArchiveBlockRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if err := h.store.SetBlockArchived(c.Context(), id, req.Archived); err != nil {
		return storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteBlock handles DELETE /api/v1/blocks/:id. Deletion removes the whole
// subtree.
func (h *Handlers) DeleteBlock(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	if err := h.store.DeleteBlock(c.Context(), id); err != nil {
		return storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
