package api

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"contextd/internal/model"
)

// CreateProject handles POST /api/v1/projects.
func (h *Handlers) CreateProject(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	p := &model.Project{
		Name:        req.Name,
		Description: req.Description,
		Configs:     datatypes.JSONMap(req.Configs),
	}
	if err := model.ValidateProject(p); err != nil {
		return storeError(c, err)
	}
	if err := h.store.CreateProject(c.Context(), p); err != nil {
		return storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// ListProjects handles GET /api/v1/projects.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	projects, err := h.store.ListProjects(c.Context())
	if err != nil {
		return storeError(c, err)
	}
	if projects == nil {
		projects = []model.Project{}
	}
	return c.JSON(ProjectListResponse{Projects: projects, Total: len(projects)})
}

// GetProject handles GET /api/v1/projects/:id.
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	p, err := h.store.GetProject(c.Context(), id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(p)
}

// DeleteProject handles DELETE /api/v1/projects/:id. Deletion cascades to
// spaces, sessions, and messages.
func (h *Handlers) DeleteProject(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	if err := h.store.DeleteProject(c.Context(), id); err != nil {
		return storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateSpace handles POST /api/v1/projects/:id/spaces.
func (h *Handlers) CreateSpace(c *fiber.Ctx) error {
	projectID, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var req CreateSpaceRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	sp := &model.Space{
		ProjectID:   projectID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := model.ValidateSpace(sp); err != nil {
		return storeError(c, err)
	}
	if err := h.store.CreateSpace(c.Context(), sp); err != nil {
		return storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sp)
}

// ListSpaces handles GET /api/v1/projects/:id/spaces.
func (h *Handlers) ListSpaces(c *fiber.Ctx) error {
	projectID, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	spaces, err := h.store.ListSpaces(c.Context(), projectID)
	if err != nil {
		return storeError(c, err)
	}
	if spaces == nil {
		spaces = []model.Space{}
	}
	return c.JSON(SpaceListResponse{Spaces: spaces, Total: len(spaces)})
}

// GetSpace handles GET /api/v1/spaces/:id.
func (h *Handlers) GetSpace(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	sp, err := h.store.GetSpace(c.Context(), id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(sp)
}

// DeleteSpace handles DELETE /api/v1/spaces/:id.
func (h *Handlers) DeleteSpace(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	if err := h.store.DeleteSpace(c.Context(), id); err != nil {
		return storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateSession handles POST /api/v1/spaces/:id/sessions.
func (h *Handlers) CreateSession(c *fiber.Ctx) error {
	spaceID, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}

	var req CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	sess := &model.Session{
		SpaceID:     spaceID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := model.ValidateSession(sess); err != nil {
		return storeError(c, err)
	}
	if err := h.store.CreateSession(c.Context(), sess); err != nil {
		return storeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sess)
}

// ListSessions handles GET /api/v1/spaces/:id/sessions.
func (h *Handlers) ListSessions(c *fiber.Ctx) error {
	spaceID, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	sessions, err := h.store.ListSessions(c.Context(), spaceID)
	if err != nil {
		return storeError(c, err)
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return c.JSON(SessionListResponse{Sessions: sessions, Total: len(sessions)})
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *Handlers) GetSession(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	sess, err := h.store.GetSession(c.Context(), id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(sess)
}

// DeleteSession handles DELETE /api/v1/sessions/:id.
func (h *Handlers) DeleteSession(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	if err := h.store.DeleteSession(c.Context(), id); err != nil {
		return storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
