package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"contextd/internal/health"
	"contextd/internal/queue"
	"contextd/internal/store"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	store     *store.Store
	queue     *queue.Queue
	checker   *health.Checker
	blobs     BlobStore
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st *store.Store, q *queue.Queue, checker *health.Checker, blobs BlobStore, logger zerolog.Logger) *Handlers {
	return &Handlers{
		store:     st,
		queue:     q,
		checker:   checker,
		blobs:     blobs,
		logger:    logger.With().Str("component", "handlers").Logger(),
		startTime: time.Now(),
	}
}

// Liveness handles GET /health. Plain text so probes and humans read the
// same thing: "ok", or the first failing collaborator.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/plain; charset=utf-8")
	_, failed := h.checker.FirstFailure(c.Context())
	if failed != "" {
		return c.Status(fiber.StatusServiceUnavailable).SendString(failed + " client error")
	}
	return c.SendString("ok")
}

// HealthDetail handles GET /api/v1/health.
func (h *Handlers) HealthDetail(c *fiber.Ctx) error {
	results, failed := h.checker.FirstFailure(c.Context())

	status := "ok"
	if failed != "" {
		status = "degraded"
	}

	return c.JSON(HealthDetailResponse{
		Status:        status,
		Collaborators: results,
		Uptime:        time.Since(h.startTime).Round(time.Second).String(),
	})
}

// pathID parses the :id path parameter as a UUID.
func pathID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func invalidID(c *fiber.Ctx) error {
	return problemResponse(c, fiber.StatusBadRequest,
		"invalid_id", "Bad Request",
		"Path parameter must be a valid UUID")
}
