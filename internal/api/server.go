package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	cerrors "contextd/internal/errors"
	"contextd/internal/health"
	"contextd/internal/metrics"
	"contextd/internal/model"
	"contextd/internal/queue"
	"contextd/internal/requestid"
	"contextd/internal/store"
)

// BlobStore is the blob backend surface the API needs: content-addressed
// uploads and signed download URLs. Nil when blob storage is not configured.
type BlobStore interface {
	Upload(ctx context.Context, sha256, mime string, r io.Reader) error
	SignedDownloadURL(sha256 string) (string, error)
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	ListenAddr string
	APIKey     string // empty disables auth
}

// Server is the contextd Fiber application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	logger   zerolog.Logger
	config   ServerConfig
}

// NewServer creates and configures the HTTP server.
func NewServer(
	cfg ServerConfig,
	st *store.Store,
	q *queue.Queue,
	checker *health.Checker,
	m *metrics.Metrics,
	blobs BlobStore,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	handlers := NewHandlers(st, q, checker, blobs, logger)

	s := &Server{
		app:      app,
		handlers: handlers,
		logger:   logger.With().Str("component", "api_server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg, logger)
	s.setupRoutes(handlers, m)

	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, logger zerolog.Logger) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Correlation ID: honor the client's X-Request-ID, mint one otherwise.
	s.app.Use(func(c *fiber.Ctx) error {
		reqID := requestid.Ensure(c.Get(requestid.Header))
		c.SetUserContext(requestid.WithRequestID(c.UserContext(), reqID))
		c.Set(requestid.Header, reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.APIKey != "" {
		s.app.Use(newAuthMiddleware(cfg.APIKey, logger))
	}

	// Request logging, probes excluded
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/health" || path == "/metrics" {
			return c.Next()
		}
		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Str("request_id", requestid.FromContext(c.UserContext())).
			Msg("api request")
		return c.Next()
	})
}

func (s *Server) setupRoutes(h *Handlers, m *metrics.Metrics) {
	s.app.Get("/health", h.Liveness)
	if m != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	v1 := s.app.Group("/api/v1")

	v1.Get("/health", h.HealthDetail)

	v1.Post("/projects", h.CreateProject)
	v1.Get("/projects", h.ListProjects)
	v1.Get("/projects/:id", h.GetProject)
	v1.Delete("/projects/:id", h.DeleteProject)
	v1.Post("/projects/:id/spaces", h.CreateSpace)
	v1.Get("/projects/:id/spaces", h.ListSpaces)

	v1.Get("/spaces/:id", h.GetSpace)
	v1.Delete("/spaces/:id", h.DeleteSpace)
	v1.Post("/spaces/:id/sessions", h.CreateSession)
	v1.Get("/spaces/:id/sessions", h.ListSessions)
	v1.Post("/spaces/:id/pages", h.CreatePage)
	v1.Get("/spaces/:id/pages", h.ListPages)

	v1.Get("/blocks/:id", h.GetBlock)
	v1.Patch("/blocks/:id", h.UpdateBlock)
	v1.Delete("/blocks/:id", h.DeleteBlock)
	v1.Post("/blocks/:id/children", h.CreateChildBlock)
	v1.Get("/blocks/:id/children", h.ListBlockChildren)
	v1.Put("/blocks/:id/move", h.MoveBlock)
	v1.Put("/blocks/:id/sort", h.SetBlockSort)
	v1.Put("/blocks/:id/archive", h.SetBlockArchived)

	v1.Get("/sessions/:id", h.GetSession)
	v1.Delete("/sessions/:id", h.DeleteSession)
	v1.Post("/sessions/:id/messages", h.AppendMessage)
	v1.Get("/sessions/:id/messages", h.ListMessages)

	v1.Get("/messages/:id", h.GetMessage)
	v1.Post("/assets", h.UploadAsset)
	v1.Get("/assets/:sha256/url", h.SignedAssetURL)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8029"
	}
	s.logger.Info().Str("addr", addr).Msg("api server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("api server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// newAuthMiddleware enforces a Bearer API key on everything except probes.
func newAuthMiddleware(apiKey string, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/health" || path == "/metrics" {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return problemResponse(c, fiber.StatusUnauthorized,
				"missing_auth", "Unauthorized",
				"Authorization header must use Bearer scheme")
		}
		if strings.TrimPrefix(authHeader, "Bearer ") != apiKey {
			logger.Warn().
				Str("path", path).
				Str("method", c.Method()).
				Msg("unauthorized request: invalid API key")
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_api_key", "Unauthorized",
				"Invalid API key")
		}
		return c.Next()
	}
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

// storeError maps storage and validation failures onto problem responses.
func storeError(c *fiber.Ctx, err error) error {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		return problemResponse(c, fiber.StatusBadRequest,
			"validation_failed", "Bad Request", ve.Error())
	case errors.Is(err, cerrors.ErrNotFound):
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", err.Error())
	case errors.Is(err, cerrors.ErrInvalidInput):
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", err.Error())
	default:
		return problemResponse(c, fiber.StatusInternalServerError,
			"storage_error", "Internal Server Error", err.Error())
	}
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		detail := err.Error()
		if code == fiber.StatusInternalServerError {
			detail = "An internal error occurred"
		}

		return c.Status(code).JSON(ProblemDetail{
			Type:     "internal_error",
			Title:    "Internal Server Error",
			Status:   code,
			Detail:   detail,
			Instance: c.Path(),
		})
	}
}
