// Package api exposes the HTTP surface: entity CRUD, message intake, and
// operational endpoints.
package api

import (
	"github.com/google/uuid"

	"contextd/internal/model"
)

// ProblemDetail is an RFC 7807 Problem Detail error body.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance"`
}

// CreateProjectRequest is the body for POST /api/v1/projects.
type CreateProjectRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Configs     map[string]any `json:"configs"`
}

// CreateSpaceRequest is the body for POST /api/v1/projects/:id/spaces.
type CreateSpaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateSessionRequest is the body for POST /api/v1/spaces/:id/sessions.
type CreateSessionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreatePageRequest is the body for POST /api/v1/spaces/:id/pages. ParentID
// nests the page under another page; nil puts it at the space root.
type CreatePageRequest struct {
	Title    string         `json:"title"`
	Props    map[string]any `json:"props"`
	ParentID *uuid.UUID     `json:"parent_id"`
}

// CreateBlockRequest is the body for POST /api/v1/blocks/:id/children.
type CreateBlockRequest struct {
	Title string         `json:"title"`
	Props map[string]any `json:"props"`
}

// UpdateBlockRequest is the body for PATCH /api/v1/blocks/:id. Nil fields
// leave the stored value untouched.
type UpdateBlockRequest struct {
	Title *string        `json:"title"`
	Props map[string]any `json:"props"`
}

// MoveBlockRequest is the body for PUT /api/v1/blocks/:id/move. Nil Sort
// appends to the new sibling group.
type MoveBlockRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
	Sort     *int64     `json:"sort"`
}

// SetBlockSortRequest is the body for PUT /api/v1/blocks/:id/sort.
type SetBlockSortRequest struct {
	Sort int64 `json:"sort"`
}

// ArchiveBlockRequest is the body for PUT /api/v1/blocks/:id/archive.
type ArchiveBlockRequest struct {
	Archived bool `json:"archived"`
}

// BlockListResponse wraps page and block listings.
type BlockListResponse struct {
	Blocks []model.Block `json:"blocks"`
	Total  int           `json:"total"`
}

// AppendMessageRequest is the body for POST /api/v1/sessions/:id/messages.
type AppendMessageRequest struct {
	Role  string       `json:"role"`
	Parts []model.Part `json:"parts"`
}

// MessageAccepted is returned when a message is persisted. Queued reports
// whether a processing trigger was published; when false the message stays
// pending until the next trigger for its session.
type MessageAccepted struct {
	Message *model.Message `json:"message"`
	Queued  bool           `json:"queued"`
	Trigger uuid.UUID      `json:"trigger_id,omitempty"`
}

// ProjectListResponse wraps GET /api/v1/projects.
type ProjectListResponse struct {
	Projects []model.Project `json:"projects"`
	Total    int             `json:"total"`
}

// SpaceListResponse wraps GET /api/v1/projects/:id/spaces.
type SpaceListResponse struct {
	Spaces []model.Space `json:"spaces"`
	Total  int           `json:"total"`
}

// SessionListResponse wraps GET /api/v1/spaces/:id/sessions.
type SessionListResponse struct {
	Sessions []model.Session `json:"sessions"`
	Total    int             `json:"total"`
}

// MessageListResponse wraps GET /api/v1/sessions/:id/messages.
type MessageListResponse struct {
	Messages []model.Message `json:"messages"`
	Total    int             `json:"total"`
}

// ExportedMessagesResponse wraps GET /api/v1/sessions/:id/messages when a
// format query re-encodes the list for a client SDK.
type ExportedMessagesResponse struct {
	Format string `json:"format"`
	Items  any    `json:"items"`
	Total  int    `json:"total"`
}

// AssetUploaded wraps POST /api/v1/assets.
type AssetUploaded struct {
	SHA256 string `json:"sha256"`
	MIME   string `json:"mime"`
	Size   int    `json:"size"`
}

// SignedURLResponse wraps GET /api/v1/assets/:sha256/url.
type SignedURLResponse struct {
	SHA256 string `json:"sha256"`
	MIME   string `json:"mime"`
	URL    string `json:"url"`
}

// HealthDetailResponse is the JSON body for GET /api/v1/health.
type HealthDetailResponse struct {
	Status        string          `json:"status"`
	Collaborators map[string]bool `json:"collaborators"`
	Uptime        string          `json:"uptime"`
}
