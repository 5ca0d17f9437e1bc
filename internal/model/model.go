// Package model defines the canonical entity definitions for the containment
// hierarchy (project → space → session → message). These are the only
// definitions of each entity; validation lives in validate.go and is applied
// before persistence rather than being duplicated on a second schema.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TaskStatus is the processing lifecycle of a message.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Part kinds rendered as text lines. Anything else is treated as a
// file-like attachment.
const (
	PartText       = "text"
	PartToolCall   = "tool-call"
	PartToolResult = "tool-result"
	PartFile       = "file"
)

// Asset points at an object in the blob store, addressed by content hash.
type Asset struct {
	SHA256 string `json:"sha256"`
	MIME   string `json:"mime"`
}

// Part is one typed fragment of a message's content. Parts are value objects
// owned by their message and stored as a JSON array on the message row, so
// slice order is the part order.
type Part struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	Filename string         `json:"filename,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
	Asset    *Asset         `json:"asset,omitempty"`
}

// Project is the top-level entity.
type Project struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string            `gorm:"type:text;not null" json:"name"`
	Description string            `gorm:"type:text;not null;default:''" json:"description"`
	Configs     datatypes.JSONMap `gorm:"not null;default:'{}'" json:"configs"`

	Spaces []Space `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"spaces,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// BeforeCreate assigns the UUID primary key; sqlite has no server-side
// uuid generation.
func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Space belongs to a project and is cascade-deleted with it.
type Space struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index:idx_spaces_project" json:"project_id"`
	Project   *Project  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"project,omitempty"`

	Name        string `gorm:"type:text;not null" json:"name"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`

	Sessions []Session `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"sessions,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Space) TableName() string { return "spaces" }

func (s *Space) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Session belongs to a space and owns the messages processed by the pipeline.
type Session struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SpaceID uuid.UUID `gorm:"type:uuid;not null;index:idx_sessions_space" json:"space_id"`
	Space   *Space    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"space,omitempty"`

	Name        string `gorm:"type:text;not null" json:"name"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`

	Messages []Message `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"messages,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Session) TableName() string { return "sessions" }

func (s *Session) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Message belongs to a session. Seq is a per-session monotonically increasing
// sequence assigned at insert time; pending fetches order by it so renders are
// deterministic across repeated runs.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_session;index:idx_messages_session_status,priority:1;uniqueIndex:ux_messages_session_seq,priority:1" json:"session_id"`
	Session   *Session  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"session,omitempty"`

	Role   string                    `gorm:"type:text;not null" json:"role"`
	Parts  datatypes.JSONSlice[Part] `gorm:"not null" json:"parts"`
	Status TaskStatus                `gorm:"type:text;not null;default:'pending';check:status IN ('pending','running','completed','failed');index:idx_messages_session_status,priority:2" json:"status"`
	Seq    int64                     `gorm:"not null;uniqueIndex:ux_messages_session_seq,priority:2" json:"seq"`
	Error  string                    `gorm:"type:text;not null;default:''" json:"error,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MessageSnapshot is the immutable copy of a claimed message, materialized
// before the claiming transaction closes. Everything the renderer and
// dispatcher need lives here; the ORM row is never touched after commit.
type MessageSnapshot struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Role      string
	Parts     []Part
}

// Snapshot extracts an immutable snapshot from a fetched message.
func (m *Message) Snapshot() MessageSnapshot {
	parts := make([]Part, len(m.Parts))
	copy(parts, m.Parts)
	return MessageSnapshot{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      m.Role,
		Parts:     parts,
	}
}
