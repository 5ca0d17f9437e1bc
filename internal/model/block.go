package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Block node kinds. Pages are documents, blocks are the content nodes
// nested under them.
const (
	BlockTypePage  = "page"
	BlockTypeBlock = "block"
)

// Block is one node of a space's page tree. Pages may nest under other pages
// or sit at the space root; blocks always have a parent. Siblings order by
// Sort within their parent group. Archived nodes stay in the tree but are
// hidden from default listings.
type Block struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SpaceID uuid.UUID `gorm:"type:uuid;not null;index:idx_blocks_space;index:idx_blocks_space_type,priority:1" json:"space_id"`
	Space   *Space    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"space,omitempty"`

	Type string `gorm:"type:text;not null;check:type IN ('page','block');index:idx_blocks_space_type,priority:2" json:"type"`

	ParentID *uuid.UUID `gorm:"type:uuid;index:idx_blocks_parent" json:"parent_id"`

	Title string            `gorm:"type:text;not null;default:''" json:"title"`
	Props datatypes.JSONMap `gorm:"not null;default:'{}'" json:"props"`

	Sort       int64 `gorm:"not null;default:0" json:"sort"`
	IsArchived bool  `gorm:"not null;default:false" json:"is_archived"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Block) TableName() string { return "blocks" }

func (b *Block) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
