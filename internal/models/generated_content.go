package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Generated content kinds stored per module.
const (
	ContentTypeSummary  = "summary"
	ContentTypeMindmap  = "mindmap"
	ContentTypeAcronyms = "acronyms"
)

// GeneratedContent stores one piece of LLM-generated study material for a module.
type GeneratedContent struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	CourseID    string         `gorm:"size:64;not null;index" json:"course_id"`
	UserID      string         `gorm:"size:64;not null;index" json:"user_id"`
	ModuleName  string         `gorm:"size:255;not null" json:"module_name"`
	ContentType string         `gorm:"size:32;not null" json:"content_type"`
	Content     datatypes.JSON `gorm:"not null" json:"content"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName keeps the singular table name.
func (GeneratedContent) TableName() string {
	return "generated_content"
}

// BeforeCreate assigns a UUID primary key.
func (g *GeneratedContent) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
