package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resource material categories.
const (
	ResourceTypeSyllabus = "syllabus"
	ResourceTypeTextbook = "textbook"
	ResourceTypePYQ      = "pyq"
	ResourceTypeNotes    = "notes"
)

// ResourceMaterial is a course document uploaded by a student.
type ResourceMaterial struct {
	ID               string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CourseID         string    `gorm:"size:64;not null;index" json:"course_id"`
	UserID           string    `gorm:"size:64;not null;index" json:"user_id"`
	FileName         string    `gorm:"size:255;not null" json:"file_name"`
	FilePath         string    `gorm:"size:512;not null" json:"file_path"`
	FileSize         *int64    `json:"file_size"`
	ResourceType     string    `gorm:"size:32;not null;index" json:"resource_type"`
	ProcessingStatus string    `gorm:"size:32" json:"processing_status"`
	CreatedAt        time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key.
func (r *ResourceMaterial) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
