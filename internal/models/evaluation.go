package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Evaluation captures the scored analysis produced for a submission.
type Evaluation struct {
	ID                     string                      `gorm:"type:varchar(36);primaryKey" json:"id"`
	SubmissionID           string                      `gorm:"type:varchar(36);not null;index" json:"submission_id"`
	UserID                 string                      `gorm:"size:64;not null;index" json:"user_id"`
	TotalScore             float64                     `gorm:"not null;default:0" json:"total_score"`
	MaxScore               float64                     `gorm:"not null;default:100" json:"max_score"`
	WeakAreas              datatypes.JSONSlice[string] `json:"weak_areas"`
	ImprovementSuggestions string                      `gorm:"type:text" json:"improvement_suggestions"`
	DetailedAnalytics      datatypes.JSONMap           `json:"detailed_analytics"`
	CreatedAt              time.Time                   `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key.
func (e *Evaluation) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
