package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Submission processing states.
const (
	SubmissionStatusNotStarted = "not_started"
	SubmissionStatusProcessing = "processing"
	SubmissionStatusCompleted  = "completed"
	SubmissionStatusFailed     = "failed"
)

// Submission is a post-exam answer sheet uploaded for evaluation.
type Submission struct {
	ID               string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID           string       `gorm:"size:64;not null;index" json:"user_id"`
	CourseID         string       `gorm:"size:64;not null;index" json:"course_id"`
	AnswerSheetPath  string       `gorm:"size:512;not null" json:"answer_sheet_path"`
	AnswerKeyPath    *string      `gorm:"size:512" json:"answer_key_path"`
	OCRText          *string      `gorm:"column:ocr_text;type:text" json:"ocr_text"`
	ProcessingStatus string       `gorm:"size:32;not null;default:not_started" json:"processing_status"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	Evaluations      []Evaluation `gorm:"foreignKey:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"evaluations,omitempty"`
}

// TableName keeps the historical table name.
func (Submission) TableName() string {
	return "post_exam_submissions"
}

// BeforeCreate assigns a UUID primary key.
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.ProcessingStatus == "" {
		s.ProcessingStatus = SubmissionStatusNotStarted
	}
	return nil
}
