package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question types supported by mock papers.
const (
	QuestionTypeMCQ        = "mcq"
	QuestionTypeLongAnswer = "long_answer"
)

// MockPaper is a generated practice exam.
type MockPaper struct {
	ID              string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	CourseID        string     `gorm:"size:64;not null;index" json:"course_id"`
	UserID          string     `gorm:"size:64;not null;index" json:"user_id"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	QuestionType    string     `gorm:"size:32;not null" json:"question_type"`
	TotalMarks      int        `gorm:"not null" json:"total_marks"`
	DurationMinutes int        `gorm:"not null" json:"duration_minutes"`
	CreatedAt       time.Time  `json:"created_at"`
	Questions       []Question `gorm:"foreignKey:MockPaperID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions,omitempty"`
}

// BeforeCreate assigns a UUID primary key.
func (p *MockPaper) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Question belongs to a mock paper. Options are set for MCQs, CorrectAnswer for long answers.
type Question struct {
	ID            string                      `gorm:"type:varchar(36);primaryKey" json:"id"`
	MockPaperID   string                      `gorm:"type:varchar(36);not null;index" json:"mock_paper_id"`
	Position      int                         `gorm:"not null;default:0" json:"position"`
	QuestionText  string                      `gorm:"type:text;not null" json:"question_text"`
	QuestionType  string                      `gorm:"size:32;not null" json:"question_type"`
	Marks         int                         `gorm:"not null;default:1" json:"marks"`
	Options       datatypes.JSON              `json:"options"`
	CorrectAnswer *string                     `gorm:"type:text" json:"correct_answer"`
	ConceptTags   datatypes.JSONSlice[string] `json:"concept_tags"`
	CreatedAt     time.Time                   `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key.
func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}
