package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/exampilot-api/internal/models"
)

// GenerateMockPaperRequest describes the paper to generate.
type GenerateMockPaperRequest struct {
	CourseID        string `json:"course_id" validate:"required,max=64"`
	Title           string `json:"title" validate:"required,max=255"`
	QuestionType    string `json:"question_type" validate:"required,oneof=mcq long_answer"`
	TotalMarks      int    `json:"total_marks" validate:"required,min=1,max=200"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=1,max=600"`
}

// QuestionResponse exposes a mock paper question.
type QuestionResponse struct {
	ID            string          `json:"id"`
	Position      int             `json:"position"`
	QuestionText  string          `json:"question_text"`
	QuestionType  string          `json:"question_type"`
	Marks         int             `json:"marks"`
	Options       json.RawMessage `json:"options,omitempty"`
	CorrectAnswer *string         `json:"correct_answer,omitempty"`
	ConceptTags   []string        `json:"concept_tags"`
}

// MockPaperResponse exposes a mock paper with its questions.
type MockPaperResponse struct {
	ID              string             `json:"id"`
	CourseID        string             `json:"course_id"`
	Title           string             `json:"title"`
	QuestionType    string             `json:"question_type"`
	TotalMarks      int                `json:"total_marks"`
	DurationMinutes int                `json:"duration_minutes"`
	CreatedAt       time.Time          `json:"created_at"`
	Questions       []QuestionResponse `json:"questions"`
}

// NewMockPaperResponse builds a response DTO from a model.
func NewMockPaperResponse(paper models.MockPaper) MockPaperResponse {
	questions := make([]QuestionResponse, 0, len(paper.Questions))
	for _, question := range paper.Questions {
		tags := []string(question.ConceptTags)
		if tags == nil {
			tags = []string{}
		}
		var options json.RawMessage
		if len(question.Options) > 0 && string(question.Options) != "null" {
			options = json.RawMessage(question.Options)
		}
		questions = append(questions, QuestionResponse{
			ID:            question.ID,
			Position:      question.Position,
			QuestionText:  question.QuestionText,
			QuestionType:  question.QuestionType,
			Marks:         question.Marks,
			Options:       options,
			CorrectAnswer: question.CorrectAnswer,
			ConceptTags:   tags,
		})
	}

	return MockPaperResponse{
		ID:              paper.ID,
		CourseID:        paper.CourseID,
		Title:           paper.Title,
		QuestionType:    paper.QuestionType,
		TotalMarks:      paper.TotalMarks,
		DurationMinutes: paper.DurationMinutes,
		CreatedAt:       paper.CreatedAt,
		Questions:       questions,
	}
}
