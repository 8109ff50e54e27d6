package dto

import (
	"time"

	"github.com/noah-isme/exampilot-api/internal/models"
)

// CreateSubmissionRequest carries the non-file fields of the submission upload form.
type CreateSubmissionRequest struct {
	CourseID string `form:"course_id" validate:"required,max=64"`
}

// SubmissionResponse exposes a submission and its evaluations, newest first.
type SubmissionResponse struct {
	ID               string               `json:"id"`
	UserID           string               `json:"user_id"`
	CourseID         string               `json:"course_id"`
	AnswerSheetPath  string               `json:"answer_sheet_path"`
	AnswerKeyPath    *string              `json:"answer_key_path"`
	ProcessingStatus string               `json:"processing_status"`
	Dispatched       bool                 `json:"dispatched,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	Evaluations      []EvaluationResponse `json:"evaluations"`
}

// NewSubmissionResponse builds a response DTO from a model.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	evaluations := make([]EvaluationResponse, 0, len(submission.Evaluations))
	for _, evaluation := range submission.Evaluations {
		evaluations = append(evaluations, NewEvaluationResponse(evaluation))
	}

	return SubmissionResponse{
		ID:               submission.ID,
		UserID:           submission.UserID,
		CourseID:         submission.CourseID,
		AnswerSheetPath:  submission.AnswerSheetPath,
		AnswerKeyPath:    submission.AnswerKeyPath,
		ProcessingStatus: submission.ProcessingStatus,
		CreatedAt:        submission.CreatedAt,
		UpdatedAt:        submission.UpdatedAt,
		Evaluations:      evaluations,
	}
}
