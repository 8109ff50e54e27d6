package dto

import (
	"time"

	"github.com/noah-isme/exampilot-api/internal/models"
)

// EvaluateAnswerSheetRequest is the payload accepted by the answer-sheet evaluation endpoint.
// Text fields take precedence over page images; page images beyond the configured cap are ignored.
type EvaluateAnswerSheetRequest struct {
	SubmissionID      string   `json:"submissionId" validate:"required,max=64"`
	AnswerSheetText   string   `json:"answerSheetText,omitempty"`
	AnswerKeyText     string   `json:"answerKeyText,omitempty"`
	AnswerSheetImages []string `json:"answerSheetImages,omitempty" validate:"omitempty,dive,required"`
	AnswerKeyImages   []string `json:"answerKeyImages,omitempty" validate:"omitempty,dive,required"`
}

// EvaluationResponse exposes a persisted evaluation.
type EvaluationResponse struct {
	ID                     string                 `json:"id"`
	SubmissionID           string                 `json:"submission_id"`
	TotalScore             float64                `json:"total_score"`
	MaxScore               float64                `json:"max_score"`
	WeakAreas              []string               `json:"weak_areas"`
	ImprovementSuggestions string                 `json:"improvement_suggestions"`
	DetailedAnalytics      map[string]interface{} `json:"detailed_analytics"`
	CreatedAt              time.Time              `json:"created_at"`
}

// EvaluateAnswerSheetResponse is returned after a successful pipeline run.
type EvaluateAnswerSheetResponse struct {
	SubmissionID string             `json:"submission_id"`
	Status       string             `json:"status"`
	Evaluation   EvaluationResponse `json:"evaluation"`
}

// NewEvaluationResponse converts an Evaluation model into a DTO.
func NewEvaluationResponse(evaluation models.Evaluation) EvaluationResponse {
	weakAreas := []string(evaluation.WeakAreas)
	if weakAreas == nil {
		weakAreas = []string{}
	}
	analytics := map[string]interface{}(evaluation.DetailedAnalytics)
	if analytics == nil {
		analytics = map[string]interface{}{}
	}

	return EvaluationResponse{
		ID:                     evaluation.ID,
		SubmissionID:           evaluation.SubmissionID,
		TotalScore:             evaluation.TotalScore,
		MaxScore:               evaluation.MaxScore,
		WeakAreas:              weakAreas,
		ImprovementSuggestions: evaluation.ImprovementSuggestions,
		DetailedAnalytics:      analytics,
		CreatedAt:              evaluation.CreatedAt,
	}
}
