package ai

import "context"

// OCRRequest carries the page images of a single document to transcribe.
type OCRRequest struct {
	Instruction string
	// Images are data URIs (or fetchable URLs), one per page, in page order.
	Images []string
}

// EvaluationInput contains the artefacts needed to grade an answer sheet.
type EvaluationInput struct {
	AnswerSheetText string
	AnswerKeyText   string
	MaterialNames   []string
}

// CompletionRequest is a plain system/user prompt pair expecting a text answer.
type CompletionRequest struct {
	System string
	User   string
}

// QuestionAnalysis is the per-question breakdown returned by the evaluator.
type QuestionAnalysis struct {
	QuestionNumber string  `json:"question_number"`
	QuestionText   string  `json:"question_text"`
	StudentAnswer  string  `json:"student_answer"`
	ExpectedAnswer string  `json:"expected_answer"`
	Score          float64 `json:"score"`
	MaxScore       float64 `json:"max_score"`
	Feedback       string  `json:"feedback"`
	ImprovementTip string  `json:"improvement_tip"`
}

// ConceptPerformance is the score breakdown for one concept label.
type ConceptPerformance struct {
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Percentage float64 `json:"percentage"`
}

// DetailedAnalytics is the typed view over the nested analytics object.
type DetailedAnalytics struct {
	Questions              []QuestionAnalysis            `json:"questions"`
	ConceptWisePerformance map[string]ConceptPerformance `json:"concept_wise_performance"`
	Strengths              []string                      `json:"strengths"`
	AreasToFocus           []string                      `json:"areas_to_focus"`
}

// EvaluationRecord is the structured scoring result with defaults already applied.
type EvaluationRecord struct {
	TotalScore             float64           `json:"total_score"`
	MaxScore               float64           `json:"max_score"`
	WeakAreas              []string          `json:"weak_areas"`
	ImprovementSuggestions string            `json:"improvement_suggestions"`
	DetailedAnalytics      DetailedAnalytics `json:"detailed_analytics"`
	// RawAnalytics is the analytics object exactly as the model returned it.
	RawAnalytics map[string]interface{} `json:"-"`
}

// TextExtractor transcribes page images through a vision-capable model.
type TextExtractor interface {
	ExtractText(ctx context.Context, req OCRRequest) (string, error)
}

// Evaluator describes a model capable of scoring answer sheets.
type Evaluator interface {
	Evaluate(ctx context.Context, input EvaluationInput) (EvaluationRecord, error)
}

// Completer produces free-form text completions.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
