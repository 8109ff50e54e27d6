package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var (
	openingFence = regexp.MustCompile("(?i)^```[a-z]*\\s*")
	closingFence = regexp.MustCompile("\\s*```\\s*$")
)

const defaultMaxScore = 100

type evaluationPayload struct {
	TotalScore             *float64               `json:"total_score"`
	MaxScore               *float64               `json:"max_score"`
	WeakAreas              []string               `json:"weak_areas"`
	ImprovementSuggestions *string                `json:"improvement_suggestions"`
	DetailedAnalytics      map[string]interface{} `json:"detailed_analytics"`
}

// ParseEvaluationMessage turns an assistant message into an EvaluationRecord.
// The declared tool call wins; fenced or bare JSON text is the fallback.
func ParseEvaluationMessage(message openai.ChatCompletionMessage) (EvaluationRecord, error) {
	var toolErr error
	for _, call := range message.ToolCalls {
		if call.Function.Name != EvaluationFunctionName {
			continue
		}
		record, err := ParseEvaluationJSON(call.Function.Arguments)
		if err == nil {
			return record, nil
		}
		toolErr = err
		break
	}

	content := strings.TrimSpace(message.Content)
	if content == "" {
		if toolErr != nil {
			return EvaluationRecord{}, toolErr
		}
		return EvaluationRecord{}, &ParseError{Reason: "response has neither a tool call nor text content"}
	}

	record, err := ParseEvaluationJSON(StripCodeFences(content))
	if err != nil {
		return EvaluationRecord{}, err
	}
	return record, nil
}

// ParseEvaluationJSON decodes a JSON evaluation object and fills defaults for missing fields.
func ParseEvaluationJSON(raw string) (EvaluationRecord, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return EvaluationRecord{}, &ParseError{Reason: "empty payload"}
	}

	var payload evaluationPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return EvaluationRecord{}, &ParseError{Reason: "payload is not a JSON object", Err: err}
	}

	record := EvaluationRecord{
		MaxScore:     defaultMaxScore,
		WeakAreas:    payload.WeakAreas,
		RawAnalytics: payload.DetailedAnalytics,
	}
	if payload.TotalScore != nil {
		record.TotalScore = *payload.TotalScore
	}
	// A zero max score is meaningless, so it falls back like a missing one.
	if payload.MaxScore != nil && *payload.MaxScore != 0 {
		record.MaxScore = *payload.MaxScore
	}
	if payload.ImprovementSuggestions != nil {
		record.ImprovementSuggestions = *payload.ImprovementSuggestions
	}
	if record.WeakAreas == nil {
		record.WeakAreas = []string{}
	}
	if record.RawAnalytics == nil {
		record.RawAnalytics = map[string]interface{}{}
	}
	record.DetailedAnalytics = decodeAnalytics(record.RawAnalytics)

	return record, nil
}

// decodeAnalytics is lenient: a malformed sub-field is dropped, never fatal.
func decodeAnalytics(raw map[string]interface{}) DetailedAnalytics {
	analytics := DetailedAnalytics{}

	decodeField(raw, "questions", &analytics.Questions)
	decodeField(raw, "concept_wise_performance", &analytics.ConceptWisePerformance)
	decodeField(raw, "strengths", &analytics.Strengths)
	decodeField(raw, "areas_to_focus", &analytics.AreasToFocus)

	if analytics.Questions == nil {
		analytics.Questions = []QuestionAnalysis{}
	}
	if analytics.ConceptWisePerformance == nil {
		analytics.ConceptWisePerformance = map[string]ConceptPerformance{}
	}
	if analytics.Strengths == nil {
		analytics.Strengths = []string{}
	}
	if analytics.AreasToFocus == nil {
		analytics.AreasToFocus = []string{}
	}
	return analytics
}

// PersistedAnalytics returns the analytics object as the model sent it. Only absent
// top-level sections are filled with empty values; nothing the model returned is rewritten.
func (r EvaluationRecord) PersistedAnalytics() map[string]interface{} {
	analytics := make(map[string]interface{}, len(r.RawAnalytics)+4)
	for key, value := range r.RawAnalytics {
		analytics[key] = value
	}

	defaults := map[string]func() interface{}{
		"questions":                func() interface{} { return []interface{}{} },
		"concept_wise_performance": func() interface{} { return map[string]interface{}{} },
		"strengths":                func() interface{} { return []interface{}{} },
		"areas_to_focus":           func() interface{} { return []interface{}{} },
	}
	for key, empty := range defaults {
		if value, ok := analytics[key]; !ok || value == nil {
			analytics[key] = empty()
		}
	}
	return analytics
}

func decodeField(raw map[string]interface{}, key string, target interface{}) {
	value, ok := raw[key]
	if !ok || value == nil {
		return
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = json.Unmarshal(encoded, target)
}

// StripCodeFences removes a surrounding markdown code fence such as ```json ... ```.
func StripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	content = openingFence.ReplaceAllString(content, "")
	content = closingFence.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}

// DecodeJSONContent decodes model text into target, tolerating code fences and
// prose around a single JSON object.
func DecodeJSONContent(content string, target interface{}) error {
	cleaned := StripCodeFences(content)
	err := json.Unmarshal([]byte(cleaned), target)
	if err == nil {
		return nil
	}

	start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if json.Unmarshal([]byte(cleaned[start:end+1]), target) == nil {
			return nil
		}
	}
	return &ParseError{Reason: "content is not valid JSON", Err: err}
}
