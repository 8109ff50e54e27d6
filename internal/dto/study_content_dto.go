package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/exampilot-api/internal/models"
)

// GenerateStudyContentResponse summarises a generation run.
type GenerateStudyContentResponse struct {
	CourseID    string   `json:"course_id"`
	ModuleCount int      `json:"module_count"`
	Modules     []string `json:"modules"`
}

// GeneratedContentResponse exposes one stored content item.
type GeneratedContentResponse struct {
	ID          string          `json:"id"`
	ModuleName  string          `json:"module_name"`
	ContentType string          `json:"content_type"`
	Content     json.RawMessage `json:"content"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewGeneratedContentResponse converts the model into a DTO.
func NewGeneratedContentResponse(item models.GeneratedContent) GeneratedContentResponse {
	content := json.RawMessage(item.Content)
	if len(content) == 0 {
		content = json.RawMessage("null")
	}
	return GeneratedContentResponse{
		ID:          item.ID,
		ModuleName:  item.ModuleName,
		ContentType: item.ContentType,
		Content:     content,
		CreatedAt:   item.CreatedAt,
	}
}
