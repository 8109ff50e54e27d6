package dto

import (
	"time"

	"github.com/noah-isme/exampilot-api/internal/models"
)

// UploadMaterialRequest carries the non-file fields of a course material upload.
type UploadMaterialRequest struct {
	CourseID     string `validate:"required,max=64"`
	ResourceType string `form:"resource_type" validate:"required,oneof=syllabus textbook pyq"`
}

// ResourceMaterialResponse exposes a stored course document.
type ResourceMaterialResponse struct {
	ID           string    `json:"id"`
	CourseID     string    `json:"course_id"`
	FileName     string    `json:"file_name"`
	FilePath     string    `json:"file_path"`
	FileSize     *int64    `json:"file_size"`
	ResourceType string    `json:"resource_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewResourceMaterialResponse builds a response DTO from a model.
func NewResourceMaterialResponse(material models.ResourceMaterial) ResourceMaterialResponse {
	return ResourceMaterialResponse{
		ID:           material.ID,
		CourseID:     material.CourseID,
		FileName:     material.FileName,
		FilePath:     material.FilePath,
		FileSize:     material.FileSize,
		ResourceType: material.ResourceType,
		CreatedAt:    material.CreatedAt,
	}
}
