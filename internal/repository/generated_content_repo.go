package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/exampilot-api/internal/models"
)

// GeneratedContentRepository persists LLM-generated study material.
type GeneratedContentRepository interface {
	CreateBatch(ctx context.Context, items []models.GeneratedContent) error
	ListByCourse(ctx context.Context, courseID, userID string) ([]models.GeneratedContent, error)
}

type generatedContentRepository struct {
	db *gorm.DB
}

// NewGeneratedContentRepository constructs the repository.
func NewGeneratedContentRepository(db *gorm.DB) GeneratedContentRepository {
	return &generatedContentRepository{db: db}
}

func (r *generatedContentRepository) CreateBatch(ctx context.Context, items []models.GeneratedContent) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(items, 100).Error
}

func (r *generatedContentRepository) ListByCourse(ctx context.Context, courseID, userID string) ([]models.GeneratedContent, error) {
	var items []models.GeneratedContent
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
