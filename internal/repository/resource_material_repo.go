package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/exampilot-api/internal/models"
)

// ResourceMaterialRepository stores and reads course documents uploaded by students.
type ResourceMaterialRepository interface {
	Create(ctx context.Context, material *models.ResourceMaterial) error
	ListByCourse(ctx context.Context, courseID string) ([]models.ResourceMaterial, error)
	ListByUser(ctx context.Context, courseID, userID string) ([]models.ResourceMaterial, error)
	FindByType(ctx context.Context, courseID, userID, resourceType string) (models.ResourceMaterial, error)
}

type resourceMaterialRepository struct {
	db *gorm.DB
}

// NewResourceMaterialRepository constructs the repository.
func NewResourceMaterialRepository(db *gorm.DB) ResourceMaterialRepository {
	return &resourceMaterialRepository{db: db}
}

func (r *resourceMaterialRepository) Create(ctx context.Context, material *models.ResourceMaterial) error {
	return r.db.WithContext(ctx).Create(material).Error
}

func (r *resourceMaterialRepository) ListByCourse(ctx context.Context, courseID string) ([]models.ResourceMaterial, error) {
	var materials []models.ResourceMaterial
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&materials).Error
	if err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *resourceMaterialRepository) ListByUser(ctx context.Context, courseID, userID string) ([]models.ResourceMaterial, error) {
	var materials []models.ResourceMaterial
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Order("created_at DESC").
		Find(&materials).Error
	if err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *resourceMaterialRepository) FindByType(ctx context.Context, courseID, userID, resourceType string) (models.ResourceMaterial, error) {
	var material models.ResourceMaterial
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ? AND resource_type = ?", courseID, userID, resourceType).
		Order("created_at DESC").
		First(&material).Error
	if err != nil {
		return models.ResourceMaterial{}, err
	}
	return material, nil
}
