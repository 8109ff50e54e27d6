package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/exampilot-api/internal/models"
)

// SubmissionRepository defines data operations for post-exam submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (models.Submission, error)
	ListByUser(ctx context.Context, userID, courseID string) ([]models.Submission, error)
	UpdateStatus(ctx context.Context, id, status string) error
	MarkFailed(ctx context.Context, id string) error
	CompleteWithEvaluation(ctx context.Context, id, ocrText string, evaluation *models.Evaluation) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Evaluations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ?", id).
		First(&submission).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) ListByUser(ctx context.Context, userID, courseID string) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).Where("user_id = ?", userID)
	if courseID != "" {
		query = query.Where("course_id = ?", courseID)
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Update("processing_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *submissionRepository) MarkFailed(ctx context.Context, id string) error {
	return r.UpdateStatus(ctx, id, models.SubmissionStatusFailed)
}

// CompleteWithEvaluation stores the extracted text, flips the status to completed and inserts
// the evaluation in one transaction, so a completed submission always has its evaluation.
func (r *submissionRepository) CompleteWithEvaluation(ctx context.Context, id, ocrText string, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Submission{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"ocr_text":          ocrText,
				"processing_status": models.SubmissionStatusCompleted,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		evaluation.SubmissionID = id
		return tx.Create(evaluation).Error
	})
}
