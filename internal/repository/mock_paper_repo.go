package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/exampilot-api/internal/models"
)

// MockPaperRepository stores generated mock papers and their questions.
type MockPaperRepository interface {
	CreateWithQuestions(ctx context.Context, paper *models.MockPaper, questions []models.Question) error
	GetByID(ctx context.Context, id string) (models.MockPaper, error)
}

type mockPaperRepository struct {
	db *gorm.DB
}

// NewMockPaperRepository constructs the repository.
func NewMockPaperRepository(db *gorm.DB) MockPaperRepository {
	return &mockPaperRepository{db: db}
}

func (r *mockPaperRepository) CreateWithQuestions(ctx context.Context, paper *models.MockPaper, questions []models.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Questions").Create(paper).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}
		for i := range questions {
			questions[i].MockPaperID = paper.ID
			questions[i].Position = i + 1
		}
		if err := tx.Create(&questions).Error; err != nil {
			return err
		}
		paper.Questions = questions
		return nil
	})
}

func (r *mockPaperRepository) GetByID(ctx context.Context, id string) (models.MockPaper, error) {
	var paper models.MockPaper
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&paper).Error
	if err != nil {
		return models.MockPaper{}, err
	}
	return paper, nil
}
