package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
)

// OverrideFilter narrows override queries.
type OverrideFilter struct {
	QuestionID string
	StudentID  string
}

// OverrideRepository persists teacher grade overrides.
type OverrideRepository interface {
	Create(ctx context.Context, override *models.GradingOverride) error
	List(ctx context.Context, filter OverrideFilter) ([]models.GradingOverride, error)
}

type overrideRepository struct {
	db *gorm.DB
}

// NewOverrideRepository constructs the override repository.
func NewOverrideRepository(db *gorm.DB) OverrideRepository {
	return &overrideRepository{db: db}
}

func (r *overrideRepository) Create(ctx context.Context, override *models.GradingOverride) error {
	return r.db.WithContext(ctx).Create(override).Error
}

func (r *overrideRepository) List(ctx context.Context, filter OverrideFilter) ([]models.GradingOverride, error) {
	query := r.db.WithContext(ctx).Model(&models.GradingOverride{})

	if filter.QuestionID != "" {
		query = query.Where("question_id = ?", filter.QuestionID)
	}

	if filter.StudentID != "" {
		query = query.Where("student_id = ?", filter.StudentID)
	}

	var overrides []models.GradingOverride
	if err := query.Order("created_at ASC").Order("id ASC").Find(&overrides).Error; err != nil {
		return nil, err
	}

	return overrides, nil
}
