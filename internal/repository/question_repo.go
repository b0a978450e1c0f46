package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
)

// ErrDuplicate is returned when a record with the same identity already exists.
var ErrDuplicate = errors.New("record already exists")

// QuestionRepository defines data operations for questions.
type QuestionRepository interface {
	List(ctx context.Context, subject string) ([]models.Question, error)
	GetByID(ctx context.Context, id string) (models.Question, error)
	Create(ctx context.Context, question *models.Question) error
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id string) error
	BulkCreate(ctx context.Context, questions []models.Question) (int, []string, error)
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository instantiates the repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) List(ctx context.Context, subject string) ([]models.Question, error) {
	query := r.db.WithContext(ctx).Model(&models.Question{})
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}

	var questions []models.Question
	if err := query.Order("created_at ASC").Order("id ASC").Find(&questions).Error; err != nil {
		return nil, err
	}

	return questions, nil
}

func (r *questionRepository) GetByID(ctx context.Context, id string) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, "id = ?", id).Error; err != nil {
		return models.Question{}, err
	}

	return question, nil
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createQuestion(tx, question)
	})
}

func (r *questionRepository) Update(ctx context.Context, question *models.Question) error {
	result := r.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", question.ID).
		Select("subject", "topic", "text", "expected_answer", "grading_criteria", "reference_answer", "rubric", "total_points", "updated_at").
		Updates(question)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *questionRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Question{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// BulkCreate inserts every question whose id is new and reports the ids that already existed.
func (r *questionRepository) BulkCreate(ctx context.Context, questions []models.Question) (int, []string, error) {
	imported := 0
	failed := make([]string, 0)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range questions {
			err := createQuestion(tx, &questions[i])
			if errors.Is(err, ErrDuplicate) {
				failed = append(failed, questions[i].ID)
				continue
			}
			if err != nil {
				return err
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return imported, failed, nil
}

func createQuestion(tx *gorm.DB, question *models.Question) error {
	var count int64
	if err := tx.Model(&models.Question{}).Where("id = ?", question.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicate
	}
	return tx.Create(question).Error
}
