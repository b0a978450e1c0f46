package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	QuestionID string
	StudentID  string
	Graded     *bool
}

// GradeUpdate carries the fields written back after grading.
type GradeUpdate struct {
	Score          float64
	Feedback       string
	EvaluationMode string
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByStudentAndQuestion(ctx context.Context, studentID, questionID string) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	UpdateGrade(ctx context.Context, studentID, questionID string, update GradeUpdate) (models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.QuestionID != "" {
		query = query.Where("question_id = ?", filter.QuestionID)
	}

	if filter.StudentID != "" {
		query = query.Where("student_id = ?", filter.StudentID)
	}

	if filter.Graded != nil {
		query = query.Where("graded = ?", *filter.Graded)
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at ASC").Order("id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByStudentAndQuestion(ctx context.Context, studentID, questionID string) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("question_id = ?", questionID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// Create stores a new submission, refusing a second answer from the same student to the same question.
func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Submission{}).
			Where("student_id = ? AND question_id = ?", submission.StudentID, submission.QuestionID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}
		return tx.Create(submission).Error
	})
}

func (r *submissionRepository) UpdateGrade(ctx context.Context, studentID, questionID string, update GradeUpdate) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ? AND question_id = ?", studentID, questionID).First(&submission).Error; err != nil {
			return err
		}

		score := update.Score
		now := time.Now().UTC()
		submission.Score = &score
		submission.Feedback = update.Feedback
		submission.EvaluationMode = update.EvaluationMode
		submission.Graded = true
		submission.GradedAt = &now

		return tx.Save(&submission).Error
	})
	if err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}
