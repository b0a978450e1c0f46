package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/repository"
)

// ProgressInvalidator drops cached progress once a student's grades change.
type ProgressInvalidator interface {
	Invalidate(ctx context.Context, studentID string)
}

// GradeRecorder persists grades and runs the side effects every grade write shares.
type GradeRecorder struct {
	submissions repository.SubmissionRepository
	progress    ProgressInvalidator
	events      GradeEventPublisher
	activity    ActivityRecorder
	logger      zerolog.Logger
}

// NewGradeRecorder builds a recorder. Progress, events and activity are optional.
func NewGradeRecorder(submissions repository.SubmissionRepository, progress ProgressInvalidator, events GradeEventPublisher, activity ActivityRecorder, logger zerolog.Logger) *GradeRecorder {
	return &GradeRecorder{
		submissions: submissions,
		progress:    progress,
		events:      events,
		activity:    activity,
		logger:      logger.With().Str("component", "grade_recorder").Logger(),
	}
}

// Record writes the grade onto the student's submission for the question.
func (r *GradeRecorder) Record(ctx context.Context, submission models.Submission, update repository.GradeUpdate, actor string, metadata map[string]interface{}) (models.Submission, error) {
	updated, err := r.submissions.UpdateGrade(ctx, submission.StudentID, submission.QuestionID, update)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		r.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to store grade")
		return models.Submission{}, err
	}

	if r.progress != nil {
		r.progress.Invalidate(ctx, updated.StudentID)
	}

	if r.events != nil {
		r.events.Publish(ctx, dto.NewGradeEvent(updated))
	}

	if r.activity != nil {
		details := map[string]interface{}{
			"question_id":     updated.QuestionID,
			"student_id":      updated.StudentID,
			"score":           update.Score,
			"evaluation_mode": update.EvaluationMode,
		}
		for key, value := range metadata {
			details[key] = value
		}
		if _, err := r.activity.Record(ctx, ActivityEntry{
			ActorID:    actor,
			ActorRole:  actorRole(actor),
			Action:     ActionSubmissionGraded,
			EntityType: "submission",
			EntityID:   strconv.FormatUint(uint64(updated.ID), 10),
			Metadata:   details,
		}); err != nil {
			r.logger.Warn().Err(err).Uint("submission_id", updated.ID).Msg("failed to record grading activity")
		}
	}

	r.logger.Info().
		Uint("submission_id", updated.ID).
		Str("student_id", updated.StudentID).
		Str("evaluation_mode", update.EvaluationMode).
		Float64("score", update.Score).
		Msg("submission graded")

	return updated, nil
}

func actorRole(actor string) string {
	if actor == "" || actor == systemActor {
		return systemActor
	}
	return "teacher"
}

const systemActor = "system"
