package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/repository"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/ai"
)

// AnswerEvaluator grades a free-text answer with a hosted model or the simulated fallback.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, input ai.EvaluationInput) ai.EvaluationOutcome
}

// EvaluationService exposes LLM-backed evaluation.
type EvaluationService interface {
	Evaluate(ctx context.Context, req dto.EvaluationRequest) (dto.EvaluationResponse, error)
	EvaluateSubmission(ctx context.Context, submissionID uint) (dto.SubmissionGradeResponse, error)
}

type evaluationService struct {
	evaluator   AnswerEvaluator
	questions   repository.QuestionRepository
	submissions repository.SubmissionRepository
	recorder    *GradeRecorder
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewEvaluationService constructs the evaluation service.
func NewEvaluationService(
	evaluator AnswerEvaluator,
	questions repository.QuestionRepository,
	submissions repository.SubmissionRepository,
	recorder *GradeRecorder,
	validate *validator.Validate,
	logger zerolog.Logger,
) EvaluationService {
	return &evaluationService{
		evaluator:   evaluator,
		questions:   questions,
		submissions: submissions,
		recorder:    recorder,
		validator:   validate,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, req dto.EvaluationRequest) (dto.EvaluationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EvaluationResponse{}, err
	}

	outcome := s.evaluator.Evaluate(ctx, req.ToInput())
	return dto.NewEvaluationResponse(outcome), nil
}

// EvaluateSubmission grades a stored answer against its question and writes the score back.
func (s *evaluationService) EvaluateSubmission(ctx context.Context, submissionID uint) (dto.SubmissionGradeResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionGradeResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionGradeResponse{}, err
	}

	question, err := s.questions.GetByID(ctx, submission.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionGradeResponse{}, ErrQuestionNotFound
		}
		return dto.SubmissionGradeResponse{}, err
	}

	outcome := s.evaluator.Evaluate(ctx, ai.EvaluationInput{
		Question:        question.Text,
		StudentAnswer:   submission.AnswerText,
		ExpectedAnswer:  question.ExpectedAnswer,
		GradingCriteria: question.GradingCriteria,
	})

	mode := models.EvaluationModeSimulated
	if outcome.Mode == ai.ModeAPI {
		mode = models.EvaluationModeAPI
	}

	metadata := map[string]interface{}{
		"max_score": outcome.MaxScore,
		"degraded":  outcome.Degraded(),
	}
	if outcome.Model != "" {
		metadata["model"] = outcome.Model
	}
	if reason := strings.TrimSpace(outcome.FallbackReason); reason != "" {
		metadata["fallback_reason"] = reason
	}

	updated, err := s.recorder.Record(ctx, submission, repository.GradeUpdate{
		Score:          float64(outcome.Score),
		Feedback:       outcome.EvaluationText,
		EvaluationMode: mode,
	}, systemActor, metadata)
	if err != nil {
		return dto.SubmissionGradeResponse{}, err
	}

	evaluation := dto.NewEvaluationResponse(outcome)
	return dto.SubmissionGradeResponse{
		Submission: dto.NewSubmissionResponse(updated),
		Evaluation: &evaluation,
	}, nil
}
