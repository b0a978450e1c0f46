package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/repository"
)

var (
	// ErrDuplicateSubmission indicates the student already answered the question.
	ErrDuplicateSubmission = errors.New("submission already exists for this student and question")
	// ErrEmptyAnswer indicates the answer contained nothing but markup or whitespace.
	ErrEmptyAnswer = errors.New("answer text is empty")
)

// SubmissionService handles student submissions, manual grades and teacher overrides.
type SubmissionService interface {
	Submit(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Grade(ctx context.Context, id uint, payload dto.GradeUpdateRequest, actor string) (dto.SubmissionResponse, error)
	Override(ctx context.Context, payload dto.OverrideCreateRequest) (dto.OverrideResponse, error)
	ListOverrides(ctx context.Context, filter dto.OverrideFilter) ([]dto.OverrideResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	questions   repository.QuestionRepository
	overrides   repository.OverrideRepository
	recorder    *GradeRecorder
	progress    ProgressInvalidator
	activity    ActivityRecorder
	validator   *validator.Validate
	policy      *bluemonday.Policy
	logger      zerolog.Logger
}

// SubmissionServiceDeps groups the collaborators of the submission service.
type SubmissionServiceDeps struct {
	Submissions repository.SubmissionRepository
	Questions   repository.QuestionRepository
	Overrides   repository.OverrideRepository
	Recorder    *GradeRecorder
	Progress    ProgressInvalidator
	Activity    ActivityRecorder
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(deps SubmissionServiceDeps, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: deps.Submissions,
		questions:   deps.Questions,
		overrides:   deps.Overrides,
		recorder:    deps.Recorder,
		progress:    deps.Progress,
		activity:    deps.Activity,
		validator:   validate,
		policy:      bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
	}
}

func (s *submissionService) Submit(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	questionID := strings.TrimSpace(payload.QuestionID)
	if _, err := s.questions.GetByID(ctx, questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrQuestionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	answer := plainText(s.policy, payload.AnswerText)
	if answer == "" {
		return dto.SubmissionResponse{}, ErrEmptyAnswer
	}

	submission := models.Submission{
		QuestionID: questionID,
		StudentID:  strings.TrimSpace(payload.StudentID),
		AnswerText: answer,
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.SubmissionResponse{}, ErrDuplicateSubmission
		}
		s.logger.Error().Err(err).Str("student_id", submission.StudentID).Msg("failed to store submission")
		return dto.SubmissionResponse{}, err
	}

	if s.progress != nil {
		s.progress.Invalidate(ctx, submission.StudentID)
	}
	s.record(ctx, ActivityEntry{
		ActorID:    submission.StudentID,
		ActorRole:  "student",
		Action:     ActionSubmissionCreated,
		EntityType: "submission",
		EntityID:   strconv.FormatUint(uint64(submission.ID), 10),
		Metadata:   map[string]interface{}{"question_id": submission.QuestionID},
	})

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Str("student_id", submission.StudentID).
		Str("question_id", submission.QuestionID).
		Msg("submission received")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Get(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		QuestionID: strings.TrimSpace(filter.QuestionID),
		StudentID:  strings.TrimSpace(filter.StudentID),
		Graded:     filter.Graded,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

// Grade stores a teacher-entered score.
func (s *submissionService) Grade(ctx context.Context, id uint, payload dto.GradeUpdateRequest, actor string) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	updated, err := s.recorder.Record(ctx, submission, repository.GradeUpdate{
		Score:          *payload.Score,
		Feedback:       plainText(s.policy, payload.Feedback),
		EvaluationMode: models.EvaluationModeManual,
	}, strings.TrimSpace(actor), nil)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(updated), nil
}

// Override keeps the previous score in the override record and writes the teacher's score onto the submission.
func (s *submissionService) Override(ctx context.Context, payload dto.OverrideCreateRequest) (dto.OverrideResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.OverrideResponse{}, err
	}

	studentID := strings.TrimSpace(payload.StudentID)
	questionID := strings.TrimSpace(payload.QuestionID)

	submission, err := s.submissions.GetByStudentAndQuestion(ctx, studentID, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.OverrideResponse{}, ErrSubmissionNotFound
		}
		return dto.OverrideResponse{}, err
	}

	original := 0.0
	if submission.Score != nil {
		original = *submission.Score
	}

	reason := plainText(s.policy, payload.Reason)
	override := models.GradingOverride{
		QuestionID:    questionID,
		StudentID:     studentID,
		OriginalScore: original,
		OverrideScore: *payload.OverrideScore,
		Reason:        reason,
		TeacherID:     strings.TrimSpace(payload.TeacherID),
	}
	if err := s.overrides.Create(ctx, &override); err != nil {
		s.logger.Error().Err(err).Str("student_id", studentID).Msg("failed to store grading override")
		return dto.OverrideResponse{}, err
	}

	feedback := submission.Feedback
	if feedback != "" {
		feedback += "\n\n"
	}
	feedback += "Teacher override: " + reason

	if _, err := s.recorder.Record(ctx, submission, repository.GradeUpdate{
		Score:          override.OverrideScore,
		Feedback:       feedback,
		EvaluationMode: models.EvaluationModeManual,
	}, override.TeacherID, map[string]interface{}{
		"original_score": original,
		"override_id":    override.ID,
	}); err != nil {
		return dto.OverrideResponse{}, err
	}

	s.record(ctx, ActivityEntry{
		ActorID:    override.TeacherID,
		ActorRole:  "teacher",
		Action:     ActionGradeOverridden,
		EntityType: "submission",
		EntityID:   strconv.FormatUint(uint64(submission.ID), 10),
		Metadata: map[string]interface{}{
			"original_score": original,
			"override_score": override.OverrideScore,
			"reason":         reason,
		},
	})

	return dto.NewOverrideResponse(override), nil
}

func (s *submissionService) ListOverrides(ctx context.Context, filter dto.OverrideFilter) ([]dto.OverrideResponse, error) {
	overrides, err := s.overrides.List(ctx, repository.OverrideFilter{
		QuestionID: strings.TrimSpace(filter.QuestionID),
		StudentID:  strings.TrimSpace(filter.StudentID),
	})
	if err != nil {
		return nil, err
	}
	return dto.NewOverrideResponseSlice(overrides), nil
}

func (s *submissionService) load(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

func (s *submissionService) record(ctx context.Context, entry ActivityEntry) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to record submission activity")
	}
}
