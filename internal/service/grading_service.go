package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/grading"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/observability"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/repository"
)

var (
	// ErrSubmissionNotFound indicates the submission does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrQuestionNotFound indicates the question does not exist.
	ErrQuestionNotFound = errors.New("question not found")
)

// GradingService exposes rubric grading for ad-hoc requests and stored submissions.
type GradingService interface {
	Grade(ctx context.Context, req dto.GradingRequest) (dto.GradingResult, error)
	GradeSubmission(ctx context.Context, submissionID uint) (dto.SubmissionGradeResponse, error)
}

// GradingServiceConfig tunes result caching. ModelName scopes cached results to the similarity backend.
type GradingServiceConfig struct {
	CacheTTL  time.Duration
	ModelName string
}

type gradingService struct {
	engine      *grading.Engine
	questions   repository.QuestionRepository
	submissions repository.SubmissionRepository
	recorder    *GradeRecorder
	cache       *redis.Client
	validator   *validator.Validate
	cfg         GradingServiceConfig
	logger      zerolog.Logger
}

// NewGradingService constructs the grading service. The cache is optional.
func NewGradingService(
	engine *grading.Engine,
	questions repository.QuestionRepository,
	submissions repository.SubmissionRepository,
	recorder *GradeRecorder,
	cache *redis.Client,
	validate *validator.Validate,
	cfg GradingServiceConfig,
	logger zerolog.Logger,
) GradingService {
	return &gradingService{
		engine:      engine,
		questions:   questions,
		submissions: submissions,
		recorder:    recorder,
		cache:       cache,
		validator:   validate,
		cfg:         cfg,
		logger:      logger.With().Str("component", "grading_service").Logger(),
	}
}

func (s *gradingService) Grade(ctx context.Context, req dto.GradingRequest) (dto.GradingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.GradingResult{}, err
	}

	domain := req.ToDomain()
	if err := grading.Validate(domain); err != nil {
		return dto.GradingResult{}, err
	}

	key := s.cacheKey(domain)
	if cached, ok := s.fetchCache(ctx, key); ok {
		observability.GradeCacheLookups().WithLabelValues("hit").Inc()
		return cached, nil
	}

	result, err := s.engine.Grade(ctx, domain)
	if err != nil {
		return dto.GradingResult{}, err
	}

	response := dto.NewGradingResult(result)
	if key != "" {
		observability.GradeCacheLookups().WithLabelValues("miss").Inc()
		s.writeCache(ctx, key, response)
	}

	return response, nil
}

func (s *gradingService) GradeSubmission(ctx context.Context, submissionID uint) (dto.SubmissionGradeResponse, error) {
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

	req := RubricRequest(question, submission.AnswerText)
	result, err := s.engine.Grade(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("rubric grading failed")
		return dto.SubmissionGradeResponse{}, err
	}

	updated, err := s.recorder.Record(ctx, submission, repository.GradeUpdate{
		Score:          result.Score,
		Feedback:       result.Feedback,
		EvaluationMode: models.EvaluationModeRubric,
	}, systemActor, map[string]interface{}{"exceeds_total": result.ExceedsTotal()})
	if err != nil {
		return dto.SubmissionGradeResponse{}, err
	}

	rubric := dto.NewGradingResult(result)
	return dto.SubmissionGradeResponse{
		Submission: dto.NewSubmissionResponse(updated),
		Rubric:     &rubric,
	}, nil
}

// RubricRequest turns a stored question rubric into an engine request. Items are visited in name
// order and each item's points are split evenly across its keywords and concepts; a label listed
// by several items accumulates their shares.
func RubricRequest(question models.Question, answer string) grading.Request {
	items := question.RubricItems()
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)

	req := grading.Request{
		StudentResponse: answer,
		ReferenceAnswer: question.ReferenceAnswer,
		TotalPoints:     question.TotalPoints,
		Rubric:          make(map[string]float64),
	}
	if strings.TrimSpace(req.ReferenceAnswer) == "" {
		req.ReferenceAnswer = question.ExpectedAnswer
	}

	seenKeywords := make(map[string]struct{})
	seenConcepts := make(map[string]struct{})
	itemPoints := 0.0

	for _, name := range names {
		item := items[name]
		itemPoints += item.Points

		labels := len(item.Keywords) + len(item.Concepts)
		if labels == 0 {
			continue
		}
		share := item.Points / float64(labels)

		for _, keyword := range item.Keywords {
			req.Rubric[keyword] += share
			if _, ok := seenKeywords[keyword]; !ok {
				seenKeywords[keyword] = struct{}{}
				req.Keywords = append(req.Keywords, keyword)
			}
		}
		for _, concept := range item.Concepts {
			req.Rubric[concept] += share
			if _, ok := seenConcepts[concept]; !ok {
				seenConcepts[concept] = struct{}{}
				req.Concepts = append(req.Concepts, concept)
			}
		}
	}

	if req.TotalPoints <= 0 {
		req.TotalPoints = itemPoints
	}

	return req
}

func (s *gradingService) cacheKey(req grading.Request) string {
	if s.cache == nil {
		return ""
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(append([]byte(s.cfg.ModelName+"\x00"), payload...))
	return "grader:grade:v1:" + hex.EncodeToString(sum[:])
}

func (s *gradingService) fetchCache(ctx context.Context, key string) (dto.GradingResult, bool) {
	if s.cache == nil || key == "" {
		return dto.GradingResult{}, false
	}
	payload, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read grade cache")
		}
		return dto.GradingResult{}, false
	}

	var result dto.GradingResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode grade cache")
		return dto.GradingResult{}, false
	}
	return result, true
}

func (s *gradingService) writeCache(ctx context.Context, key string, result dto.GradingResult) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode grade cache")
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cfg.CacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store grade cache")
	}
}
