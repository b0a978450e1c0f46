package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/observability"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/repository"
)

// ErrNoStudentProgress indicates the student has not submitted anything yet.
var ErrNoStudentProgress = errors.New("no submissions found for student")

// ProgressService reports per-student progress derived from graded submissions.
type ProgressService interface {
	ProgressInvalidator
	Progress(ctx context.Context, studentID string) (dto.StudentProgressResponse, error)
	Summary(ctx context.Context, studentID string) (dto.PerformanceSummaryResponse, error)
}

type progressSnapshot struct {
	Progress dto.StudentProgressResponse    `json:"progress"`
	Summary  dto.PerformanceSummaryResponse `json:"summary"`
}

type progressService struct {
	submissions repository.SubmissionRepository
	cache       *redis.Client
	ttl         time.Duration
	logger      zerolog.Logger
}

// NewProgressService constructs the progress service. The cache is optional.
func NewProgressService(submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ProgressService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &progressService{
		submissions: submissions,
		cache:       cache,
		ttl:         ttl,
		logger:      logger.With().Str("component", "progress_service").Logger(),
	}
}

func (s *progressService) Progress(ctx context.Context, studentID string) (dto.StudentProgressResponse, error) {
	snapshot, err := s.snapshot(ctx, studentID)
	if err != nil {
		return dto.StudentProgressResponse{}, err
	}
	return snapshot.Progress, nil
}

func (s *progressService) Summary(ctx context.Context, studentID string) (dto.PerformanceSummaryResponse, error) {
	snapshot, err := s.snapshot(ctx, studentID)
	if err != nil {
		return dto.PerformanceSummaryResponse{}, err
	}
	return snapshot.Summary, nil
}

func (s *progressService) Invalidate(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, progressCacheKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("student_id", studentID).Msg("failed to invalidate progress cache")
	}
}

func (s *progressService) snapshot(ctx context.Context, studentID string) (progressSnapshot, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return progressSnapshot{}, ErrNoStudentProgress
	}

	if cached, ok := s.fetchCache(ctx, studentID); ok {
		observability.ProgressCacheLookups().WithLabelValues("hit").Inc()
		return cached, nil
	}

	snapshot, err := s.compute(ctx, studentID)
	if err != nil {
		return progressSnapshot{}, err
	}

	if s.cache != nil {
		observability.ProgressCacheLookups().WithLabelValues("miss").Inc()
		s.writeCache(ctx, studentID, snapshot)
	}

	return snapshot, nil
}

// compute lists every graded submission as completed. The average covers graded submissions
// that carry a score; improvement areas are those scored strictly below it.
func (s *progressService) compute(ctx context.Context, studentID string) (progressSnapshot, error) {
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: studentID})
	if err != nil {
		return progressSnapshot{}, err
	}
	if len(submissions) == 0 {
		return progressSnapshot{}, ErrNoStudentProgress
	}

	completed := make([]string, 0, len(submissions))
	scored := make([]models.Submission, 0, len(submissions))
	sum := 0.0

	for _, submission := range submissions {
		if !submission.IsGraded() {
			continue
		}
		completed = append(completed, submission.QuestionID)
		if submission.Score == nil {
			continue
		}
		scored = append(scored, submission)
		sum += *submission.Score
	}

	average := 0.0
	if len(scored) > 0 {
		average = sum / float64(len(scored))
	}

	areas := make([]string, 0)
	for _, submission := range scored {
		if *submission.Score < average {
			areas = append(areas, submission.QuestionID)
		}
	}

	return progressSnapshot{
		Progress: dto.StudentProgressResponse{
			StudentID:          studentID,
			CompletedQuestions: completed,
			AverageScore:       average,
			ImprovementAreas:   areas,
		},
		Summary: dto.PerformanceSummaryResponse{
			StudentID:          studentID,
			TotalSubmissions:   len(submissions),
			GradedSubmissions:  len(completed),
			AverageScore:       average,
			CompletedQuestions: len(completed),
			ImprovementAreas:   areas,
		},
	}, nil
}

func (s *progressService) fetchCache(ctx context.Context, studentID string) (progressSnapshot, bool) {
	if s.cache == nil {
		return progressSnapshot{}, false
	}
	payload, err := s.cache.Get(ctx, progressCacheKey(studentID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read progress cache")
		}
		return progressSnapshot{}, false
	}

	var snapshot progressSnapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode progress cache")
		return progressSnapshot{}, false
	}
	return snapshot, true
}

func (s *progressService) writeCache(ctx context.Context, studentID string, snapshot progressSnapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode progress cache")
		return
	}
	if err := s.cache.Set(ctx, progressCacheKey(studentID), payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store progress cache")
	}
}

func progressCacheKey(studentID string) string {
	return "grader:progress:v1:" + studentID
}
