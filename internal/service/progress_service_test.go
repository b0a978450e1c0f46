package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/repository"
)

func TestProgressServiceComputesAverageAndImprovementAreas(t *testing.T) {
	db := newTestDB(t)
	submissions := repository.NewSubmissionRepository(db)
	svc := NewProgressService(submissions, nil, time.Minute, testLogger())

	seedSubmission(t, db, "q-1", "student-1", "a")
	seedSubmission(t, db, "q-2", "student-1", "b")
	seedSubmission(t, db, "q-3", "student-1", "c")

	ctx := context.Background()
	_, err := submissions.UpdateGrade(ctx, "student-1", "q-1", repository.GradeUpdate{Score: 2, EvaluationMode: "manual"})
	require.NoError(t, err)
	_, err = submissions.UpdateGrade(ctx, "student-1", "q-2", repository.GradeUpdate{Score: 8, EvaluationMode: "manual"})
	require.NoError(t, err)

	progress, err := svc.Progress(ctx, "student-1")
	require.NoError(t, err)
	require.Equal(t, []string{"q-1", "q-2"}, progress.CompletedQuestions)
	require.InDelta(t, 5.0, progress.AverageScore, 1e-9)
	require.Equal(t, []string{"q-1"}, progress.ImprovementAreas)

	summary, err := svc.Summary(ctx, "student-1")
	require.NoError(t, err)
	require.Equal(t, 3, summary.TotalSubmissions)
	require.Equal(t, 2, summary.GradedSubmissions)
	require.Equal(t, 2, summary.CompletedQuestions)
}

func TestProgressServiceCountsGradedWorkWithoutScore(t *testing.T) {
	db := newTestDB(t)
	submissions := repository.NewSubmissionRepository(db)
	svc := NewProgressService(submissions, nil, time.Minute, testLogger())

	seedSubmission(t, db, "q-1", "student-3", "a")
	unscored := seedSubmission(t, db, "q-2", "student-3", "b")
	require.NoError(t, db.Model(&unscored).Update("graded", true).Error)

	ctx := context.Background()
	_, err := submissions.UpdateGrade(ctx, "student-3", "q-1", repository.GradeUpdate{Score: 6, EvaluationMode: "manual"})
	require.NoError(t, err)

	progress, err := svc.Progress(ctx, "student-3")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"q-1", "q-2"}, progress.CompletedQuestions)
	require.InDelta(t, 6.0, progress.AverageScore, 1e-9)
	require.Empty(t, progress.ImprovementAreas)

	summary, err := svc.Summary(ctx, "student-3")
	require.NoError(t, err)
	require.Equal(t, 2, summary.GradedSubmissions)
	require.Equal(t, 2, summary.CompletedQuestions)
}

func TestProgressServiceWithoutGradedWork(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(repository.NewSubmissionRepository(db), nil, time.Minute, testLogger())

	_, err := svc.Progress(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrNoStudentProgress)

	seedSubmission(t, db, "q-1", "student-2", "pending")
	progress, err := svc.Progress(context.Background(), "student-2")
	require.NoError(t, err)
	require.Empty(t, progress.CompletedQuestions)
	require.Zero(t, progress.AverageScore)
	require.Empty(t, progress.ImprovementAreas)
}

func TestProgressServiceCacheInvalidation(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	db := newTestDB(t)
	submissions := repository.NewSubmissionRepository(db)
	svc := NewProgressService(submissions, redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute, testLogger())
	ctx := context.Background()

	seedSubmission(t, db, "q-1", "student-3", "a")
	_, err = submissions.UpdateGrade(ctx, "student-3", "q-1", repository.GradeUpdate{Score: 4, EvaluationMode: "manual"})
	require.NoError(t, err)

	first, err := svc.Progress(ctx, "student-3")
	require.NoError(t, err)
	require.InDelta(t, 4.0, first.AverageScore, 1e-9)
	require.True(t, mr.Exists(progressCacheKey("student-3")))

	_, err = submissions.UpdateGrade(ctx, "student-3", "q-1", repository.GradeUpdate{Score: 9, EvaluationMode: "manual"})
	require.NoError(t, err)

	stale, err := svc.Progress(ctx, "student-3")
	require.NoError(t, err)
	require.InDelta(t, 4.0, stale.AverageScore, 1e-9)

	svc.Invalidate(ctx, "student-3")
	require.False(t, mr.Exists(progressCacheKey("student-3")))

	fresh, err := svc.Progress(ctx, "student-3")
	require.NoError(t, err)
	require.InDelta(t, 9.0, fresh.AverageScore, 1e-9)
}
