package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newQuestion(id, subject string) models.Question {
	question := models.Question{ID: id, Subject: subject, Text: "Explain " + id, TotalPoints: 5}
	question.SetRubric(map[string]models.RubricItem{
		"core": {Description: "Core idea", Points: 3, Keywords: []string{"photosynthesis"}, Concepts: []string{"energy conversion"}},
	})
	return question
}

func TestQuestionRepositoryCRUD(t *testing.T) {
	repo := NewQuestionRepository(setupTestDB(t))
	ctx := context.Background()

	question := newQuestion("q1", "biology")
	require.NoError(t, repo.Create(ctx, &question))

	duplicate := newQuestion("q1", "biology")
	require.ErrorIs(t, repo.Create(ctx, &duplicate), ErrDuplicate)

	stored, err := repo.GetByID(ctx, "q1")
	require.NoError(t, err)
	require.Equal(t, "biology", stored.Subject)
	require.Equal(t, []string{"photosynthesis"}, stored.RubricItems()["core"].Keywords)

	stored.Topic = "plants"
	require.NoError(t, repo.Update(ctx, &stored))
	stored, err = repo.GetByID(ctx, "q1")
	require.NoError(t, err)
	require.Equal(t, "plants", stored.Topic)

	missing := newQuestion("nope", "biology")
	require.ErrorIs(t, repo.Update(ctx, &missing), gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete(ctx, "q1"))
	require.ErrorIs(t, repo.Delete(ctx, "q1"), gorm.ErrRecordNotFound)
	_, err = repo.GetByID(ctx, "q1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestQuestionRepositoryListAndBulkCreate(t *testing.T) {
	repo := NewQuestionRepository(setupTestDB(t))
	ctx := context.Background()

	existing := newQuestion("q1", "biology")
	require.NoError(t, repo.Create(ctx, &existing))

	imported, failed, err := repo.BulkCreate(ctx, []models.Question{
		newQuestion("q1", "biology"),
		newQuestion("q2", "physics"),
		newQuestion("q3", "biology"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, imported)
	require.Equal(t, []string{"q1"}, failed)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	biology, err := repo.List(ctx, "biology")
	require.NoError(t, err)
	require.Len(t, biology, 2)
}

func TestSubmissionRepositoryUniquePerStudentQuestion(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))
	ctx := context.Background()

	first := models.Submission{QuestionID: "q1", StudentID: "alice", AnswerText: "answer"}
	require.NoError(t, repo.Create(ctx, &first))
	require.NotZero(t, first.ID)

	second := models.Submission{QuestionID: "q1", StudentID: "alice", AnswerText: "again"}
	require.ErrorIs(t, repo.Create(ctx, &second), ErrDuplicate)

	other := models.Submission{QuestionID: "q1", StudentID: "bob", AnswerText: "answer"}
	require.NoError(t, repo.Create(ctx, &other))
}

func TestSubmissionRepositoryUpdateGradeAndFilters(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))
	ctx := context.Background()

	for _, s := range []models.Submission{
		{QuestionID: "q1", StudentID: "alice", AnswerText: "a"},
		{QuestionID: "q2", StudentID: "alice", AnswerText: "b"},
		{QuestionID: "q1", StudentID: "bob", AnswerText: "c"},
	} {
		submission := s
		require.NoError(t, repo.Create(ctx, &submission))
	}

	updated, err := repo.UpdateGrade(ctx, "alice", "q1", GradeUpdate{Score: 4.5, Feedback: "Score: 4.50/5.00\n\n", EvaluationMode: models.EvaluationModeRubric})
	require.NoError(t, err)
	require.True(t, updated.Graded)
	require.NotNil(t, updated.Score)
	require.InDelta(t, 4.5, *updated.Score, 1e-9)
	require.NotNil(t, updated.GradedAt)

	_, err = repo.UpdateGrade(ctx, "carol", "q1", GradeUpdate{Score: 1})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	ungraded := false
	pending, err := repo.List(ctx, SubmissionFilter{Graded: &ungraded})
	require.NoError(t, err)
	require.Len(t, pending, 2)

	alice, err := repo.List(ctx, SubmissionFilter{StudentID: "alice"})
	require.NoError(t, err)
	require.Len(t, alice, 2)

	stored, err := repo.GetByStudentAndQuestion(ctx, "alice", "q1")
	require.NoError(t, err)
	require.Equal(t, models.EvaluationModeRubric, stored.EvaluationMode)
}

func TestOverrideAndActivityRepositories(t *testing.T) {
	db := setupTestDB(t)
	overrides := NewOverrideRepository(db)
	activity := NewActivityLogRepository(db)
	ctx := context.Background()

	require.NoError(t, overrides.Create(ctx, &models.GradingOverride{QuestionID: "q1", StudentID: "alice", OriginalScore: 2, OverrideScore: 4, Reason: "partial credit", TeacherID: "t1"}))
	require.NoError(t, overrides.Create(ctx, &models.GradingOverride{QuestionID: "q2", StudentID: "alice", OriginalScore: 1, OverrideScore: 2, Reason: "typo", TeacherID: "t1"}))

	items, err := overrides.List(ctx, OverrideFilter{QuestionID: "q1"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "partial credit", items[0].Reason)

	items, err = overrides.List(ctx, OverrideFilter{StudentID: "alice"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, activity.Create(ctx, &models.ActivityLog{ActorID: "t1", ActorRole: "teacher", Action: "override", EntityType: "submission", EntityID: "1"}))
	require.NoError(t, activity.Create(ctx, &models.ActivityLog{ActorID: "system", ActorRole: "system", Action: "graded", EntityType: "submission", EntityID: "2"}))

	entries, total, err := activity.List(ctx, ActivityLogFilter{Action: "override"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "t1", entries[0].ActorID)
}
