package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/repository"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/ai"
)

func newEvaluationFixture(t *testing.T, generator ai.Generator) (EvaluationService, repository.SubmissionRepository, models.Submission, *capturedEvents) {
	t.Helper()

	db := newTestDB(t)
	questions := repository.NewQuestionRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	events := &capturedEvents{}
	recorder := NewGradeRecorder(submissions, nil, events, nil, testLogger())

	seedQuestion(t, db, "q-eval", nil, 10)
	submission := seedSubmission(t, db, "q-eval", "student-7", "Plants use light and chlorophyll to make glucose.")

	evaluator := ai.NewEvaluator(generator, ai.EvaluatorConfig{Logger: testLogger()})
	svc := NewEvaluationService(evaluator, questions, submissions, recorder, newTestValidator(), testLogger())
	return svc, submissions, submission, events
}

func TestEvaluationServiceEvaluateRequiresAnswer(t *testing.T) {
	svc := NewEvaluationService(ai.NewEvaluator(nil, ai.EvaluatorConfig{Logger: testLogger()}), nil, nil, nil, newTestValidator(), testLogger())

	_, err := svc.Evaluate(context.Background(), dto.EvaluationRequest{Question: "What is osmosis?"})
	require.Error(t, err)
}

func TestEvaluationServiceEvaluateSimulatesWithoutGenerator(t *testing.T) {
	svc := NewEvaluationService(ai.NewEvaluator(nil, ai.EvaluatorConfig{Logger: testLogger()}), nil, nil, nil, newTestValidator(), testLogger())

	resp, err := svc.Evaluate(context.Background(), dto.EvaluationRequest{
		Question:      "What is osmosis?",
		StudentAnswer: "Water moves across a membrane.",
	})
	require.NoError(t, err)
	require.Equal(t, ai.ModeSimulated, resp.Mode)
	require.Equal(t, 100, resp.MaxScore)
	require.Equal(t, 30, resp.Score)
	require.False(t, resp.Degraded)
}

func TestEvaluationServiceEvaluateSubmissionStoresRemoteScore(t *testing.T) {
	svc, submissions, submission, events := newEvaluationFixture(t, stubGenerator{reply: "EVALUATION: Clear and accurate.\nSCORE: 8"})

	resp, err := svc.EvaluateSubmission(context.Background(), submission.ID)
	require.NoError(t, err)
	require.NotNil(t, resp.Evaluation)
	require.Equal(t, ai.ModeAPI, resp.Evaluation.Mode)
	require.Equal(t, 8, resp.Evaluation.Score)
	require.Equal(t, 10, resp.Evaluation.MaxScore)

	stored, err := submissions.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.True(t, stored.Graded)
	require.Equal(t, models.EvaluationModeAPI, stored.EvaluationMode)
	require.NotNil(t, stored.Score)
	require.InDelta(t, 8.0, *stored.Score, 1e-9)
	require.Equal(t, "Clear and accurate.", stored.Feedback)
	require.Len(t, events.all(), 1)
}

func TestEvaluationServiceEvaluateSubmissionFallsBackOnRemoteError(t *testing.T) {
	svc, submissions, submission, _ := newEvaluationFixture(t, stubGenerator{err: errors.New("quota exceeded")})

	resp, err := svc.EvaluateSubmission(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, ai.ModeSimulated, resp.Evaluation.Mode)
	require.Contains(t, resp.Evaluation.FallbackReason, "quota exceeded")

	stored, err := submissions.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.EvaluationModeSimulated, stored.EvaluationMode)
}

func TestEvaluationServiceEvaluateSubmissionNotFound(t *testing.T) {
	svc, _, _, _ := newEvaluationFixture(t, nil)

	_, err := svc.EvaluateSubmission(context.Background(), 404)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}
