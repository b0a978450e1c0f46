package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/repository"
)

func newQuestionService(t *testing.T) QuestionService {
	t.Helper()
	db := newTestDB(t)
	activity := NewActivityService(repository.NewActivityLogRepository(db), newTestValidator(), testLogger())
	return NewQuestionService(repository.NewQuestionRepository(db), activity, newTestValidator(), 0, testLogger())
}

func TestQuestionServiceCreateSanitizesText(t *testing.T) {
	svc := newQuestionService(t)

	created, err := svc.Create(context.Background(), dto.QuestionCreateRequest{
		Subject: "math",
		Text:    "<script>alert(1)</script><b>Is 2 < 3?</b>",
		Rubric: map[string]dto.RubricItemRequest{
			"comparison": {Points: 2, Keywords: []string{"<i>less</i>", "  "}},
		},
		TotalPoints: 2,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Is 2 < 3?", created.Text)
	require.Equal(t, []string{"less"}, created.Rubric["comparison"].Keywords)
}

func TestQuestionServiceCreateDuplicate(t *testing.T) {
	svc := newQuestionService(t)
	payload := dto.QuestionCreateRequest{ID: "q-1", Subject: "math", Text: "What is a prime?"}

	_, err := svc.Create(context.Background(), payload)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), payload)
	require.ErrorIs(t, err, ErrDuplicateQuestion)
}

func TestQuestionServiceUpdateRubricMerges(t *testing.T) {
	svc := newQuestionService(t)
	_, err := svc.Create(context.Background(), dto.QuestionCreateRequest{
		ID:      "q-merge",
		Subject: "biology",
		Text:    "Describe the cell.",
		Rubric: map[string]dto.RubricItemRequest{
			"membrane": {Points: 1, Keywords: []string{"membrane"}},
			"nucleus":  {Points: 1, Keywords: []string{"nucleus"}},
		},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateRubric(context.Background(), "q-merge", dto.RubricUpdateRequest{
		Items: map[string]dto.RubricItemRequest{
			"nucleus":       {Points: 3, Keywords: []string{"nucleus", "dna"}},
			"mitochondrion": {Points: 2, Concepts: []string{"energy production"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Rubric, 3)
	require.Equal(t, 1.0, updated.Rubric["membrane"].Points)
	require.Equal(t, 3.0, updated.Rubric["nucleus"].Points)
	require.Equal(t, []string{"energy production"}, updated.Rubric["mitochondrion"].Concepts)

	_, err = svc.UpdateRubric(context.Background(), "missing", dto.RubricUpdateRequest{
		Items: map[string]dto.RubricItemRequest{"x": {Points: 1}},
	})
	require.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestQuestionServiceUpdatePartial(t *testing.T) {
	svc := newQuestionService(t)
	_, err := svc.Create(context.Background(), dto.QuestionCreateRequest{ID: "q-upd", Subject: "history", Text: "Who?", TotalPoints: 5})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), "q-upd", dto.QuestionUpdateRequest{
		Topic:       stringPtr("revolutions"),
		TotalPoints: float64Ptr(8),
	})
	require.NoError(t, err)
	require.Equal(t, "history", updated.Subject)
	require.Equal(t, "revolutions", updated.Topic)
	require.Equal(t, 8.0, updated.TotalPoints)
}

func TestQuestionServiceDelete(t *testing.T) {
	svc := newQuestionService(t)
	_, err := svc.Create(context.Background(), dto.QuestionCreateRequest{ID: "q-del", Subject: "math", Text: "2+2?"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "q-del"))
	require.ErrorIs(t, svc.Delete(context.Background(), "q-del"), ErrQuestionNotFound)

	_, err = svc.Get(context.Background(), "q-del")
	require.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestQuestionServiceImportReportsExistingIDs(t *testing.T) {
	svc := newQuestionService(t)
	_, err := svc.Create(context.Background(), dto.QuestionCreateRequest{ID: "q-a", Subject: "math", Text: "A"})
	require.NoError(t, err)

	result, err := svc.Import(context.Background(), dto.QuestionImportRequest{Questions: []dto.QuestionCreateRequest{
		{ID: "q-a", Subject: "math", Text: "A again"},
		{ID: "q-b", Subject: "math", Text: "B"},
		{Subject: "math", Text: "generated id"},
	}})
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)
	require.Equal(t, []string{"q-a"}, result.FailedIDs)

	listed, err := svc.List(context.Background(), "math")
	require.NoError(t, err)
	require.Len(t, listed, 3)
}

func TestQuestionServiceImportFileAcceptsArray(t *testing.T) {
	svc := newQuestionService(t)
	content, err := json.Marshal([]dto.QuestionCreateRequest{
		{ID: "f-1", Subject: "physics", Text: "What is force?", TotalPoints: 4},
		{ID: "f-2", Subject: "physics", Text: "What is mass?", TotalPoints: 4},
	})
	require.NoError(t, err)

	result, err := svc.ImportFile(context.Background(), newUploadedFile(t, "questions.json", content))
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)
	require.Empty(t, result.FailedIDs)
}

func TestQuestionServiceImportFileRejectsBinary(t *testing.T) {
	svc := newQuestionService(t)
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

	_, err := svc.ImportFile(context.Background(), newUploadedFile(t, "questions.json", png))
	require.ErrorIs(t, err, ErrImportUnsupportedType)
}

func TestQuestionServiceExportRoundTrips(t *testing.T) {
	svc := newQuestionService(t)
	_, err := svc.Create(context.Background(), dto.QuestionCreateRequest{
		ID:      "q-exp",
		Subject: "chemistry",
		Text:    "Define a mole.",
		Rubric: map[string]dto.RubricItemRequest{
			"definition": {Points: 2, Keywords: []string{"avogadro"}},
		},
		TotalPoints: 2,
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), dto.QuestionCreateRequest{ID: "q-other", Subject: "math", Text: "Other"})
	require.NoError(t, err)

	exported, err := svc.Export(context.Background(), "chemistry")
	require.NoError(t, err)
	require.Len(t, exported.Questions, 1)
	require.Equal(t, "q-exp", exported.Questions[0].ID)
	require.Equal(t, []string{"avogadro"}, exported.Questions[0].Rubric["definition"].Keywords)

	require.NoError(t, svc.Delete(context.Background(), "q-exp"))
	result, err := svc.Import(context.Background(), exported)
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)
}
