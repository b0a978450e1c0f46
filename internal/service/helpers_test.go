package service

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/database"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/grading"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/nlp"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func newTestEngine(similarity grading.Similarity) *grading.Engine {
	return grading.NewEngine(nlp.NewNormalizer(nlp.IdentityLemmatizer{}), similarity, 2, testLogger())
}

// constantSimilarity returns the same similarity for every pair and counts calls.
type constantSimilarity struct {
	value float64
	calls atomic.Int64
}

func (c *constantSimilarity) Similarity(ctx context.Context, a, b string) (float64, error) {
	c.calls.Add(1)
	return c.value, nil
}

type stubGenerator struct {
	reply string
	err   error
}

func (g stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.reply, g.err
}

func (g stubGenerator) Name() string {
	return "stub/model"
}

type capturedEvents struct {
	mu     sync.Mutex
	events []dto.GradeEvent
}

func (c *capturedEvents) Publish(ctx context.Context, event dto.GradeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capturedEvents) all() []dto.GradeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]dto.GradeEvent(nil), c.events...)
}

type capturedInvalidations struct {
	students []string
}

func (c *capturedInvalidations) Invalidate(ctx context.Context, studentID string) {
	c.students = append(c.students, studentID)
}

func seedQuestion(t *testing.T, db *gorm.DB, id string, rubric map[string]models.RubricItem, totalPoints float64) models.Question {
	t.Helper()

	question := models.Question{
		ID:              id,
		Subject:         "biology",
		Topic:           "plants",
		Text:            "Explain photosynthesis.",
		ExpectedAnswer:  "Plants convert light into chemical energy using chlorophyll.",
		GradingCriteria: "10",
		TotalPoints:     totalPoints,
	}
	question.SetRubric(rubric)
	require.NoError(t, db.Create(&question).Error)
	return question
}

func seedSubmission(t *testing.T, db *gorm.DB, questionID, studentID, answer string) models.Submission {
	t.Helper()

	submission := models.Submission{QuestionID: questionID, StudentID: studentID, AnswerText: answer}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func newUploadedFile(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func float64Ptr(v float64) *float64 {
	return &v
}

func stringPtr(v string) *string {
	return &v
}
