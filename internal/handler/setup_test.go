package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/config"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/database"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/grading"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/handler"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/middleware"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/repository"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/router"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/service"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/ai"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/embedding"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/nlp"
)

type testApp struct {
	app    *fiber.App
	db     *gorm.DB
	events service.GradeEventService
}

func setupApp(t *testing.T) testApp {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	cfg := config.Config{AppName: "Test Grader", AppEnv: "test", GradeRateLimitPerMin: 1000}

	embeddings := embedding.NewService(embedding.NewHashEmbedder(0), embedding.ServiceConfig{Logger: log})
	engine := grading.NewEngine(nlp.NewNormalizer(nlp.IdentityLemmatizer{}), embeddings, 2, log)
	evaluator := ai.NewEvaluator(nil, ai.EvaluatorConfig{Logger: log})

	questionRepo := repository.NewQuestionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, validate, log)
	progressService := service.NewProgressService(submissionRepo, nil, 0, log)
	events := service.NewGradeEventService(nil, nil, "", log)
	recorder := service.NewGradeRecorder(submissionRepo, progressService, events, activityService, log)

	gradingService := service.NewGradingService(engine, questionRepo, submissionRepo, recorder, nil, validate, service.GradingServiceConfig{
		ModelName: embeddings.ModelName(),
	}, log)
	evaluationService := service.NewEvaluationService(evaluator, questionRepo, submissionRepo, recorder, validate, log)
	questionService := service.NewQuestionService(questionRepo, activityService, validate, 0, log)
	submissionService := service.NewSubmissionService(service.SubmissionServiceDeps{
		Submissions: submissionRepo,
		Questions:   questionRepo,
		Overrides:   overrideRepo,
		Recorder:    recorder,
		Progress:    progressService,
		Activity:    activityService,
	}, validate, log)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &log})
	router.Register(app, cfg, router.Dependencies{
		GradingHandler:    handler.NewGradingHandler(gradingService, log),
		EvaluationHandler: handler.NewEvaluationHandler(evaluationService, log),
		QuestionHandler:   handler.NewQuestionHandler(questionService, log),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, log),
		ProgressHandler:   handler.NewProgressHandler(progressService, log),
		ActivityHandler:   handler.NewActivityHandler(activityService, log),
		GradeFeedHandler:  handler.NewGradeFeedHandler(events, log),
		EmbeddingModel:    embeddings.ModelName(),
		LLMModel:          evaluator.Model(),
	})

	return testApp{app: app, db: db, events: events}
}

func (a testApp) do(t *testing.T, method, path string, body interface{}, headers ...string) *http.Response {
	t.Helper()

	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body
}

func decodeEnvelope(t *testing.T, resp *http.Response, data interface{}) envelope {
	t.Helper()

	var payload envelope
	require.NoError(t, json.Unmarshal(readBody(t, resp), &payload))
	if data != nil && len(payload.Data) > 0 {
		require.NoError(t, json.Unmarshal(payload.Data, data))
	}
	return payload
}

func float64Ptr(v float64) *float64 {
	return &v
}
