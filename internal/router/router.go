package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/config"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/handler"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/middleware"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/observability"
)

// Dependencies groups router dependencies for registration. Nil handlers are skipped.
type Dependencies struct {
	GradingHandler    *handler.GradingHandler
	EvaluationHandler *handler.EvaluationHandler
	QuestionHandler   *handler.QuestionHandler
	SubmissionHandler *handler.SubmissionHandler
	ProgressHandler   *handler.ProgressHandler
	ActivityHandler   *handler.ActivityHandler
	GradeFeedHandler  *handler.GradeFeedHandler
	EmbeddingModel    string
	LLMModel          string
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/health", handler.Liveness())
	app.Get("/metrics", observability.MetricsHandler())

	limiter := middleware.RateLimit("grade", cfg.GradeRateLimitPerMin, time.Minute)

	if deps.GradingHandler != nil {
		deps.GradingHandler.RegisterCompat(app, limiter)
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.EmbeddingModel, deps.LLMModel))

	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(api, limiter)
	}

	if deps.EvaluationHandler != nil {
		deps.EvaluationHandler.Register(api, limiter)
	}

	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(api.Group("/questions"))
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions"))
	}

	if deps.ProgressHandler != nil {
		deps.ProgressHandler.Register(api.Group("/students"))
	}

	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/activity"))
	}

	if deps.GradeFeedHandler != nil {
		deps.GradeFeedHandler.Register(api)
	}
}
