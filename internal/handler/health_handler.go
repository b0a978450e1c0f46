package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/config"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Embedding   string    `json:"embedding_model"`
	LLM         string    `json:"llm_model"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config, embeddingModel, llmModel string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if llmModel == "" {
			llmModel = "simulated"
		}
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Embedding:   embeddingModel,
			LLM:         llmModel,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}

// Liveness answers the bare health probe.
func Liveness() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	}
}
