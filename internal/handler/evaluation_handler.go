package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/service"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/utils"
)

// EvaluationHandler exposes LLM evaluation.
type EvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewEvaluationHandler constructs the evaluation handler.
func NewEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register binds the evaluation routes.
func (h *EvaluationHandler) Register(router fiber.Router, limiter fiber.Handler) {
	router.Post("/evaluate", limiter, h.evaluate)
	router.Post("/submissions/:id/evaluate", limiter, h.evaluateSubmission)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	var payload dto.EvaluationRequest
	if err := decodeJSON(c, &payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Evaluate(requestContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "answer evaluated", result)
}

func (h *EvaluationHandler) evaluateSubmission(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.EvaluateSubmission(requestContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission evaluated", result)
}
