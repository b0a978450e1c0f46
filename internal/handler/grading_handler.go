package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/middleware"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/service"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/utils"
)

// GradingHandler exposes rubric grading.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the grading handler.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register binds the enveloped grading routes.
func (h *GradingHandler) Register(router fiber.Router, limiter fiber.Handler) {
	router.Post("/grade", limiter, h.grade)
	router.Post("/submissions/:id/grade", limiter, h.gradeSubmission)
}

// RegisterCompat binds POST /grade/, which answers with the bare result object.
func (h *GradingHandler) RegisterCompat(app fiber.Router, limiter fiber.Handler) {
	app.Post("/grade", limiter, h.gradeBare)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	var payload dto.GradingRequest
	if err := decodeJSON(c, &payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Grade(requestContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "response graded", result)
}

func (h *GradingHandler) gradeBare(c *fiber.Ctx) error {
	var payload dto.GradingRequest
	if err := decodeJSON(c, &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": err.Error()})
	}

	result, err := h.service.Grade(requestContext(c), payload)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": validationDetails(validationErrors)})
		}
		status, message := errorStatus(err)
		if status >= fiber.StatusInternalServerError {
			reqLogger := middleware.RequestLogger(c, h.logger)
			reqLogger.Error().Err(err).Msg("grading failed")
		}
		return c.Status(status).JSON(fiber.Map{"detail": message})
	}

	return c.JSON(result)
}

func (h *GradingHandler) gradeSubmission(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.GradeSubmission(requestContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission graded", result)
}
