package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/service"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/utils"
)

// ProgressHandler serves per-student progress.
type ProgressHandler struct {
	service service.ProgressService
	logger  zerolog.Logger
}

// NewProgressHandler constructs the progress handler.
func NewProgressHandler(service service.ProgressService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		logger:  logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register binds the student routes.
func (h *ProgressHandler) Register(router fiber.Router) {
	router.Get("/:id/progress", h.progress)
	router.Get("/:id/summary", h.summary)
}

func (h *ProgressHandler) progress(c *fiber.Ctx) error {
	progress, err := h.service.Progress(requestContext(c), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "student progress", progress)
}

func (h *ProgressHandler) summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(requestContext(c), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "performance summary", summary)
}
