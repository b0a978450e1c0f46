package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/service"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/utils"
)

// QuestionHandler manages the question bank.
type QuestionHandler struct {
	service service.QuestionService
	logger  zerolog.Logger
}

// NewQuestionHandler constructs the question handler.
func NewQuestionHandler(service service.QuestionService, logger zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		service: service,
		logger:  logger.With().Str("component", "question_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *QuestionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Post("/import", h.importQuestions)
	router.Get("/export", h.export)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Put("/:id/rubric", h.updateRubric)
}

func (h *QuestionHandler) list(c *fiber.Ctx) error {
	questions, err := h.service.List(requestContext(c), c.Query("subject"))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.OK(c, questions, "questions retrieved", fiber.Map{"count": len(questions)})
}

func (h *QuestionHandler) get(c *fiber.Ctx) error {
	question, err := h.service.Get(requestContext(c), c.Params("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "question retrieved", question)
}

func (h *QuestionHandler) create(c *fiber.Ctx) error {
	var payload dto.QuestionCreateRequest
	if err := decodeJSON(c, &payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	question, err := h.service.Create(requestContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", question)
}

func (h *QuestionHandler) update(c *fiber.Ctx) error {
	var payload dto.QuestionUpdateRequest
	if err := decodeJSON(c, &payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	question, err := h.service.Update(requestContext(c), c.Params("id"), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "question updated", question)
}

func (h *QuestionHandler) updateRubric(c *fiber.Ctx) error {
	var payload dto.RubricUpdateRequest
	if err := decodeJSON(c, &payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	question, err := h.service.UpdateRubric(requestContext(c), c.Params("id"), payload)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "rubric updated", question)
}

func (h *QuestionHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(requestContext(c), c.Params("id")); err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "question deleted", nil)
}

// importQuestions accepts a multipart "file" upload or a JSON body.
func (h *QuestionHandler) importQuestions(c *fiber.Ctx) error {
	var (
		result dto.QuestionImportResponse
		err    error
	)

	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		file, fileErr := c.FormFile("file")
		if fileErr != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "file is required")
		}
		result, err = h.service.ImportFile(requestContext(c), file)
	} else {
		var payload dto.QuestionImportRequest
		if decodeErr := decodeJSON(c, &payload); decodeErr != nil {
			return utils.SendError(c, fiber.StatusBadRequest, decodeErr.Error())
		}
		result, err = h.service.Import(requestContext(c), payload)
	}
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "questions imported", result)
}

func (h *QuestionHandler) export(c *fiber.Ctx) error {
	export, err := h.service.Export(requestContext(c), c.Query("subject"))
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "questions exported", export)
}
