package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/grading"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/middleware"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/observability"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/service"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/utils"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/embedding"
)

// errBodyRequired is returned by decodeJSON for an empty body.
var errBodyRequired = errors.New("request body is required")

// FieldViolation describes one failed validation rule.
type FieldViolation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// decodeJSON strictly decodes the request body, turning type mismatches into readable messages.
func decodeJSON(c *fiber.Ctx, target interface{}) error {
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return errBodyRequired
	}

	if err := json.Unmarshal(body, target); err != nil {
		var typeErr *json.UnmarshalTypeError
		var syntaxErr *json.SyntaxError
		switch {
		case errors.As(err, &typeErr):
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return fmt.Errorf("invalid value for %s: expected %s but got %s", field, typeErr.Type.String(), typeErr.Value)
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("malformed JSON at offset %d", syntaxErr.Offset)
		default:
			return fmt.Errorf("invalid request body: %v", err)
		}
	}
	return nil
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	if value == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func parseQueryBool(c *fiber.Ctx, key string) (*bool, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	return &parsed, nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}

// requestContext carries the correlation id into service calls.
func requestContext(c *fiber.Ctx) context.Context {
	return observability.WithCorrelationID(c.UserContext(), middleware.RequestCorrelationID(c))
}

// actorFromRequest identifies the caller for the audit trail.
func actorFromRequest(c *fiber.Ctx) string {
	for _, header := range []string{"X-Teacher-ID", "X-Client-ID"} {
		if value := strings.TrimSpace(c.Get(header)); value != "" {
			return value
		}
	}
	return ""
}

func validationDetails(errs validator.ValidationErrors) []FieldViolation {
	details := make([]FieldViolation, 0, len(errs))
	for _, fieldErr := range errs {
		details = append(details, FieldViolation{
			Field: fieldErr.Namespace(),
			Rule:  fieldErr.Tag(),
			Param: fieldErr.Param(),
		})
	}
	return details
}

// errorStatus maps service errors onto HTTP status codes and client-facing messages.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errBodyRequired):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, grading.ErrInvalidRequest):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, embedding.ErrUnavailable):
		return fiber.StatusServiceUnavailable, "similarity backend unavailable"
	case errors.Is(err, service.ErrQuestionNotFound):
		return fiber.StatusNotFound, "question not found"
	case errors.Is(err, service.ErrSubmissionNotFound):
		return fiber.StatusNotFound, "submission not found"
	case errors.Is(err, service.ErrNoStudentProgress):
		return fiber.StatusNotFound, "no progress recorded for student"
	case errors.Is(err, service.ErrDuplicateQuestion):
		return fiber.StatusConflict, "question already exists"
	case errors.Is(err, service.ErrDuplicateSubmission):
		return fiber.StatusConflict, "submission already exists for this student and question"
	case errors.Is(err, service.ErrEmptyAnswer):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrImportInvalid):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrImportUnsupportedType):
		return fiber.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, service.ErrImportTooLarge):
		return fiber.StatusRequestEntityTooLarge, err.Error()
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

// handleError writes the enveloped error response for err.
func handleError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(validationErrors))
	}

	status, message := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		reqLogger := middleware.RequestLogger(c, logger)
		reqLogger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	return utils.SendError(c, status, message)
}
