package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/observability"
)

const (
	// HeaderCorrelationID is read from and echoed on every response.
	HeaderCorrelationID = "X-Correlation-ID"

	correlationLocal       = "correlation_id"
	maxCorrelationIDLength = 128
)

// Correlation tags each request with an id that follows it into service calls, the
// audit trail and request logs. Callers may supply one; oversized ids are replaced.
func Correlation() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := incomingCorrelationID(c)

		c.Locals(correlationLocal, id)
		c.Set(HeaderCorrelationID, id)
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), id))

		return c.Next()
	}
}

func incomingCorrelationID(c *fiber.Ctx) string {
	for _, header := range []string{HeaderCorrelationID, fiber.HeaderXRequestID} {
		id := strings.TrimSpace(c.Get(header))
		if id != "" && len(id) <= maxCorrelationIDLength {
			return id
		}
	}
	return uuid.NewString()
}

// RequestCorrelationID returns the id bound to the active request.
func RequestCorrelationID(c *fiber.Ctx) string {
	if id, ok := c.Locals(correlationLocal).(string); ok {
		return id
	}
	return observability.CorrelationID(c.UserContext())
}

// RequestLogger derives a logger carrying the request's correlation id.
func RequestLogger(c *fiber.Ctx, base zerolog.Logger) zerolog.Logger {
	id := RequestCorrelationID(c)
	if id == "" {
		return base
	}
	return base.With().Str("correlation_id", id).Logger()
}
