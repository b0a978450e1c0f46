package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/utils"
)

// RateLimit creates a per-client rate limiter for the expensive grading routes.
// Clients identify themselves with X-Client-ID; otherwise the remote IP is used.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			clientID := strings.TrimSpace(c.Get("X-Client-ID"))
			if clientID == "" {
				clientID = c.IP()
			}
			return fmt.Sprintf("%s:%s", identifier, clientID)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "rate limit exceeded, retry later")
		},
	})
}
