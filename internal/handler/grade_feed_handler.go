package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/service"
)

const gradeFeedPingInterval = 30 * time.Second

// GradeFeedHandler streams grade events over a websocket.
type GradeFeedHandler struct {
	events service.GradeEventService
	logger zerolog.Logger
}

// NewGradeFeedHandler constructs the live feed handler.
func NewGradeFeedHandler(events service.GradeEventService, logger zerolog.Logger) *GradeFeedHandler {
	return &GradeFeedHandler{
		events: events,
		logger: logger.With().Str("component", "grade_feed_handler").Logger(),
	}
}

// Register binds GET /ws/grades. An optional student_id query narrows the feed.
func (h *GradeFeedHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws/grades", websocket.New(h.serve))
}

func (h *GradeFeedHandler) serve(conn *websocket.Conn) {
	studentID := strings.TrimSpace(conn.Query("student_id"))
	feed, cleanup := h.events.Subscribe(studentID)
	defer cleanup()

	logger := h.logger.With().Str("student_id", studentID).Logger()
	logger.Info().Msg("grade feed connected")
	defer logger.Info().Msg("grade feed disconnected")

	// The reader only exists to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(gradeFeedPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-feed:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("failed to write grade event")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
