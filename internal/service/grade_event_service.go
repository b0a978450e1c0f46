package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/observability"
)

const (
	gradeEventBufferSize = 16
	allStudentsTopic     = "*"
	seenEventCapacity    = 4096
	seenEventTTL         = 5 * time.Minute
)

// GradeEventPublisher announces freshly recorded grades.
type GradeEventPublisher interface {
	Publish(ctx context.Context, event dto.GradeEvent)
}

// GradeEventService fans grade events out to live feed subscribers on this and other replicas.
type GradeEventService interface {
	GradeEventPublisher
	Subscribe(studentID string) (<-chan dto.GradeEvent, func())
	Start(ctx context.Context)
}

type gradeEventService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	tracer       trace.Tracer
	broker       *gradeEventBroker
	nodeID       string
	seenMu       sync.Mutex
	seen         *lru.LRU[string, struct{}]
}

type gradeEventEnvelope struct {
	ID     string         `json:"id"`
	Source string         `json:"source"`
	Event  dto.GradeEvent `json:"event"`
	SentAt time.Time      `json:"sent_at"`
}

type gradeEventBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.GradeEvent]struct{}
}

// NewGradeEventService constructs the grade event fan-out. Either transport may be nil.
func NewGradeEventService(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) GradeEventService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":grades"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".grades"
	}

	return &gradeEventService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "grade_event_service").Logger(),
		tracer:       otel.Tracer("github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/service/grade_events"),
		broker: &gradeEventBroker{
			subscribers: make(map[string]map[chan dto.GradeEvent]struct{}),
		},
		nodeID: uuid.NewString(),
		seen:   lru.NewLRU[string, struct{}](seenEventCapacity, nil, seenEventTTL),
	}
}

func (s *gradeEventService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		s.consumeNATS(ctx)
	}
}

// Publish delivers locally first; remote transport failures are logged and otherwise ignored.
func (s *gradeEventService) Publish(ctx context.Context, event dto.GradeEvent) {
	spanCtx, span := s.tracer.Start(ctx, "grade_events.publish", trace.WithAttributes(
		attribute.String("grade.student_id", event.StudentID),
		attribute.String("grade.mode", event.Mode),
	))
	defer span.End()

	s.broker.broadcast(event)
	observability.GradeEvents().WithLabelValues("local").Inc()

	if err := s.publish(spanCtx, event); err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Msg("failed to publish grade event to broker")
	}
}

func (s *gradeEventService) Subscribe(studentID string) (<-chan dto.GradeEvent, func()) {
	topic := strings.TrimSpace(studentID)
	if topic == "" {
		topic = allStudentsTopic
	}

	channel := make(chan dto.GradeEvent, gradeEventBufferSize)
	s.broker.subscribe(topic, channel)
	observability.LiveFeedClients().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(topic, channel)
			observability.LiveFeedClients().Dec()
		})
	}

	return channel, cleanup
}

func (s *gradeEventService) publish(ctx context.Context, event dto.GradeEvent) error {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	// Both transports carry the same envelope id so receivers deliver it once.
	payload, err := json.Marshal(gradeEventEnvelope{
		ID:     uuid.NewString(),
		Source: s.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *gradeEventService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("grade event redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload), "redis")
	}
}

// consumeNATS uses a plain subscription: every replica must see every event.
func (s *gradeEventService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data, "nats")
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats grade subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain grade event nats subscription")
		}
	}()
}

func (s *gradeEventService) handleEvent(payload []byte, origin string) {
	var envelope gradeEventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid grade event payload")
		return
	}

	if envelope.Source == s.nodeID || s.alreadySeen(envelope.ID) {
		return
	}

	observability.GradeEvents().WithLabelValues(origin).Inc()
	s.broker.broadcast(envelope.Event)
}

func (s *gradeEventService) alreadySeen(id string) bool {
	if id == "" {
		return false
	}

	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	if s.seen.Contains(id) {
		return true
	}
	s.seen.Add(id, struct{}{})
	return false
}

func (b *gradeEventBroker) subscribe(topic string, ch chan dto.GradeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[topic]; !exists {
		b.subscribers[topic] = make(map[chan dto.GradeEvent]struct{})
	}
	b.subscribers[topic][ch] = struct{}{}
}

func (b *gradeEventBroker) unsubscribe(topic string, ch chan dto.GradeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[topic]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, topic)
		}
	}
}

// broadcast never blocks; slow subscribers miss events.
func (b *gradeEventBroker) broadcast(event dto.GradeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, topic := range []string{event.StudentID, allStudentsTopic} {
		for ch := range b.subscribers[topic] {
			select {
			case ch <- event:
			default:
			}
		}
	}
}
