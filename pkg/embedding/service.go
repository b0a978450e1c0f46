package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/nlp"
)

var (
	embedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grader",
		Subsystem: "embedding",
		Name:      "request_duration_seconds",
		Help:      "Duration of embedding backend requests",
	}, []string{"model"})

	embedCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grader",
		Subsystem: "embedding",
		Name:      "cache_hits_total",
		Help:      "Number of embeddings served from the in-memory cache",
	}, []string{"model"})

	embedFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grader",
		Subsystem: "embedding",
		Name:      "failures_total",
		Help:      "Number of failed embedding backend requests",
	}, []string{"model"})
)

// ServiceConfig tunes the shared embedding service.
type ServiceConfig struct {
	CacheSize      int
	CacheTTL       time.Duration
	// Serialize guards backends whose inference entry point is not reentrant.
	Serialize      bool
	// ComputeTimeout bounds a backend call shared by collapsed requests.
	ComputeTimeout time.Duration
	Logger         zerolog.Logger
}

// DefaultComputeTimeout bounds shared backend calls when ServiceConfig leaves it unset.
const DefaultComputeTimeout = time.Minute

// Service is the process-wide embedding entry point. It is constructed once at start-up,
// never mutated afterwards and safe for concurrent use.
type Service struct {
	backend Embedder
	cache   *lru.LRU[string, []float32]
	group   singleflight.Group
	mu      *sync.Mutex
	timeout time.Duration
	logger  zerolog.Logger
}

// NewService wraps backend with truncation, memoisation and request collapsing.
func NewService(backend Embedder, cfg ServiceConfig) *Service {
	service := &Service{
		backend: backend,
		timeout: cfg.ComputeTimeout,
		logger:  cfg.Logger.With().Str("component", "embedding_service").Logger(),
	}
	if cfg.CacheSize > 0 && cfg.CacheTTL > 0 {
		service.cache = lru.NewLRU[string, []float32](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	if cfg.Serialize {
		service.mu = &sync.Mutex{}
	}
	if service.timeout <= 0 {
		service.timeout = DefaultComputeTimeout
	}
	return service
}

// Embed returns the embedding of text, truncated to MaxTokens tokens first.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	input, truncated := nlp.TruncateTokens(text, MaxTokens)
	if truncated {
		s.logger.Debug().Int("chars", len(text)).Msg("embedding input truncated")
	}

	model := s.backend.ModelName()
	key := cacheKey(model, input)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			embedCacheHits.WithLabelValues(model).Inc()
			return clone(cached), nil
		}
	}

	// The shared call outlives any single waiter; each caller only abandons its own wait.
	results := s.group.DoChan(key, func() (interface{}, error) {
		computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		vector, err := s.compute(computeCtx, model, input)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Add(key, clone(vector))
		}
		return vector, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]float32)), nil
	}
}

// Similarity embeds both texts and returns their cosine similarity.
func (s *Service) Similarity(ctx context.Context, a, b string) (float64, error) {
	left, err := s.Embed(ctx, a)
	if err != nil {
		return 0, err
	}
	right, err := s.Embed(ctx, b)
	if err != nil {
		return 0, err
	}
	score, err := Cosine(left, right)
	if err != nil {
		return 0, fmt.Errorf("compare embeddings: %w", err)
	}
	return score, nil
}

// ModelName reports the backend model.
func (s *Service) ModelName() string {
	return s.backend.ModelName()
}

// Close releases cached vectors. The service must not be used afterwards.
func (s *Service) Close() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *Service) compute(ctx context.Context, model, input string) ([]float32, error) {
	if s.mu != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	start := time.Now()
	vector, err := s.backend.Embed(ctx, input)
	embedDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if err != nil {
		embedFailures.WithLabelValues(model).Inc()
		return nil, err
	}
	return vector, nil
}

func cacheKey(model, text string) string {
	hash := sha256.Sum256([]byte(text))
	return "embed:" + model + ":" + hex.EncodeToString(hash[:])
}

func clone(values []float32) []float32 {
	out := make([]float32, len(values))
	copy(out, values)
	return out
}
