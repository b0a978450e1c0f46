package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/nlp"
)

type recordingEmbedder struct {
	mu     sync.Mutex
	inputs []string
	calls  atomic.Int32
	err    error
}

func (r *recordingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.inputs = append(r.inputs, text)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (r *recordingEmbedder) ModelName() string {
	return "recording"
}

func TestCosine(t *testing.T) {
	score, err := Cosine([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	require.InDelta(t, 1.0, score, 1e-9)

	score, err = Cosine([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	require.InDelta(t, 0.0, score, 1e-9)

	score, err = Cosine([]float32{1, 2}, []float32{-1, -2})
	require.NoError(t, err)
	require.InDelta(t, -1.0, score, 1e-9)

	score, err = Cosine([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	require.Zero(t, score)

	_, err = Cosine([]float32{1}, []float32{1, 2})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestHashEmbedderDeterministicSelfSimilarity(t *testing.T) {
	svc := NewService(NewHashEmbedder(64), ServiceConfig{Logger: zerolog.Nop()})
	ctx := context.Background()

	first, err := svc.Embed(ctx, "The Earth orbits around the Sun")
	require.NoError(t, err)
	second, err := svc.Embed(ctx, "The Earth orbits around the Sun")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, first, 64)

	score, err := svc.Similarity(ctx, "The Earth orbits around the Sun", "The Earth orbits around the Sun")
	require.NoError(t, err)
	require.InDelta(t, 1.0, score, 1e-6)
}

func TestServiceTruncatesLongInput(t *testing.T) {
	backend := &recordingEmbedder{}
	svc := NewService(backend, ServiceConfig{Logger: zerolog.Nop()})

	_, err := svc.Embed(context.Background(), strings.Repeat("energy ", 2000))
	require.NoError(t, err)
	require.Len(t, backend.inputs, 1)
	require.Len(t, nlp.Tokenize(backend.inputs[0]), MaxTokens)
}

func TestServiceMemoisesEmbeddings(t *testing.T) {
	backend := &recordingEmbedder{}
	svc := NewService(backend, ServiceConfig{CacheSize: 16, CacheTTL: time.Minute, Logger: zerolog.Nop()})
	ctx := context.Background()

	first, err := svc.Embed(ctx, "water cycle")
	require.NoError(t, err)
	first[0] = 999

	second, err := svc.Embed(ctx, "water cycle")
	require.NoError(t, err)
	require.Equal(t, int32(1), backend.calls.Load())
	require.NotEqual(t, float32(999), second[0])

	svc.Close()
	_, err = svc.Embed(ctx, "water cycle")
	require.NoError(t, err)
	require.Equal(t, int32(2), backend.calls.Load())
}

func TestServiceSerializedConcurrentUse(t *testing.T) {
	backend := &recordingEmbedder{}
	svc := NewService(backend, ServiceConfig{Serialize: true, Logger: zerolog.Nop()})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Embed(context.Background(), strings.Repeat("a ", i+1))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	require.LessOrEqual(t, backend.calls.Load(), int32(16))
}

func TestServicePropagatesBackendError(t *testing.T) {
	backend := &recordingEmbedder{err: ErrUnavailable}
	svc := NewService(backend, ServiceConfig{Logger: zerolog.Nop()})

	_, err := svc.Similarity(context.Background(), "a", "b")
	require.True(t, errors.Is(err, ErrUnavailable))
}

func TestOllamaEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)

		var body ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "test-model", body.Model)
		require.Equal(t, "hello", body.Prompt)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embedding": []float32{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(OllamaConfig{BaseURL: server.URL, Model: "test-model"})
	vector, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, vector, 3)
	require.Equal(t, "ollama/test-model", embedder.ModelName())
}

func TestOllamaEmbedderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(OllamaConfig{BaseURL: server.URL})
	_, err := embedder.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestOllamaEmbedderDefaults(t *testing.T) {
	embedder := NewOllamaEmbedder(OllamaConfig{})
	require.Equal(t, defaultOllamaURL, embedder.baseURL)
	require.Equal(t, defaultOllamaModel, embedder.model)
}

func TestOpenAIEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 0, "embedding": []float32{0.5, 0.5}},
			},
		})
	}))
	defer server.Close()

	embedder, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: server.URL})
	require.NoError(t, err)

	vector, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{0.5, 0.5}, vector)
}

func TestOpenAIEmbedderRequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{})
	require.Error(t, err)
}

func TestGeminiEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "text-embedding-004:batchEmbedContents"), r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": []map[string]interface{}{{"values": []float32{0.25, 0.75}}},
		})
	}))
	defer server.Close()

	embedder, err := NewGeminiEmbedder(context.Background(), GeminiConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	require.Equal(t, "gemini/text-embedding-004", embedder.ModelName())

	vector, err := embedder.Embed(context.Background(), "water cycle process")
	require.NoError(t, err)
	require.Equal(t, []float32{0.25, 0.75}, vector)
}

func TestGeminiEmbedderEmptyAndFailedReplies(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer empty.Close()

	embedder, err := NewGeminiEmbedder(context.Background(), GeminiConfig{APIKey: "test-key", BaseURL: empty.URL})
	require.NoError(t, err)
	_, err = embedder.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, ErrUnavailable)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer failing.Close()

	embedder, err = NewGeminiEmbedder(context.Background(), GeminiConfig{APIKey: "test-key", BaseURL: failing.URL})
	require.NoError(t, err)
	_, err = embedder.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = NewGeminiEmbedder(context.Background(), GeminiConfig{})
	require.Error(t, err)
}

type gatedEmbedder struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

func (g *gatedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	g.calls.Add(1)
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
		return []float32{1, 2, 3}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedEmbedder) ModelName() string {
	return "gated"
}

func TestServiceCancelledCallerDoesNotFailSharedEmbed(t *testing.T) {
	backend := &gatedEmbedder{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(backend, ServiceConfig{Logger: zerolog.Nop()})

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Embed(first, "same text")
		firstErr <- err
	}()
	<-backend.started

	type result struct {
		vector []float32
		err    error
	}
	second := make(chan result, 1)
	go func() {
		vector, err := svc.Embed(context.Background(), "same text")
		second <- result{vector: vector, err: err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(backend.release)
	got := <-second
	require.NoError(t, got.err)
	require.Equal(t, []float32{1, 2, 3}, got.vector)
}

func TestServiceBoundsSharedEmbed(t *testing.T) {
	backend := &gatedEmbedder{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(backend, ServiceConfig{ComputeTimeout: 20 * time.Millisecond, Logger: zerolog.Nop()})

	_, err := svc.Embed(context.Background(), "slow text")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
