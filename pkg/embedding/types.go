package embedding

import (
	"context"
	"errors"
	"math"
)

// MaxTokens is the fixed input window of the embedding service. Longer text is truncated silently.
const MaxTokens = 512

// ErrUnavailable marks failures of the embedding backend itself (network, auth, empty reply).
var ErrUnavailable = errors.New("embedding backend unavailable")

// ErrDimensionMismatch indicates two embeddings of different length were compared.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// Cosine returns the cosine similarity of two embeddings. A zero vector has no direction,
// so any comparison involving one scores 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
