package grading

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const defaultCoverageConcurrency = 4

// Scorer computes semantic similarity and concept coverage.
type Scorer struct {
	backend     Similarity
	concurrency int
}

// NewScorer wraps a similarity backend. concurrency bounds parallel coverage calls per request.
func NewScorer(backend Similarity, concurrency int) *Scorer {
	if concurrency <= 0 {
		concurrency = defaultCoverageConcurrency
	}
	return &Scorer{backend: backend, concurrency: concurrency}
}

// Similarity returns the cosine similarity of two texts.
func (s *Scorer) Similarity(ctx context.Context, a, b string) (float64, error) {
	return s.backend.Similarity(ctx, a, b)
}

// Coverage scores the text against each concept. No threshold or clamping is applied.
func (s *Scorer) Coverage(ctx context.Context, text string, concepts []string) ([]ConceptScore, error) {
	labels := uniqueLabels(concepts)
	scores := make([]ConceptScore, len(labels))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for i, concept := range labels {
		group.Go(func() error {
			coverage, err := s.backend.Similarity(groupCtx, text, concept)
			if err != nil {
				return fmt.Errorf("concept %q: %w", concept, err)
			}
			scores[i] = ConceptScore{Concept: concept, Coverage: coverage}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}
