package grading

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var (
	gradeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grader",
		Subsystem: "rubric",
		Name:      "grade_duration_seconds",
		Help:      "Duration of rubric grading requests",
	}, []string{"status"})

	gradeScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "grader",
		Subsystem: "rubric",
		Name:      "score_ratio",
		Help:      "Rubric score divided by total points",
		Buckets:   []float64{0, 0.25, 0.5, 0.75, 0.9, 1, 1.25},
	})
)

// Engine runs the rubric pipeline. It holds only shared read-only collaborators and is safe
// for concurrent use.
type Engine struct {
	keywords *KeywordMatcher
	scorer   *Scorer
	logger   zerolog.Logger
}

// NewEngine wires the keyword matcher and coverage scorer together.
func NewEngine(normalizer Normalizer, similarity Similarity, concurrency int, logger zerolog.Logger) *Engine {
	return &Engine{
		keywords: NewKeywordMatcher(normalizer),
		scorer:   NewScorer(similarity, concurrency),
		logger:   logger.With().Str("component", "grading_engine").Logger(),
	}
}

// Scorer exposes the similarity scorer used by the engine.
func (e *Engine) Scorer() *Scorer {
	return e.scorer
}

// Validate rejects requests the pipeline cannot score meaningfully.
func Validate(req Request) error {
	if math.IsNaN(req.TotalPoints) || math.IsInf(req.TotalPoints, 0) {
		return fmt.Errorf("%w: total_points must be a finite number", ErrInvalidRequest)
	}
	if req.TotalPoints < 0 {
		return fmt.Errorf("%w: total_points must not be negative", ErrInvalidRequest)
	}
	for label, w := range req.Rubric {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: rubric weight for %q must be a finite number", ErrInvalidRequest, label)
		}
	}
	return nil
}

// Grade scores the response. Keyword matching and concept coverage run in parallel and the
// score is never clamped to total points.
func (e *Engine) Grade(ctx context.Context, req Request) (Result, error) {
	ctx, span := otel.Tracer("github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/grading").Start(ctx, "grading.Grade")
	defer span.End()
	span.SetAttributes(
		attribute.Int("grading.keywords", len(req.Keywords)),
		attribute.Int("grading.concepts", len(req.Concepts)),
	)

	start := time.Now()
	if err := Validate(req); err != nil {
		gradeDuration.WithLabelValues("invalid").Observe(time.Since(start).Seconds())
		span.SetStatus(codes.Error, "invalid request")
		return Result{}, err
	}

	var (
		matches  []KeywordMatch
		coverage []ConceptScore
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		matches = e.keywords.Match(req.StudentResponse, req.Keywords)
		return nil
	})
	group.Go(func() error {
		var err error
		coverage, err = e.scorer.Coverage(groupCtx, req.StudentResponse, req.Concepts)
		return err
	})
	if err := group.Wait(); err != nil {
		gradeDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error().Err(err).Msg("concept coverage failed")
		return Result{}, fmt.Errorf("concept coverage: %w", err)
	}

	score := Aggregate(matches, coverage, req.Rubric)
	feedback, suggestions := Synthesize(matches, coverage, score, req.TotalPoints)

	result := Result{
		Score:                  score,
		TotalPoints:            req.TotalPoints,
		Feedback:               feedback,
		KeywordMatches:         matches,
		ConceptCoverage:        coverage,
		ImprovementSuggestions: suggestions,
	}

	gradeDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	if req.TotalPoints > 0 {
		gradeScores.Observe(score / req.TotalPoints)
	}
	if result.ExceedsTotal() {
		e.logger.Warn().
			Float64("score", score).
			Float64("total_points", req.TotalPoints).
			Msg("rubric score exceeds total points")
	}
	span.SetAttributes(attribute.Float64("grading.score", score))
	return result, nil
}
