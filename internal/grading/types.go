package grading

import (
	"context"
	"errors"
)

const (
	// ConceptThreshold is the coverage below which a concept is reported as needing improvement.
	ConceptThreshold = 0.7
	// DefaultWeight applies to any keyword or concept missing from the rubric.
	DefaultWeight = 1.0
)

// ErrInvalidRequest indicates the grading request violates the input contract.
var ErrInvalidRequest = errors.New("invalid grading request")

// Similarity scores the relatedness of two texts, nominally in [0,1].
type Similarity interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Normalizer maps text onto its lemma-normalized form.
type Normalizer interface {
	Normalize(text string) string
}

// Request is one grading call. It is treated as immutable by the engine.
type Request struct {
	StudentResponse string
	ReferenceAnswer string
	Keywords        []string
	Concepts        []string
	TotalPoints     float64
	Rubric          map[string]float64
}

// KeywordMatch records whether a keyword was found in the response.
type KeywordMatch struct {
	Keyword string
	Matched bool
}

// ConceptScore records the similarity between the response and a concept phrase.
type ConceptScore struct {
	Concept  string
	Coverage float64
}

// Result is the outcome of the rubric pipeline. Slices keep request order.
type Result struct {
	Score                  float64
	TotalPoints            float64
	Feedback               string
	KeywordMatches         []KeywordMatch
	ConceptCoverage        []ConceptScore
	ImprovementSuggestions []string
}

// ExceedsTotal reports whether the score is above the request's total points.
// The engine never clamps, so rubric weights that outgrow total_points surface here.
func (r Result) ExceedsTotal() bool {
	return r.Score > r.TotalPoints
}

// KeywordMap returns the keyword matches keyed by keyword.
func (r Result) KeywordMap() map[string]bool {
	out := make(map[string]bool, len(r.KeywordMatches))
	for _, match := range r.KeywordMatches {
		out[match.Keyword] = match.Matched
	}
	return out
}

// CoverageMap returns the concept coverage keyed by concept.
func (r Result) CoverageMap() map[string]float64 {
	out := make(map[string]float64, len(r.ConceptCoverage))
	for _, score := range r.ConceptCoverage {
		out[score.Concept] = score.Coverage
	}
	return out
}

func weight(rubric map[string]float64, label string) float64 {
	if w, ok := rubric[label]; ok {
		return w
	}
	return DefaultWeight
}

func uniqueLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}
