package dto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/grading"
)

// GradingRequest is the wire shape of a rubric grading call.
type GradingRequest struct {
	StudentResponse *string            `json:"student_response" validate:"required,max=50000"`
	ReferenceAnswer string             `json:"reference_answer" validate:"max=50000"`
	Keywords        []string           `json:"keywords" validate:"omitempty,max=200,dive,required,max=256"`
	Concepts        []string           `json:"concepts" validate:"omitempty,max=100,dive,required,max=512"`
	TotalPoints     *float64           `json:"total_points" validate:"required,gte=0"`
	Rubric          map[string]float64 `json:"rubric" validate:"omitempty,dive,keys,required,endkeys"`
}

// ToDomain converts a validated request into the engine's request.
func (r GradingRequest) ToDomain() grading.Request {
	req := grading.Request{
		ReferenceAnswer: r.ReferenceAnswer,
		Keywords:        r.Keywords,
		Concepts:        r.Concepts,
		Rubric:          r.Rubric,
	}
	if r.StudentResponse != nil {
		req.StudentResponse = *r.StudentResponse
	}
	if r.TotalPoints != nil {
		req.TotalPoints = *r.TotalPoints
	}
	return req
}

// GradingResult is the wire shape of a rubric grading outcome.
type GradingResult struct {
	Score                  float64         `json:"score"`
	Feedback               string          `json:"feedback"`
	KeywordMatches         KeywordMatches  `json:"keyword_matches"`
	ConceptCoverage        ConceptCoverage `json:"concept_coverage"`
	ImprovementSuggestions []string        `json:"improvement_suggestions"`
	TotalPoints            float64         `json:"total_points"`
	ExceedsTotal           bool            `json:"exceeds_total"`
}

// NewGradingResult converts an engine result into its wire shape.
func NewGradingResult(result grading.Result) GradingResult {
	suggestions := result.ImprovementSuggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return GradingResult{
		Score:                  result.Score,
		Feedback:               result.Feedback,
		KeywordMatches:         KeywordMatches(result.KeywordMatches),
		ConceptCoverage:        ConceptCoverage(result.ConceptCoverage),
		ImprovementSuggestions: suggestions,
		TotalPoints:            result.TotalPoints,
		ExceedsTotal:           result.ExceedsTotal(),
	}
}

// KeywordMatches serializes as a JSON object whose keys keep request order.
type KeywordMatches []grading.KeywordMatch

// MarshalJSON writes {"keyword": bool, ...} in slice order.
func (m KeywordMatches) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, match := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(match.Keyword)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if match.Matched {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object back, keeping document order.
func (m *KeywordMatches) UnmarshalJSON(data []byte) error {
	out := KeywordMatches{}
	err := decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var matched bool
		if err := json.Unmarshal(raw, &matched); err != nil {
			return fmt.Errorf("keyword %q: %w", key, err)
		}
		out = append(out, grading.KeywordMatch{Keyword: key, Matched: matched})
		return nil
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// Map returns the matches keyed by keyword.
func (m KeywordMatches) Map() map[string]bool {
	return grading.Result{KeywordMatches: m}.KeywordMap()
}

// ConceptCoverage serializes as a JSON object whose keys keep request order.
type ConceptCoverage []grading.ConceptScore

// MarshalJSON writes {"concept": coverage, ...} in slice order.
func (c ConceptCoverage) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, score := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(score.Concept)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(score.Coverage)
		if err != nil {
			return nil, fmt.Errorf("concept %q: %w", score.Concept, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object back, keeping document order.
func (c *ConceptCoverage) UnmarshalJSON(data []byte) error {
	out := ConceptCoverage{}
	err := decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var coverage float64
		if err := json.Unmarshal(raw, &coverage); err != nil {
			return fmt.Errorf("concept %q: %w", key, err)
		}
		out = append(out, grading.ConceptScore{Concept: key, Coverage: coverage})
		return nil
	})
	if err != nil {
		return err
	}
	*c = out
	return nil
}

// Map returns the coverage keyed by concept.
func (c ConceptCoverage) Map() map[string]float64 {
	return grading.Result{ConceptCoverage: c}.CoverageMap()
}

func decodeOrderedObject(data []byte, visit func(key string, raw json.RawMessage) error) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object")
	}

	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return err
		}
		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("expected object key")
		}
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			return err
		}
		if err := visit(key, raw); err != nil {
			return err
		}
	}

	_, err = decoder.Token()
	return err
}
