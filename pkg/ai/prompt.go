package ai

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultMaxScore applies when the grading criteria are not a plain integer.
	DefaultMaxScore = 100

	evaluationMarker = "EVALUATION:"
	scoreMarker      = "SCORE:"
)

var scoreDigits = regexp.MustCompile(`[0-9]+`)

// ResolveMaxScore returns the grading criteria as the maximum score when they are a plain
// non-negative integer string, DefaultMaxScore otherwise.
func ResolveMaxScore(criteria string) int {
	if criteria == "" {
		return DefaultMaxScore
	}
	for _, r := range criteria {
		if r < '0' || r > '9' {
			return DefaultMaxScore
		}
	}
	value, err := strconv.Atoi(criteria)
	if err != nil {
		return DefaultMaxScore
	}
	return value
}

// BuildPrompt renders the evaluation instructions followed by the question context.
func BuildPrompt(input EvaluationInput) string {
	maxScore := ResolveMaxScore(input.GradingCriteria)

	var b strings.Builder
	b.WriteString("You are an expert educational evaluator. Your task is to evaluate a student's answer to a question.\n")
	b.WriteString("Provide constructive feedback, highlighting strengths and areas for improvement.\n")
	fmt.Fprintf(&b, "After your evaluation, assign a score from 0-%d based on the accuracy and completeness of the answer.\n\n", maxScore)
	b.WriteString("Format your response as follows:\n")
	b.WriteString("EVALUATION: [Your detailed evaluation here]\n")
	fmt.Fprintf(&b, "SCORE: [Numeric score between 0-%d]\n\n", maxScore)

	b.WriteString("Question: ")
	b.WriteString(input.Question)
	b.WriteString("\n\nStudent Answer: ")
	b.WriteString(input.StudentAnswer)
	if input.ExpectedAnswer != "" {
		b.WriteString("\n\nExpected Answer: ")
		b.WriteString(input.ExpectedAnswer)
	}
	if input.GradingCriteria != "" {
		b.WriteString("\n\nGrading Criteria: ")
		b.WriteString(input.GradingCriteria)
	}
	return b.String()
}

// ParseResponse extracts the evaluation text and score from a model reply. When either marker
// is missing the raw reply becomes the evaluation and the score is 0. The score is the first
// digit run after SCORE:, floored at 0 and never capped.
func ParseResponse(raw string) (evaluation string, score int, markersFound bool) {
	if !strings.Contains(raw, evaluationMarker) || !strings.Contains(raw, scoreMarker) {
		return raw, 0, false
	}

	evaluationPart := strings.SplitN(raw, evaluationMarker, 3)[1]
	evaluationPart = strings.SplitN(evaluationPart, scoreMarker, 2)[0]
	evaluation = strings.TrimSpace(evaluationPart)

	scorePart := strings.TrimSpace(strings.SplitN(raw, scoreMarker, 3)[1])
	if digits := scoreDigits.FindString(scorePart); digits != "" {
		if value, err := strconv.Atoi(digits); err == nil {
			score = max(0, value)
		}
	}
	return evaluation, score, true
}
