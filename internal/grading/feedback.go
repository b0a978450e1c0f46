package grading

import (
	"fmt"
	"strings"
)

// Synthesize renders the feedback text and improvement suggestions for a graded response.
func Synthesize(matches []KeywordMatch, coverage []ConceptScore, score, totalPoints float64) (string, []string) {
	var feedback strings.Builder
	fmt.Fprintf(&feedback, "Score: %.2f/%.2f\n\n", score, totalPoints)
	suggestions := make([]string, 0, 2)

	missing := make([]string, 0)
	for _, match := range matches {
		if !match.Matched {
			missing = append(missing, match.Keyword)
		}
	}
	if len(missing) > 0 {
		list := strings.Join(missing, ", ")
		feedback.WriteString("Missing important keywords: " + list + "\n")
		suggestions = append(suggestions, "Try to incorporate these keywords: "+list)
	}

	weak := make([]string, 0)
	for _, score := range coverage {
		if score.Coverage < ConceptThreshold {
			weak = append(weak, score.Concept)
		}
	}
	if len(weak) > 0 {
		list := strings.Join(weak, ", ")
		feedback.WriteString("Concepts needing improvement: " + list + "\n")
		suggestions = append(suggestions, "Strengthen your understanding of: "+list)
	}

	return feedback.String(), suggestions
}
