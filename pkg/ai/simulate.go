package ai

import "strings"

const simulatedNote = "\n\nNote: This is a simulated evaluation (demo mode). For actual LLM evaluation, please set up your Gemini API key."

type simulationTier struct {
	belowWords int
	percent    int
	text       string
}

var simulationTiers = []simulationTier{
	{belowWords: 10, percent: 30, text: "Your answer is too brief. Please provide more details and explanation."},
	{belowWords: 30, percent: 60, text: "Your answer covers some key points but could be more comprehensive."},
	{belowWords: 50, percent: 80, text: "Good answer! You've covered most of the important aspects of the question."},
	{belowWords: -1, percent: 90, text: "Excellent answer! Comprehensive and well-articulated."},
}

// Simulate scores an answer by word count alone. It performs no I/O.
func Simulate(input EvaluationInput) EvaluationOutcome {
	maxScore := ResolveMaxScore(input.GradingCriteria)
	words := len(strings.Fields(input.StudentAnswer))

	tier := simulationTiers[len(simulationTiers)-1]
	for _, candidate := range simulationTiers {
		if candidate.belowWords >= 0 && words < candidate.belowWords {
			tier = candidate
			break
		}
	}

	return EvaluationOutcome{
		EvaluationText: tier.text + simulatedNote,
		Score:          percentOf(maxScore, tier.percent),
		MaxScore:       maxScore,
		Mode:           ModeSimulated,
	}
}

// percentOf returns floor(value*percent/100) without overflowing for large values.
func percentOf(value, percent int) int {
	return value/100*percent + value%100*percent/100
}
