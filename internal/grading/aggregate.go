package grading

// Aggregate sums the rubric weights of matched keywords and the weighted coverage of every
// concept. Labels absent from the rubric weigh DefaultWeight. Summation follows request order
// so fixtures reproduce exactly; the total is not normalised by total points.
func Aggregate(matches []KeywordMatch, coverage []ConceptScore, rubric map[string]float64) float64 {
	var keywordScore float64
	for _, match := range matches {
		if match.Matched {
			keywordScore += weight(rubric, match.Keyword)
		}
	}

	var conceptScore float64
	for _, score := range coverage {
		conceptScore += score.Coverage * weight(rubric, score.Concept)
	}

	return keywordScore + conceptScore
}
