package grading

import "strings"

// KeywordMatcher detects keywords through lemma-normalized substring search.
type KeywordMatcher struct {
	normalizer Normalizer
}

// NewKeywordMatcher builds a matcher around a shared normalizer.
func NewKeywordMatcher(normalizer Normalizer) *KeywordMatcher {
	return &KeywordMatcher{normalizer: normalizer}
}

// Match reports, per keyword, whether its normalized form is a contiguous substring of the
// normalized text. Word order inside a multi-word keyword matters, its position does not.
// Duplicate keywords are reported once, at their first position.
func (m *KeywordMatcher) Match(text string, keywords []string) []KeywordMatch {
	normalizedText := m.normalizer.Normalize(text)

	labels := uniqueLabels(keywords)
	matches := make([]KeywordMatch, 0, len(labels))
	for _, keyword := range labels {
		normalizedKeyword := m.normalizer.Normalize(keyword)
		matches = append(matches, KeywordMatch{
			Keyword: keyword,
			Matched: strings.Contains(normalizedText, normalizedKeyword),
		})
	}
	return matches
}
