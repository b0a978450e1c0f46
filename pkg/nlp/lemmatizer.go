package nlp

import (
	"fmt"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// Lemmatizer reduces a word to its dictionary base form.
type Lemmatizer interface {
	Lemma(word string) string
}

// NewEnglishLemmatizer loads the English lemma dictionary. Loading is expensive,
// so callers build one instance at start-up and share it; lookups are read-only.
func NewEnglishLemmatizer() (Lemmatizer, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("load english lemma dictionary: %w", err)
	}
	return lemmatizer, nil
}

// IdentityLemmatizer leaves every word unchanged.
type IdentityLemmatizer struct{}

// Lemma returns the word as given.
func (IdentityLemmatizer) Lemma(word string) string {
	return word
}

// Normalizer turns free text into a lowercase, lemmatized, space-joined token string.
type Normalizer struct {
	lemmatizer Lemmatizer
}

// NewNormalizer wraps a lemmatizer. A nil lemmatizer falls back to IdentityLemmatizer.
func NewNormalizer(lemmatizer Lemmatizer) *Normalizer {
	if lemmatizer == nil {
		lemmatizer = IdentityLemmatizer{}
	}
	return &Normalizer{lemmatizer: lemmatizer}
}

// Normalize lowercases text, tokenizes it, lemmatizes each token and rejoins with single spaces.
func (n *Normalizer) Normalize(text string) string {
	tokens := Tokenize(strings.ToLower(text))
	if len(tokens) == 0 {
		return ""
	}

	builder := strings.Builder{}
	builder.Grow(len(text))
	for i, token := range tokens {
		if i > 0 {
			builder.WriteByte(' ')
		}
		if token.IsWord() {
			lemma := strings.ToLower(n.lemmatizer.Lemma(token.Text))
			if lemma == "" {
				lemma = token.Text
			}
			builder.WriteString(lemma)
			continue
		}
		builder.WriteString(token.Text)
	}

	return builder.String()
}
