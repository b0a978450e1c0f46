package nlp

import (
	"unicode"
	"unicode/utf8"
)

// Token is a word or punctuation mark together with its byte span in the source text.
type Token struct {
	Text  string
	Start int
	End   int
}

// IsWord reports whether the token is a word rather than punctuation.
func (t Token) IsWord() bool {
	r, _ := utf8.DecodeRuneInString(t.Text)
	return isWordRune(r)
}

// Tokenize splits text into word tokens and single-rune punctuation tokens.
// Apostrophes and hyphens stay inside a word when they sit between two word runes,
// so "don't" and "well-known" are kept whole.
func Tokenize(text string) []Token {
	tokens := make([]Token, 0, len(text)/4+1)
	start := -1

	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, Token{Text: text[start:end], Start: start, End: end})
			start = -1
		}
	}

	for i, r := range text {
		switch {
		case isWordRune(r):
			if start < 0 {
				start = i
			}
		case (r == '\'' || r == '-' || r == '’') && start >= 0 && nextIsWordRune(text, i+utf8.RuneLen(r)):
			// joiner inside a word
		case unicode.IsSpace(r):
			flush(i)
		default:
			flush(i)
			if unicode.IsPunct(r) || unicode.IsSymbol(r) {
				end := i + utf8.RuneLen(r)
				tokens = append(tokens, Token{Text: text[i:end], Start: i, End: end})
			}
		}
	}
	flush(len(text))

	return tokens
}

// TruncateTokens returns the prefix of text that covers its first max tokens.
// Text with max tokens or fewer is returned unchanged.
func TruncateTokens(text string, max int) (string, bool) {
	if max <= 0 {
		return text, false
	}
	tokens := Tokenize(text)
	if len(tokens) <= max {
		return text, false
	}
	return text[:tokens[max-1].End], true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func nextIsWordRune(text string, offset int) bool {
	if offset >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[offset:])
	return isWordRune(r)
}
