package memindex

import (
	"strings"
	"unicode"

	"github.com/hupe1980/lexis/index"
)

// SimpleAnalyzer splits on anything that is not a letter or digit and lower-cases.
func SimpleAnalyzer(_ string, text string) []index.Token {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]index.Token, len(words))
	for i, w := range words {
		tokens[i] = index.Token{Text: strings.ToLower(w), PositionIncrement: 1}
	}
	return tokens
}

// WhitespaceAnalyzer splits on whitespace and keeps case.
func WhitespaceAnalyzer(_ string, text string) []index.Token {
	words := strings.Fields(text)
	tokens := make([]index.Token, len(words))
	for i, w := range words {
		tokens[i] = index.Token{Text: w, PositionIncrement: 1}
	}
	return tokens
}
