// Package tokenizer splits text into index terms. It lower-cases input,
// splits on non-alphanumeric boundaries, and drops single-rune tokens and
// stop-words. Terms are not stemmed.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const minTermRunes = 2

// stopWords is a small English list plus words nearly every catalog entry
// shares.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},

	"food": {}, "restaurant": {}, "restaurants": {},
}

// Tokenize returns the index terms of text in order of appearance,
// duplicates included.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := words[:0]
	for _, word := range words {
		if utf8.RuneCountInString(word) < minTermRunes {
			continue
		}
		if IsStopWord(word) {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// IsStopWord reports whether term is dropped by Tokenize. term must already
// be lower-case.
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}
