// Package document turns a catalog record into the normalized text the
// relevance index is fitted on.
package document

import (
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
)

// Text is a normalized document: lower-case letters, digits and single
// spaces only.
type Text string

// Contains reports whether term occurs anywhere in the text, including as
// part of a longer word.
func (t Text) Contains(term string) bool {
	return term != "" && strings.Contains(string(t), term)
}

func (t Text) String() string {
	return string(t)
}

// Synthesize builds the document text for r. Fields are joined in a fixed
// order: name, cuisines, categories, menu text, a price token of one "$"
// per tier, then the expanded dietary tags twice so they weigh more than a
// single mention. Empty fields are skipped.
func Synthesize(r *catalog.Record) Text {
	expanded := ExpandTags(r.DietaryTags)

	parts := make([]string, 0, 4+len(r.Cuisines)+len(r.Categories)+2*len(expanded))
	parts = append(parts, r.Name)
	parts = append(parts, r.Cuisines...)
	parts = append(parts, r.Categories...)
	parts = append(parts, r.MenuText)
	parts = append(parts, priceToken(r.PriceLevel))
	parts = append(parts, expanded...)
	parts = append(parts, expanded...)

	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return Normalize(b.String())
}

// ExpandTags returns each tag followed, when it contains an underscore, by
// its space-separated form: gluten_free yields "gluten_free", "gluten free".
func ExpandTags(tags []catalog.DietaryTag) []string {
	out := make([]string, 0, 2*len(tags))
	for _, tag := range tags {
		s := string(tag)
		out = append(out, s)
		if strings.Contains(s, "_") {
			out = append(out, strings.ReplaceAll(s, "_", " "))
		}
	}
	return out
}

// Normalize lower-cases s, replaces every rune that is not a letter, digit
// or whitespace with a space, and collapses whitespace runs.
func Normalize(s string) Text {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(s))
	return Text(strings.Join(strings.Fields(mapped), " "))
}

// priceToken renders tiers 1-4. Normalize erases "$", so the token never
// reaches the index.
func priceToken(level *int) string {
	if level == nil || *level < 1 || *level > 4 {
		return ""
	}
	return strings.Repeat("$", *level)
}
