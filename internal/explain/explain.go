// Package explain produces the short human-readable reasons attached to
// each recommendation. Every reason is derived from a signal that actually
// contributed to the record's score.
package explain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/ranker"
)

const (
	// MaxReasons caps the explanation list.
	MaxReasons = 5

	maxQueryTerms   = 2
	minQueryTermLen = 3
)

// queryStopWords are skipped when picking terms to quote back to the user.
var queryStopWords = map[string]struct{}{
	"food": {}, "restaurant": {}, "restaurants": {}, "near": {}, "nearby": {},
	"uc": {}, "uci": {}, "campus": {}, "open": {}, "now": {}, "best": {},
	"good": {}, "cheap": {}, "in": {}, "out": {}, "the": {}, "a": {},
	"an": {}, "and": {}, "or": {}, "to": {}, "for": {},
}

// Options holds the thresholds that switch on the stronger phrasings.
type Options struct {
	WalkableMiles       float64
	HighRatingThreshold float64
}

func DefaultOptions() Options {
	return Options{
		WalkableMiles:       0.8,
		HighRatingThreshold: 0.8,
	}
}

// Input is everything known about one ranked record.
type Input struct {
	Record     *catalog.Record
	Document   document.Text
	Query      string
	Dietary    catalog.DietaryTag
	Components ranker.Components

	DistanceMiles float64
	HasDistance   bool
}

// Generate returns up to MaxReasons reasons in a fixed order: dietary match,
// query match, distance, availability, rating.
func Generate(in Input, opts Options) []string {
	reasons := make([]string, 0, MaxReasons+1)

	if in.Dietary != "" && in.Record.HasTag(in.Dietary) {
		reasons = append(reasons, "matches "+strings.ReplaceAll(string(in.Dietary), "_", " "))
	}

	var matched []string
	for _, term := range SalientTerms(in.Query) {
		if in.Document.Contains(term) {
			matched = append(matched, term)
		}
	}
	switch {
	case len(matched) > 0:
		reasons = append(reasons, "query match: "+strings.Join(matched, ", "))
	case in.Components.Relevance > 0 && strings.TrimSpace(in.Query) != "":
		reasons = append(reasons, "matches search terms")
	}

	if in.HasDistance {
		reasons = append(reasons, fmt.Sprintf("%.1f mi away", in.DistanceMiles))
		if in.DistanceMiles <= opts.WalkableMiles {
			reasons = append(reasons, "walkable distance")
		}
	}

	switch {
	case in.Components.Availability <= 0:
		reasons = append(reasons, "may be closed")
	case in.Components.Availability >= 1:
		reasons = append(reasons, "open now")
	default:
		reasons = append(reasons, "hours not listed")
	}

	rating := in.Record.RatingValue()
	switch {
	case in.Components.Quality >= opts.HighRatingThreshold:
		reasons = append(reasons, fmt.Sprintf("high rating (%.1f)", rating))
	case rating > 0:
		reasons = append(reasons, fmt.Sprintf("rating %.1f", rating))
	}

	if len(reasons) > MaxReasons {
		reasons = reasons[:MaxReasons]
	}
	return reasons
}

// SalientTerms picks at most two distinct query words worth quoting:
// at least three runes long and not a stop word. Underscores count as
// spaces.
func SalientTerms(query string) []string {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(query, "_", " ")))
	terms := make([]string, 0, maxQueryTerms)
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) < minQueryTermLen {
			continue
		}
		if _, stop := queryStopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
		if len(terms) == maxQueryTerms {
			break
		}
	}
	return terms
}
