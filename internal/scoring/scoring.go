// Package scoring computes the per-record heuristic signals fused with
// lexical relevance: proximity to a home point, a time-of-day availability
// guess, and normalized rating. Every function is pure.
package scoring

import (
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/geo"
)

// MaxRating is the top of the rating scale.
const MaxRating = 5.0

// Proximity maps a distance in miles onto [0,1]: 1 at the home point,
// falling linearly to 0 at maxDistance and beyond.
func Proximity(distance, maxDistance float64) float64 {
	if maxDistance <= 0 || distance >= maxDistance {
		return 0
	}
	return math.Max(0, 1-distance/maxDistance)
}

// Availability guesses whether a venue is open from its free-text hours:
// 0 when the text mentions "closed", 1 when it mentions "am" or "pm", and 0.5
// when nothing can be inferred.
func Availability(hoursText string) float64 {
	hours := strings.ToLower(hoursText)
	switch {
	case strings.Contains(hours, "closed"):
		return 0
	case strings.Contains(hours, "am"), strings.Contains(hours, "pm"):
		return 1
	default:
		return 0.5
	}
}

// Quality scales a rating on the 0-5 scale to [0,1].
func Quality(rating float64) float64 {
	if math.IsNaN(rating) {
		return 0
	}
	return math.Min(math.Max(rating, 0), MaxRating) / MaxRating
}

// Signals holds the heuristic scores of one record.
type Signals struct {
	Proximity    float64
	Availability float64
	Quality      float64
	// DistanceMiles is meaningful only when HasDistance is true.
	DistanceMiles float64
	HasDistance   bool
}

// Scorer evaluates records against a fixed home point.
type Scorer struct {
	Home             geo.Point
	MaxDistanceMiles float64
}

// Distance returns the distance from home to r, or false when r has no
// coordinates.
func (s Scorer) Distance(r *catalog.Record) (float64, bool) {
	lat, lng, ok := r.Coordinates()
	if !ok {
		return 0, false
	}
	return geo.HaversineMiles(s.Home, geo.Point{Lat: lat, Lng: lng}), true
}

// Score computes every signal for r. A record without coordinates gets a
// proximity of 0.
func (s Scorer) Score(r *catalog.Record) Signals {
	sig := Signals{
		Availability: Availability(r.HoursText),
		Quality:      Quality(r.RatingValue()),
	}
	if d, ok := s.Distance(r); ok {
		sig.DistanceMiles = d
		sig.HasDistance = true
		sig.Proximity = Proximity(d, s.MaxDistanceMiles)
	}
	return sig
}
