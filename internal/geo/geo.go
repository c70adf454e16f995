// Package geo computes great-circle distances on a spherical Earth.
package geo

import "math"

// EarthRadiusMiles is the mean radius of Earth.
const EarthRadiusMiles = 3958.8

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether latitude is in [-90,90] and longitude in [-180,180].
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// HaversineMiles returns the great-circle distance between a and b in miles.
func HaversineMiles(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h just past 1 for antipodal points.
	h = math.Min(h, 1)

	return 2 * EarthRadiusMiles * math.Asin(math.Sqrt(h))
}
