// Package catalog defines the restaurant records the recommender ranks and
// the immutable Catalog snapshot they are published in.
package catalog

import "slices"

// DietaryTag is one value of the closed dietary vocabulary.
type DietaryTag string

const (
	TagHalal       DietaryTag = "halal"
	TagVegan       DietaryTag = "vegan"
	TagPescatarian DietaryTag = "pescatarian"
	TagVegetarian  DietaryTag = "vegetarian"
	TagGlutenFree  DietaryTag = "gluten_free"
)

// DietaryTags lists the allowed dietary tags in sorted order.
var DietaryTags = []DietaryTag{TagGlutenFree, TagHalal, TagPescatarian, TagVegan, TagVegetarian}

// ParseDietaryTag returns the tag matching s, or false when s is not part of
// the vocabulary.
func ParseDietaryTag(s string) (DietaryTag, bool) {
	tag := DietaryTag(s)
	return tag, slices.Contains(DietaryTags, tag)
}

// Source records where a catalog entry came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceGoogle Source = "google"
	SourceYelp   Source = "yelp"
)

// Record is a single restaurant. Optional numeric fields are pointers so an
// absent value is distinguishable from zero.
type Record struct {
	ID          string       `json:"id" validate:"required,notblank"`
	Name        string       `json:"name" validate:"required"`
	DietaryTags []DietaryTag `json:"dietary_tags" validate:"required,dive,oneof=halal vegan pescatarian vegetarian gluten_free"`
	Rating      *float64     `json:"rating" validate:"required,gte=0,lte=5"`
	PriceLevel  *int         `json:"price_level" validate:"required,gte=1,lte=4"`
	Address     string       `json:"address"`
	Lat         *float64     `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng         *float64     `json:"lng" validate:"required,gte=-180,lte=180"`
	HoursText   string       `json:"hours_text"`
	Source      Source       `json:"source" validate:"required,oneof=manual google yelp"`
	ReviewCount *int         `json:"review_count,omitempty" validate:"omitempty,gte=0"`
	Phone       string       `json:"phone,omitempty"`
	MenuText    string       `json:"menu_text,omitempty"`
	Cuisines    []string     `json:"cuisines,omitempty"`
	Categories  []string     `json:"categories,omitempty"`
}

// HasTag reports whether the record carries tag.
func (r *Record) HasTag(tag DietaryTag) bool {
	return slices.Contains(r.DietaryTags, tag)
}

// Coordinates returns the record's location, or false when either component
// is missing.
func (r *Record) Coordinates() (lat, lng float64, ok bool) {
	if r.Lat == nil || r.Lng == nil {
		return 0, 0, false
	}
	return *r.Lat, *r.Lng, true
}

// RatingValue returns the rating, or 0 when it is absent.
func (r *Record) RatingValue() float64 {
	if r.Rating == nil {
		return 0
	}
	return *r.Rating
}

// Catalog is an ordered, immutable sequence of records. A refresh replaces
// the whole Catalog; it is never mutated in place. Records returned by At
// share slice fields with the catalog and must be treated as read-only.
type Catalog struct {
	records []Record
}

// New copies records into a new Catalog.
func New(records []Record) Catalog {
	return Catalog{records: slices.Clone(records)}
}

// Len returns the number of records.
func (c Catalog) Len() int {
	return len(c.records)
}

// At returns the record at position i in catalog order.
func (c Catalog) At(i int) *Record {
	return &c.records[i]
}

// IDs returns the record identifiers in catalog order.
func (c Catalog) IDs() []string {
	ids := make([]string, len(c.records))
	for i := range c.records {
		ids[i] = c.records[i].ID
	}
	return ids
}

// Records returns a copy of the record slice.
func (c Catalog) Records() []Record {
	return slices.Clone(c.records)
}
