package pgstore

import (
	"database/sql"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
)

func TestRowRecordNullables(t *testing.T) {
	r := row{
		id:        "r1",
		name:      "Pho 79",
		tags:      []string{"gluten_free"},
		rating:    sql.NullFloat64{Float64: 0, Valid: true},
		address:   "Irvine",
		lat:       sql.NullFloat64{Float64: 33.6, Valid: true},
		hoursText: "closed",
		source:    "google",
		menuText:  sql.NullString{String: "pho bun", Valid: true},
	}
	rec := r.record()

	if rec.Rating == nil || *rec.Rating != 0 {
		t.Error("valid zero rating should survive")
	}
	if rec.PriceLevel != nil {
		t.Error("null price level should be nil")
	}
	if _, _, ok := rec.Coordinates(); ok {
		t.Error("null lng should leave coordinates unknown")
	}
	if !rec.HasTag(catalog.TagGlutenFree) {
		t.Errorf("tags = %v", rec.DietaryTags)
	}
	if rec.MenuText != "pho bun" || rec.Phone != "" {
		t.Errorf("menu=%q phone=%q", rec.MenuText, rec.Phone)
	}
	if rec.Source != catalog.SourceGoogle {
		t.Errorf("source = %q", rec.Source)
	}
}

func TestInsertArgsOrder(t *testing.T) {
	rating := 4.0
	rec := &catalog.Record{ID: "r1", Name: "A", Rating: &rating, Source: catalog.SourceYelp}
	args := insertArgs(3, rec)
	if len(args) != 16 {
		t.Fatalf("got %d args, want 16", len(args))
	}
	if args[0] != "r1" || args[1] != 3 || args[2] != "A" {
		t.Errorf("leading args = %v", args[:3])
	}
	if args[10] != "yelp" {
		t.Errorf("source arg = %v", args[10])
	}
	if phone := args[12].(sql.NullString); phone.Valid {
		t.Error("empty phone should be stored as NULL")
	}
}
