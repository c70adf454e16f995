package catalog

import "testing"

func TestDecodeForms(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want int
	}{
		{"list", `[{"id": "a", "name": "A"}, {"id": "b", "name": "B"}]`, 2},
		{"object", `{"restaurants": [{"id": "a", "name": "A"}]}`, 1},
		{"bom", "\ufeff" + `[{"id": "a"}]`, 1},
		{"empty list", `[]`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Decode([]byte(tt.doc))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(records) != tt.want {
				t.Errorf("len = %d, want %d", len(records), tt.want)
			}
		})
	}
}

func TestDecodeOptionalFields(t *testing.T) {
	records, err := Decode([]byte(`[{"id": "a", "name": "A", "rating": 0, "lat": null, "menu_text": null}]`))
	if err != nil {
		t.Fatal(err)
	}
	rec := records[0]
	if rec.Rating == nil || *rec.Rating != 0 {
		t.Error("explicit zero rating should be present")
	}
	if _, _, ok := rec.Coordinates(); ok {
		t.Error("null latitude should leave coordinates unknown")
	}
	if rec.MenuText != "" {
		t.Errorf("menu text = %q", rec.MenuText)
	}
	if rec.PriceLevel != nil {
		t.Error("absent price level should be nil")
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, doc := range []string{``, `   `, `42`, `{"data": []}`, `[{"id": 7}]`} {
		if _, err := Decode([]byte(doc)); err == nil {
			t.Errorf("Decode(%q) succeeded, want error", doc)
		}
	}
}

func TestCatalogIsACopy(t *testing.T) {
	records := []Record{{ID: "a"}, {ID: "b"}}
	c := New(records)
	records[0].ID = "changed"
	if c.At(0).ID != "a" {
		t.Error("catalog shares storage with its input")
	}
	if ids := c.IDs(); len(ids) != 2 || ids[1] != "b" {
		t.Errorf("IDs() = %v", ids)
	}
}

func TestParseDietaryTag(t *testing.T) {
	if tag, ok := ParseDietaryTag("gluten_free"); !ok || tag != TagGlutenFree {
		t.Errorf("ParseDietaryTag(gluten_free) = %q, %v", tag, ok)
	}
	if _, ok := ParseDietaryTag("keto"); ok {
		t.Error("keto is not a dietary tag")
	}
}
