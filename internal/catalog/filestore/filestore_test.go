package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
)

const validDoc = `{"restaurants": [
  {"id": "r1", "name": "Halal Guys", "dietary_tags": ["halal"], "rating": 4.2, "price_level": 1,
   "address": "4213 Campus Dr", "lat": 33.6490, "lng": -117.8390, "hours_text": "10am-10pm", "source": "manual"},
  {"id": "r2", "name": "Veggie Grill", "dietary_tags": ["vegan", "vegetarian"], "rating": 4.5, "price_level": 2,
   "address": "Irvine Spectrum", "lat": 33.6500, "lng": -117.7430, "hours_text": "11am-9pm", "source": "yelp"}
]}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "restaurants.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	store := New(writeFile(t, validDoc))
	c, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if c.At(1).ID != "r2" {
		t.Errorf("order not preserved: %q", c.At(1).ID)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	doc := `[{"id": "r1", "name": "x", "dietary_tags": [], "rating": 9, "price_level": 1,
	  "address": "", "lat": 0, "lng": 0, "hours_text": "", "source": "manual"}]`
	_, err := New(writeFile(t, doc)).Load(context.Background())
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("Load() = %v, want invalid input", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load() = %v, want not-exist", err)
	}
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(writeFile(t, validDoc)).Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Load() = %v, want context.Canceled", err)
	}
}
