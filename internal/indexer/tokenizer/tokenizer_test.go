package tokenizer

import (
	"slices"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Spicy Thai Noodles", []string{"spicy", "thai", "noodles"}},
		{"the best food in town", []string{"best", "town"}},
		{"Restaurant: a $ b 12 pho-bo", []string{"12", "pho", "bo"}},
		{"gluten_free gluten free", []string{"gluten", "free", "gluten", "free"}},
		{"Café Crêpes", []string{"café", "crêpes"}},
		{"", nil},
		{"   !!! ", nil},
	}
	for _, tt := range tests {
		got := Tokenize(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTokenizeKeepsDuplicates(t *testing.T) {
	got := Tokenize("taco taco TACO")
	if len(got) != 3 {
		t.Fatalf("got %v", got)
	}
}

func TestIsStopWord(t *testing.T) {
	for _, w := range []string{"food", "restaurants", "the"} {
		if !IsStopWord(w) {
			t.Errorf("%q should be a stop word", w)
		}
	}
	if IsStopWord("vegan") {
		t.Error("vegan is not a stop word")
	}
}
