package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/indexer/tokenizer"
)

// queryTexts are shaped like user input: short, mixed case, punctuation.
var queryTexts = []struct {
	name string
	text string
}{
	{"word", "Boba"},
	{"phrase", "Late-night HALAL gyro near campus!"},
	{"sentence", "cheap $$ vegan tacos, gluten-free tortillas & horchata; open after 10pm?"},
}

func BenchmarkTokenizeQuery(b *testing.B) {
	for _, q := range queryTexts {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(q.text)))
			for b.Loop() {
				tokenizer.Tokenize(q.text)
			}
		})
	}
}

// BenchmarkDocumentPipeline is the per-record cost of an index rebuild
// before term counting: synthesize the document text, then tokenize it.
func BenchmarkDocumentPipeline(b *testing.B) {
	records := syntheticCatalog(len(tagSets) * len(menus))
	b.ReportAllocs()
	i := 0
	for b.Loop() {
		text := document.Synthesize(&records[i%len(records)])
		tokenizer.Tokenize(string(text))
		i++
	}
}

func BenchmarkNormalize(b *testing.B) {
	for _, q := range queryTexts {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				document.Normalize(q.text)
			}
		})
	}
}

func BenchmarkTokenizeMenuLength(b *testing.B) {
	const menuLine = "tonkotsu ramen, spicy miso & gyoza (6pc) - karaage; chashu bowl. "
	for _, size := range []int{64, 512, 4096, 32768} {
		text := strings.Repeat(menuLine, size/len(menuLine)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(size))
			for b.Loop() {
				tokenizer.Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := queryTexts[2].text
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokenizer.Tokenize(text)
		}
	})
}
