package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/recommend"
)

func newService(b *testing.B, n int) *recommend.Service {
	b.Helper()
	svc, err := recommend.New(indexer.NewManager(), catalog.Static(syntheticCatalog(n)), recommend.DefaultOptions())
	if err != nil {
		b.Fatal(err)
	}
	if _, err := svc.Refresh(context.Background()); err != nil {
		b.Fatal(err)
	}
	return svc
}

// BenchmarkRecommend measures the uncached pipeline: resolve, score every
// record, fuse, select top-k and explain.
func BenchmarkRecommend(b *testing.B) {
	queries := []struct {
		name string
		q    recommend.Query
	}{
		{"default", recommend.Query{}},
		{"text", recommend.Query{Text: "spicy ramen"}},
		{"halal", recommend.Query{Text: "gyro", Dietary: catalog.TagHalal}},
		{"top_50", recommend.Query{Text: "tacos", Limit: 50}},
	}
	for _, n := range []int{100, 1000, 10000} {
		svc := newService(b, n)
		for _, tc := range queries {
			b.Run(fmt.Sprintf("docs_%d/%s", n, tc.name), func(b *testing.B) {
				ctx := context.Background()
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := svc.Recommend(ctx, tc.q); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkRecommendParallel(b *testing.B) {
	svc := newService(b, 2000)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		q := recommend.Query{Text: "vegan bowls", Dietary: catalog.TagVegan}
		for pb.Next() {
			if _, err := svc.Recommend(ctx, q); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// BenchmarkRankTopK measures heap selection against the candidate count.
func BenchmarkRankTopK(b *testing.B) {
	w := ranker.DefaultWeights()
	for _, n := range []int{100, 1000, 10000} {
		rng := rand.New(rand.NewSource(1))
		candidates := make([]ranker.Candidate, n)
		for i := range candidates {
			c := ranker.Components{
				Relevance:    rng.Float64(),
				Proximity:    rng.Float64(),
				Availability: float64(rng.Intn(2)),
				Quality:      rng.Float64(),
			}
			candidates[i] = ranker.Candidate{Position: i, Components: c, Score: w.Fuse(c)}
		}
		b.Run(fmt.Sprintf("candidates_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				top := ranker.Rank(candidates, 5)
				_ = top
			}
		})
	}
}
