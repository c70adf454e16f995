package rpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/recommend"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/proto"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }
func i32(v int32) *int32     { return &v }

func records() []catalog.Record {
	return []catalog.Record{
		{
			ID: "pho-1", Name: "Pho Ever",
			DietaryTags: []catalog.DietaryTag{catalog.TagGlutenFree},
			Rating:      f64(4.4), PriceLevel: intp(1),
			Lat: f64(33.6450), Lng: f64(-117.8400),
			HoursText: "10am-9pm", Source: catalog.SourceYelp,
			Cuisines: []string{"vietnamese", "noodles"},
		},
		{
			ID: "taco-2", Name: "Taco Stand",
			DietaryTags: []catalog.DietaryTag{},
			Rating:      f64(4.0), PriceLevel: intp(1),
			Lat: f64(33.6500), Lng: f64(-117.8350),
			HoursText: "11am-11pm", Source: catalog.SourceManual,
			Cuisines: []string{"mexican", "tacos"},
		},
	}
}

func setup(t *testing.T, ready bool) *Client {
	t.Helper()
	svc, err := recommend.New(indexer.NewManager(), catalog.Static(records()), recommend.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if ready {
		if _, err := svc.Refresh(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	s := grpc.NewServer()
	Register(s, svc)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go s.ServeListener(ln)
	t.Cleanup(s.Stop)

	c, err := Dial(ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRecommendOverRPC(t *testing.T) {
	c := setup(t, true)
	resp, err := c.Recommend(context.Background(), &proto.RecommendRequest{Query: "noodles", TopK: i32(1)})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "pho-1" {
		t.Fatalf("results = %+v", resp.Results)
	}
	r := resp.Results[0]
	if r.ScoreComponents.TFIDF <= 0 || r.DistanceMiles <= 0 || len(r.Why) == 0 {
		t.Errorf("result = %+v", r)
	}
}

func TestRecommendRejectsUnknownDietary(t *testing.T) {
	c := setup(t, true)
	_, err := c.Recommend(context.Background(), &proto.RecommendRequest{Dietary: "keto"})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestRecommendRequestMatchesHTTP(t *testing.T) {
	c := setup(t, true)
	tests := []struct {
		name    string
		req     *proto.RecommendRequest
		invalid bool
		want    int
	}{
		{"default limit", &proto.RecommendRequest{}, false, 2},
		{"explicit zero", &proto.RecommendRequest{TopK: i32(0)}, true, 0},
		{"negative", &proto.RecommendRequest{TopK: i32(-1)}, true, 0},
		{"halal alias", &proto.RecommendRequest{Halal: true}, false, 0},
		{"halal conflicts", &proto.RecommendRequest{Dietary: "vegan", Halal: true}, true, 0},
		{"dietary filter", &proto.RecommendRequest{Dietary: "gluten_free"}, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.Recommend(context.Background(), tt.req)
			if tt.invalid {
				if !errors.Is(err, apperrors.ErrInvalidInput) {
					t.Errorf("error = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(resp.Results) != tt.want {
				t.Errorf("got %d results, want %d", len(resp.Results), tt.want)
			}
		})
	}
}

func TestHealthAndRefreshOverRPC(t *testing.T) {
	c := setup(t, false)
	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != proto.StatusNotServing {
		t.Errorf("status before refresh = %s", h.Status)
	}
	if _, err := c.Recommend(context.Background(), &proto.RecommendRequest{}); !errors.Is(err, apperrors.ErrIndexNotReady) {
		t.Errorf("recommend before refresh = %v, want ErrIndexNotReady", err)
	}

	ack, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !ack.OK || ack.Count != 2 || ack.Version != 1 {
		t.Errorf("ack = %+v", ack)
	}
	h, err = c.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != proto.StatusServing || h.Count != 2 {
		t.Errorf("health = %+v", h)
	}
}
