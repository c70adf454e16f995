// Package rpc exposes the recommender over the internal JSON-over-TCP RPC
// layer and provides a typed client for it.
package rpc

import (
	"context"
	"encoding/json"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/recommend"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/proto"
)

// Recommender is the service surface served over RPC.
type Recommender interface {
	Recommend(ctx context.Context, q recommend.Query) (*recommend.Result, error)
	Refresh(ctx context.Context) (*recommend.RefreshResult, error)
	Health() recommend.Health
}

// Register binds the Recommender methods on s.
func Register(s *grpc.Server, svc Recommender) {
	s.Register(proto.MethodRecommend, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.RecommendRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, apperrors.Invalid("decoding recommend request: %v", err)
		}
		r := recommend.Request{Query: req.Query, Dietary: req.Dietary, Halal: req.Halal}
		if req.TopK != nil {
			k := int(*req.TopK)
			r.TopK = &k
		}
		q, err := r.ToQuery()
		if err != nil {
			return nil, err
		}
		res, err := svc.Recommend(ctx, q)
		if err != nil {
			return nil, err
		}
		return toProto(res), nil
	})

	s.Register(proto.MethodRefresh, func(ctx context.Context, _ json.RawMessage) (any, error) {
		res, err := svc.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		return &proto.RefreshResponse{
			OK:           true,
			Count:        int32(res.Count),
			Version:      res.Version,
			ReloadedFrom: res.Source,
		}, nil
	})

	s.Register(proto.MethodHealth, func(context.Context, json.RawMessage) (any, error) {
		h := svc.Health()
		status := proto.StatusNotServing
		if h.Ready {
			status = proto.StatusServing
		}
		return &proto.HealthCheckResponse{Status: status, Count: int32(h.RecordCount), Version: h.Version}, nil
	})
}

func toProto(res *recommend.Result) *proto.RecommendResponse {
	out := &proto.RecommendResponse{
		Query:         res.Query,
		ResolvedQuery: res.Resolved,
		Version:       res.Version,
		Candidates:    int32(res.Candidates),
		Results:       make([]proto.RecommendedRestaurant, len(res.Recommendations)),
		LatencyMs:     res.TookMs,
	}
	for i, rc := range res.Recommendations {
		r := proto.RecommendedRestaurant{
			ID:      rc.ID,
			Name:    rc.Name,
			Address: rc.Address,
			Score:   rc.Score,
			ScoreComponents: proto.ScoreComponents{
				TFIDF:    rc.Components.Relevance,
				Distance: rc.Components.Proximity,
				Open:     rc.Components.Availability,
				Rating:   rc.Components.Quality,
			},
			Why: rc.Why,
		}
		if rc.DistanceMiles != nil {
			r.DistanceMiles = *rc.DistanceMiles
		}
		out.Results[i] = r
	}
	return out
}

// Client calls a remote recommender.
type Client struct {
	conn *grpc.Client
}

// Dial connects to a recommender RPC listener.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.Dial(addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Recommend(ctx context.Context, req *proto.RecommendRequest) (*proto.RecommendResponse, error) {
	var resp proto.RecommendResponse
	if err := c.conn.Call(ctx, proto.MethodRecommend, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Refresh(ctx context.Context) (*proto.RefreshResponse, error) {
	var resp proto.RefreshResponse
	if err := c.conn.Call(ctx, proto.MethodRefresh, &proto.RefreshRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Health(ctx context.Context) (*proto.HealthCheckResponse, error) {
	var resp proto.HealthCheckResponse
	if err := c.conn.Call(ctx, proto.MethodHealth, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
