package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/testnet-portal/internal/apiclient"
)

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) ListLeaderboard(_ context.Context, q apiclient.LeaderboardQuery) (*apiclient.ListLeaderboardResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &apiclient.ListLeaderboardResponse{Data: []apiclient.User{
		{ID: 1, Graffiti: "first-" + q.CountryCode, Rank: 1},
		{ID: 2, Graffiti: "second", Rank: 2},
	}}, nil
}

type mapCache struct {
	entries map[string]string
	ttls    map[string]time.Duration
	readErr error
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Get(_ context.Context, key string) (string, error) {
	if c.readErr != nil {
		return "", c.readErr
	}
	v, ok := c.entries[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

func TestLeaderboardService_CachesByQuery(t *testing.T) {
	source := &countingSource{}
	cache := newMapCache()
	svc := NewLeaderboardService(source, cache, 30*time.Second, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		resp, err := svc.List(ctx, apiclient.LeaderboardQuery{CountryCode: "de"})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(resp.Data) != 2 || resp.Data[0].Graffiti != "first-de" {
			t.Fatalf("resp = %+v", resp.Data)
		}
	}
	if source.calls != 1 {
		t.Fatalf("backend calls = %d, want 1", source.calls)
	}
	if ttl := cache.ttls["leaderboard:|DE|"]; ttl != 30*time.Second {
		t.Fatalf("cached ttl = %v, want 30s", ttl)
	}

	if _, err := svc.List(ctx, apiclient.LeaderboardQuery{Search: "x"}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("backend calls = %d, want 2 for a new query", source.calls)
	}
}

func TestLeaderboardService_CacheFailureFallsThrough(t *testing.T) {
	source := &countingSource{}
	cache := newMapCache()
	cache.readErr = errors.New("connection refused")
	svc := NewLeaderboardService(source, cache, time.Minute, nil)

	if _, err := svc.List(context.Background(), apiclient.LeaderboardQuery{}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("backend calls = %d, want 1", source.calls)
	}
}

func TestLeaderboardService_DisabledCacheAndErrors(t *testing.T) {
	source := &countingSource{}
	svc := NewLeaderboardService(source, nil, time.Minute, nil)
	svc.List(context.Background(), apiclient.LeaderboardQuery{})
	svc.List(context.Background(), apiclient.LeaderboardQuery{})
	if source.calls != 2 {
		t.Fatalf("backend calls = %d, want 2 without cache", source.calls)
	}

	source.err = errors.New("backend down")
	if _, err := svc.List(context.Background(), apiclient.LeaderboardQuery{}); err == nil {
		t.Fatal("expected backend error")
	}
}
