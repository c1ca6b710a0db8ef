package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/testnet-portal/internal/apiclient"
)

const leaderboardKeyPrefix = "leaderboard:"

// LeaderboardSource fetches the ranked user list from the backend.
type LeaderboardSource interface {
	ListLeaderboard(ctx context.Context, q apiclient.LeaderboardQuery) (*apiclient.ListLeaderboardResponse, error)
}

// Cache is the subset of a key/value store the leaderboard needs. A miss
// returns redis.Nil; persistence.Redis implements it.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// LeaderboardService serves the leaderboard, caching backend responses.
type LeaderboardService struct {
	source LeaderboardSource
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewLeaderboardService creates the service. A nil cache or non-positive
// ttl disables caching.
func NewLeaderboardService(source LeaderboardSource, cache Cache, ttl time.Duration, logger *zap.Logger) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{source: source, cache: cache, ttl: ttl, logger: logger}
}

// List returns the leaderboard for q. Cache failures fall through to the
// backend.
func (s *LeaderboardService) List(ctx context.Context, q apiclient.LeaderboardQuery) (*apiclient.ListLeaderboardResponse, error) {
	caching := s.cache != nil && s.ttl > 0
	key := leaderboardKey(q)

	if caching {
		raw, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var cached apiclient.ListLeaderboardResponse
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
			s.logger.Warn("discarding undecodable leaderboard cache entry", zap.String("key", key))
		case !errors.Is(err, redis.Nil):
			s.logger.Warn("leaderboard cache read failed", zap.Error(err))
		}
	}

	resp, err := s.source.ListLeaderboard(ctx, q)
	if err != nil {
		return nil, err
	}

	if caching {
		if raw, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
				s.logger.Warn("leaderboard cache write failed", zap.Error(err))
			}
		}
	}
	return resp, nil
}

func leaderboardKey(q apiclient.LeaderboardQuery) string {
	return leaderboardKeyPrefix + strings.Join([]string{
		strings.ToLower(strings.TrimSpace(q.Search)),
		strings.ToUpper(q.CountryCode),
		q.EventType,
	}, "|")
}
