package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	applogger "MarketPulse/pkg/logger"
)

// RedisUniverseSource reads the ticker universe from the pipeline
// store's Redis sets: one set for tickers with live executions (hot),
// one for tickers merely configured in a pipeline (warm). The sets are
// owned by the trading pipelines; this side only reads them.
type RedisUniverseSource struct {
	client  *redis.Client
	hotKey  string
	warmKey string
	l       *applogger.Logger
}

func NewRedisUniverseSource(client *redis.Client, hotKey, warmKey string) *RedisUniverseSource {
	return &RedisUniverseSource{
		client:  client,
		hotKey:  hotKey,
		warmKey: warmKey,
	}
}

// SetLogger injects a structured logger.
func (s *RedisUniverseSource) SetLogger(l *applogger.Logger) { s.l = l }

// FetchHot returns tickers with live executions, sorted and uppercased.
func (s *RedisUniverseSource) FetchHot(ctx context.Context) ([]string, error) {
	return s.fetchSet(ctx, s.hotKey)
}

// FetchWarm returns tickers configured in any pipeline.
func (s *RedisUniverseSource) FetchWarm(ctx context.Context) ([]string, error) {
	return s.fetchSet(ctx, s.warmKey)
}

func (s *RedisUniverseSource) fetchSet(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		if s.l != nil {
			s.l.Error("universe set read error",
				applogger.String("key", key),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}

	out := make([]string, 0, len(members))
	for _, m := range members {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}
