package analytics

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RouteCount is one entry of the top routes ranking.
type RouteCount struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Searches    int64  `json:"searches"`
}

// RouteStats reads the counters maintained by RedisWriter.
type RouteStats struct {
	rdb *redis.Client
}

func NewRouteStats(rdb *redis.Client) *RouteStats { return &RouteStats{rdb: rdb} }

// TopRoutes returns the n most searched routes, most searched first.
func (r *RouteStats) TopRoutes(ctx context.Context, n int) ([]RouteCount, error) {
	if n <= 0 {
		n = 5
	}
	zs, err := r.rdb.ZRevRangeWithScores(ctx, RoutesKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]RouteCount, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		out = append(out, parseRoute(member, int64(z.Score)))
	}
	return out, nil
}

// TotalSearches returns the number of searches aggregated so far.
func (r *RouteStats) TotalSearches(ctx context.Context) (int64, error) {
	n, err := r.rdb.Get(ctx, SearchesTotalKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func parseRoute(member string, score int64) RouteCount {
	src, dst, _ := strings.Cut(member, "→")
	return RouteCount{Source: src, Destination: dst, Searches: score}
}
