package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Fixed implements a fixed window limiter on top of a ulule limiter store.
type Fixed struct {
	Store limiter.Store
}

var _ Allower = Fixed{}

// NewFixedRedis builds a fixed window limiter storing counters in Redis.
func NewFixedRedis(client *redis.Client, prefix string) (Fixed, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return Fixed{}, err
	}
	return Fixed{Store: store}, nil
}

// Allow implements Allower.
func (f Fixed) Allow(ctx context.Context, key string, window time.Duration, limit int) (Decision, error) {
	if f.Store == nil || limit <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: limit, Reset: time.Now().Add(window)}, nil
	}
	lim := limiter.New(f.Store, limiter.Rate{Period: window, Limit: int64(limit)})
	res, err := lim.Get(ctx, key)
	if err != nil {
		return Decision{Reset: time.Now().Add(window)}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Remaining: int(res.Remaining),
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}
