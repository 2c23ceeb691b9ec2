package repo

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tazhibayda/task-service/internal/helper"
)

type Redis struct{ C *redis.Client }

func NewRedis(addr string) *Redis {
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }

// Allow implements a fixed-window counter per bucket. Redis trouble
// fails open: auth availability beats limiter strictness here.
func (r *Redis) Allow(ctx context.Context, bucket string, limit int, window time.Duration) bool {
	key := "rl:" + helper.Hash8(bucket)
	n, err := r.C.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if n == 1 {
		r.C.Expire(ctx, key, window)
	}
	return n <= int64(limit)
}
