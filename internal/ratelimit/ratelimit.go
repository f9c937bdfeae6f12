// Package ratelimit is a sliding-window rate limiter, backed by Redis
// sorted sets and an atomic Lua script. The Event Router uses it to gate
// microblog posts; chat messages are not rate-limited by it.
package ratelimit

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

const keyPrefix = "ratelimit:"

// Limiter checks whether an action identified by key is permitted under a
// sliding window.
type Limiter struct {
	rdb           *redis.Client
	slidingWindow *redis.Script
}

// New builds a Limiter over an existing Redis client.
func New(rdb *redis.Client) *Limiter {
	return &Limiter{
		rdb:           rdb,
		slidingWindow: redis.NewScript(slidingWindowLua),
	}
}

// Allow reports whether a request for key is permitted under limit
// requests per window. A permitted request is counted against the
// window as a side effect.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMicro()
	windowMicro := window.Microseconds()

	result, err := l.slidingWindow.Run(
		ctx, l.rdb, []string{keyPrefix + key}, now, windowMicro, limit,
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("ratelimit: allow %s: %w", key, err)
	}
	if len(result) < 2 {
		return false, fmt.Errorf("ratelimit: allow %s: unexpected result length %d", key, len(result))
	}

	return result[0] == 1, nil
}
