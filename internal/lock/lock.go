// Package lock implements the process-level advisory lock that keeps two
// instances of the service from racing on the same Store. It uses a Redis
// SETNX lock rather than a local file lock, since the Store this service
// guards is itself a shared network resource: a local file lock only
// protects against multi-process races on one host, not multi-host races
// against the same Postgres database.
package lock

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

//go:embed scripts/unlock.lua
var unlockLua string

const lockKeyPrefix = "lock:"

// ErrHeld is returned by Acquire when another holder already owns the lock.
var ErrHeld = fmt.Errorf("lock held by another process")

// Manager acquires and releases the single process-level advisory lock.
type Manager struct {
	rdb      *redis.Client
	unlockSc *redis.Script
}

// NewManager builds a Manager over an existing Redis client.
func NewManager(rdb *redis.Client) *Manager {
	return &Manager{
		rdb:      rdb,
		unlockSc: redis.NewScript(unlockLua),
	}
}

// Acquire obtains the named lock for ttl. On success it returns an unlock
// function, safe to call more than once, that releases the lock only if
// this holder still owns it. On contention it returns ErrHeld.
func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := lockKeyPrefix + key

	ok, err := m.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true

		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = m.unlockSc.Run(unlockCtx, m.rdb, []string{lk}, token).Err()
	}

	return unlock, nil
}

// Refresh extends the TTL on an already-held lock, keeping it alive for
// the life of the process. Callers typically call this from a ticker.
func (m *Manager) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	lk := lockKeyPrefix + key
	ok, err := m.rdb.Expire(ctx, lk, ttl).Result()
	if err != nil {
		return fmt.Errorf("lock: refresh %s: %w", key, err)
	}
	if !ok {
		return ErrHeld
	}
	return nil
}
