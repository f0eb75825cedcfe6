package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stillfm/core/player"
	"stillfm/db"

	"github.com/redis/go-redis/v9"
)

const snapshotTTL = 24 * time.Hour

// PlayerCache persists the last playback snapshot per user so a
// reconnecting mini bar can restore its view instantly. The cache is
// advisory: the in-process coordinator is always authoritative.
type PlayerCache struct {
	client *redis.Client
}

// NewPlayerCache creates a cache over the shared Redis client.
func NewPlayerCache() *PlayerCache {
	return &PlayerCache{client: db.RedisClient}
}

func snapshotKey(userID int64) string {
	return fmt.Sprintf("player:snapshot:%d", userID)
}

// SaveSnapshot stores the latest snapshot for a user.
func (c *PlayerCache) SaveSnapshot(ctx context.Context, userID int64, snap player.Snapshot) error {
	if c.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey(userID), data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the cached snapshot, or (nil, nil) when none exists.
func (c *PlayerCache) LoadSnapshot(ctx context.Context, userID int64) (*player.Snapshot, error) {
	if c.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	data, err := c.client.Get(ctx, snapshotKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load cached snapshot: %w", err)
	}

	var snap player.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached snapshot: %w", err)
	}
	return &snap, nil
}

// ClearSnapshot drops the cached snapshot, e.g. on session teardown.
func (c *PlayerCache) ClearSnapshot(ctx context.Context, userID int64) error {
	if c.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return c.client.Del(ctx, snapshotKey(userID)).Err()
}
