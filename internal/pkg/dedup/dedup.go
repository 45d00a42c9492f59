package dedup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "vocabot:dedup:update:"

// Deduplicator remembers processed Telegram update ids for a while so that a
// restarted poller with a stale offset does not handle them twice.
type Deduplicator struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduplicator(rdb *redis.Client, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Deduplicator{
		rdb: rdb,
		ttl: ttl,
	}
}

// Seen marks the update as processed and reports whether it already was.
// A nil Deduplicator never reports duplicates.
func (d *Deduplicator) Seen(ctx context.Context, updateID int) (bool, error) {
	if d == nil || d.rdb == nil {
		return false, nil
	}
	ok, err := d.rdb.SetNX(ctx, key(updateID), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx (update_id: %d): %w", updateID, err)
	}
	return !ok, nil
}

func key(updateID int) string {
	return keyPrefix + strconv.Itoa(updateID)
}
