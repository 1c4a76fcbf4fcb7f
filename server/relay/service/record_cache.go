package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	commonlog "relay_server/server/common/log"
	"relay_server/server/relay/domain"
)

const cacheKeyPrefix = "transfer:"

// RecordCache is a read-through cache of fetch results. Entries carry a TTL
// no longer than the record's remaining retention, so the cache can serve
// stale-free hits without any invalidation protocol. Cache failures degrade
// to store lookups and are never surfaced to callers.
type RecordCache struct {
	client *redis.Client
}

func NewRecordCache(client *redis.Client) *RecordCache {
	return &RecordCache{client: client}
}

func (c *RecordCache) Get(ctx context.Context, code string) (domain.Transfer, bool) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+code).Bytes()
	if err != nil {
		// redis.Nil and transient failures are both just misses.
		return domain.Transfer{}, false
	}
	var t domain.Transfer
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.Transfer{}, false
	}
	return t, true
}

func (c *RecordCache) Set(ctx context.Context, code string, t domain.Transfer, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+code, raw, ttl).Err(); err != nil {
		commonlog.Warnf("cache transfer %s: %v", code, err)
	}
}
