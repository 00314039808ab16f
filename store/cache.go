package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "journal:entries:"

// SessionCache keeps the last delivered snapshot of each signed-in owner so a
// new session can render a placeholder before its subscription delivers. It
// is never authoritative and is cleared on logout.
type SessionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionCache(rdb *redis.Client, ttl time.Duration) *SessionCache {
	return &SessionCache{rdb: rdb, ttl: ttl}
}

func cacheKey(ownerID string) string {
	return cacheKeyPrefix + ownerID
}

// Load returns the cached documents for ownerID. found is false when nothing
// is cached.
func (c *SessionCache) Load(ctx context.Context, ownerID string) (docs []Document, found bool, err error) {
	raw, err := c.rdb.Get(ctx, cacheKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read entry cache: %w", err)
	}
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, false, fmt.Errorf("decode entry cache: %w", err)
	}
	return docs, true, nil
}

// Save replaces the cached documents for ownerID.
func (c *SessionCache) Save(ctx context.Context, ownerID string, docs []Document) error {
	encoded := make([]Document, len(docs))
	for i, d := range docs {
		fields := make(map[string]any, len(d.Fields))
		for k, v := range d.Fields {
			if t, ok := v.(time.Time); ok {
				v = TimestampOf(t)
			}
			fields[k] = v
		}
		encoded[i] = Document{ID: d.ID, Fields: fields}
	}
	raw, err := json.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("encode entry cache: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKey(ownerID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write entry cache: %w", err)
	}
	return nil
}

// Clear drops the cached documents for ownerID.
func (c *SessionCache) Clear(ctx context.Context, ownerID string) error {
	if err := c.rdb.Del(ctx, cacheKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("clear entry cache: %w", err)
	}
	return nil
}
