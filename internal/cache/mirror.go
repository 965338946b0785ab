package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/watson9049/billygold-website/internal/domain"
)

const mirrorKeyPrefix = "quote:"

// RedisSetter is the subset of the redis client the mirror needs.
type RedisSetter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisMirror publishes resolved quotes to Redis so other storefront
// processes can read them. The engine never reads them back.
type RedisMirror struct {
	redis RedisSetter
	ttl   time.Duration
}

func NewRedisMirror(client RedisSetter, ttl time.Duration) *RedisMirror {
	return &RedisMirror{redis: client, ttl: ttl}
}

func MirrorKey(kind domain.QuoteKind) string {
	return mirrorKeyPrefix + string(kind)
}

// Publish writes q under quote:<kind>. A zero ttl keeps the key forever.
func (m *RedisMirror) Publish(ctx context.Context, q domain.Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote %s: %w", q.Kind, err)
	}
	if err := m.redis.Set(ctx, MirrorKey(q.Kind), data, m.ttl).Err(); err != nil {
		return fmt.Errorf("mirror quote %s: %w", q.Kind, err)
	}
	return nil
}
