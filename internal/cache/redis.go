package cache

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/watson9049/billygold-website/pkg/logging"
)

var Client *redis.Client

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

// InitRedis connects the shared client. Redis only backs the quote mirror,
// so an unreachable server leaves Client nil instead of aborting startup.
func InitRedis(ctx context.Context, addr string) {
	log := logging.For("redis")
	if addr == "" {
		addr = "localhost:6379"
	}

	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			log.WithError(err).Warn("failed to parse REDIS_URL, quote mirror disabled")
			return
		}
		opts = parsed
	}

	client := newRedisClient(opts)
	if err := pingRedis(ctx, client); err != nil {
		log.WithError(err).WithField("addr", opts.Addr).Warn("redis unreachable, quote mirror disabled")
		_ = client.Close()
		return
	}
	Client = client
	log.WithField("addr", opts.Addr).Info("connected to Redis")
}
