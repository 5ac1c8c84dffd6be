package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
)

const defaultCacheTTL = time.Minute

// Cached remembers hits of another registry in Redis for a short TTL.
// Misses are never cached: a clinic provisioned after a miss resolves on
// the next lookup.
type Cached struct {
	inner  Registry
	redis  *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewCached(inner Registry, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cached {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cached{
		inner:  inner,
		redis:  client,
		prefix: "registry:backend:",
		ttl:    ttl,
		logger: logger,
	}
}

func (c *Cached) key(subdomain string) string {
	return c.prefix + normalize(subdomain)
}

func (c *Cached) Lookup(ctx context.Context, subdomain string) (domain.Connection, bool, error) {
	key := c.key(subdomain)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var conn domain.Connection
		if jerr := json.Unmarshal([]byte(val), &conn); jerr == nil && conn.Valid() {
			return conn, true, nil
		}
		c.logger.Warn("Dropping unreadable registry cache entry", zap.String("key", key))
		_ = c.redis.Del(ctx, key).Err()
	case err != redis.Nil:
		// cache trouble must not block resolution
		c.logger.Warn("Registry cache read failed", zap.String("key", key), zap.Error(err))
	}

	conn, ok, err := c.inner.Lookup(ctx, subdomain)
	if err != nil || !ok {
		return conn, ok, err
	}

	if raw, jerr := json.Marshal(conn); jerr == nil {
		if serr := c.redis.Set(ctx, key, raw, c.ttl).Err(); serr != nil {
			c.logger.Warn("Registry cache write failed", zap.String("key", key), zap.Error(serr))
		}
	}
	return conn, true, nil
}

// Invalidate forgets the cached entry for subdomain.
func (c *Cached) Invalidate(ctx context.Context, subdomain string) error {
	return c.redis.Del(ctx, c.key(subdomain)).Err()
}
