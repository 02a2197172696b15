package config

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xmcp/store"
	"github.com/redis/go-redis/v9"
)

// NewStore returns redis store when RedisURL is configured,
// otherwise the in-memory store
func (c *StoreConfig) NewStore(ctx context.Context) (store.Store, error) {
	if c.RedisURL == "" {
		return store.NewMemoryStore(), nil
	}

	opts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis URL")
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis %s", opts.Addr)
	}

	logger.ContextKV(ctx, xlog.INFO, "store", "redis", "addr", opts.Addr, "prefix", c.Prefix)
	return store.NewRedisStore(client, c.Prefix), nil
}
