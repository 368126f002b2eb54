// Package cachesvc implements dashboard.Cache.
package cachesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/dashboard"
)

// Redis caches JSON encoded values with a fixed TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ dashboard.Cache = (*Redis)(nil)

// NewRedis builds a client for the configured Redis. It returns nil when no address is configured: caching is then disabled.
// No connection is made here: an unreachable Redis shows up in Ping (health checks) and as cache misses.
func NewRedis(conf *core.Config) *Redis {
	if conf.Redis.Address == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	return &Redis{client: client, ttl: conf.Redis.TTL}
}

func (r *Redis) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "getting "+key)
	}
	if err = json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrap(err, "decoding "+key)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encoding "+key)
	}
	return errors.Wrap(r.client.Set(ctx, key, data, r.ttl).Err(), "setting "+key)
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(r.client.Del(ctx, keys...).Err(), "deleting keys")
}

func (r *Redis) Ping(ctx context.Context) error {
	return errors.Wrap(r.client.Ping(ctx).Err(), "pinging redis")
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Nop never stores anything. It stands in when Redis is not configured.
type Nop struct{}

var _ dashboard.Cache = Nop{}

func (Nop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, interface{}) error         { return nil }
func (Nop) Delete(context.Context, ...string) error                { return nil }
