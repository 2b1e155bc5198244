package cache

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// populateScript writes every field of a hash in one HSET and arms its TTL,
// but only when the key is absent. ARGV[1] is the TTL in milliseconds (zero
// for none), the rest are field/value pairs.
var populateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
local ttl = tonumber(ARGV[1])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
return 1
`)

// setExistingScript updates a single field only while the hash exists, so a
// write racing an expiry can never resurrect the key without a TTL.
var setExistingScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// Redis is a Store backed by a Redis server.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed store. The connection is established
// lazily; call Ping to verify reachability.
func NewRedis(opts RedisOptions) *Redis {
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:        opts.Addr,
			Password:    opts.Password,
			DB:          opts.DB,
			DialTimeout: dialTimeout,
		}),
	}
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable("exists", err)
	}
	return n > 0, nil
}

func (r *Redis) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := r.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("hget", err)
	}
	return v, true, nil
}

func (r *Redis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, unavailable("hgetall", err)
	}
	return m, nil
}

func (r *Redis) HSetIfAbsent(ctx context.Context, key string, fields map[string]string, ttl time.Duration) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	args := make([]interface{}, 0, len(fields)*2+1)
	args = append(args, max(ttl.Milliseconds(), 0))
	for _, f := range names {
		args = append(args, f, fields[f])
	}

	n, err := populateScript.Run(ctx, r.client, []string{key}, args...).Int()
	if err != nil {
		return false, unavailable("populate", err)
	}
	return n == 1, nil
}

func (r *Redis) HSetIfExists(ctx context.Context, key, field, value string) (bool, error) {
	n, err := setExistingScript.Run(ctx, r.client, []string{key}, field, value).Int()
	if err != nil {
		return false, unavailable("hset", err)
	}
	return n == 1, nil
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return unavailable("expire", err)
	}
	return nil
}

func (r *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, unavailable("ttl", err)
	}
	return d, nil
}

func (r *Redis) Del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return unavailable("del", err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
