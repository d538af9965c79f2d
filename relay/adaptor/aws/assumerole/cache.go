package assumerole

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
)

// Cache stores temporary credentials by BaseCredentials.CacheKey.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (*TemporaryCredentials, bool)
	Set(ctx context.Context, key string, creds *TemporaryCredentials, ttl time.Duration) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*TemporaryCredentials, bool) { return nil, false }

func (NopCache) Set(context.Context, string, *TemporaryCredentials, time.Duration) error { return nil }

// MemoryCache keeps credentials in process.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{store: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (*TemporaryCredentials, bool) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, false
	}
	creds, ok := v.(*TemporaryCredentials)
	return creds, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, creds *TemporaryCredentials, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.store.Set(key, creds, ttl)
	return nil
}

// RedisCache shares credentials between gateway replicas.
type RedisCache struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedisCache(rdb redis.Cmdable, prefix string) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (r *RedisCache) Get(ctx context.Context, key string) (*TemporaryCredentials, bool) {
	raw, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}

	creds := new(TemporaryCredentials)
	if err = json.Unmarshal(raw, creds); err != nil {
		return nil, false
	}
	return creds, true
}

func (r *RedisCache) Set(ctx context.Context, key string, creds *TemporaryCredentials, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(creds)
	if err != nil {
		return errors.Wrap(err, "marshal temporary credentials")
	}
	if err = r.rdb.Set(ctx, r.prefix+key, raw, ttl).Err(); err != nil {
		return errors.Wrapf(err, "set redis key %s", r.prefix+key)
	}
	return nil
}
