package common

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/go-redis/redis/v8"

	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/common/logger"
)

// RDB is set by InitRedisClient when REDIS_CONN_STRING is configured.
var RDB redis.Cmdable

var redisEnabled atomic.Bool

func IsRedisEnabled() bool {
	return redisEnabled.Load()
}

// NewRedisClient builds a single node client from a redis:// URL, or a
// sentinel/cluster client when masterName is set.
func NewRedisClient(connString, masterName, password string) (redis.UniversalClient, error) {
	if masterName == "" {
		opt, err := redis.ParseURL(connString)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis connection string")
		}
		return redis.NewClient(opt), nil
	}

	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:      strings.Split(connString, ","),
		Password:   password,
		MasterName: masterName,
	}), nil
}

// InitRedisClient connects to Redis when configured. Without a connection
// string Redis stays disabled and callers fall back to in-process caches.
func InitRedisClient() error {
	if config.RedisConnString == "" {
		redisEnabled.Store(false)
		logger.Logger.Info("REDIS_CONN_STRING not set, credential cache stays in memory")
		return nil
	}

	client, err := NewRedisClient(config.RedisConnString, config.RedisMasterName, config.RedisPassword)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "redis ping")
	}

	if config.RedisMasterName != "" {
		logger.Logger.Info("redis sentinel/cluster mode enabled")
	} else {
		logger.Logger.Info("redis enabled")
	}
	RDB = client
	redisEnabled.Store(true)
	return nil
}
