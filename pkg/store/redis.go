package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	qscontext "github.com/vnykmshr/queuestat/pkg/common/context"
	"github.com/vnykmshr/queuestat/pkg/common/validation"
)

// Config holds configuration for the Redis-backed store.
type Config struct {
	// Redis client used for every read. Single node, sentinel and cluster
	// clients all satisfy UniversalClient.
	Redis redis.UniversalClient

	// Timeout bounds each individual store call (defaults to 250ms).
	Timeout time.Duration
}

// DefaultConfig returns a default store configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 250 * time.Millisecond,
	}
}

// ClientOptions describes how to connect to Redis.
type ClientOptions struct {
	// Addrs lists host:port pairs. More than one address selects a cluster client.
	Addrs    []string
	Password string
	DB       int

	// Timeout is applied to dial, read and write.
	Timeout time.Duration
}

// NewClient creates a go-redis client for opts. Call deadlines come from the
// per-call context, so a hung connection cannot stall a sample cycle past
// the configured timeout.
func NewClient(opts ClientOptions) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:                 opts.Addrs,
		Password:              opts.Password,
		DB:                    opts.DB,
		DialTimeout:           opts.Timeout,
		ReadTimeout:           opts.Timeout,
		WriteTimeout:          opts.Timeout,
		ContextTimeoutEnabled: true,
		PoolSize:              2,
	})
}

// Redis implements Store on top of go-redis.
type Redis struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewRedis creates a Redis store. The client is not contacted.
func NewRedis(config Config) (*Redis, error) {
	if config.Redis == nil {
		return nil, validation.ValidateNotNil("store", "redis", nil)
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if err := validation.ValidatePositiveDuration("store", "timeout", config.Timeout); err != nil {
		return nil, err
	}

	return &Redis{
		client:  config.Redis,
		timeout: config.Timeout,
	}, nil
}

// HGetAll implements Store.
func (r *Redis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	ctx, cancel := qscontext.WithTimeoutOrCancel(ctx, r.timeout)
	defer cancel()

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrapError(OpHGetAll, key, err)
	}
	return fields, nil
}

// SCard implements Store.
func (r *Redis) SCard(ctx context.Context, key string) (int64, error) {
	ctx, cancel := qscontext.WithTimeoutOrCancel(ctx, r.timeout)
	defer cancel()

	n, err := r.client.SCard(ctx, key).Result()
	if err != nil {
		return 0, wrapError(OpSCard, key, err)
	}
	return n, nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := qscontext.WithTimeoutOrCancel(ctx, r.timeout)
	defer cancel()

	return wrapError(OpPing, "", r.client.Ping(ctx).Err())
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
