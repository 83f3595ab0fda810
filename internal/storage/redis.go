package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"wallet_go/internal/domain"
)

const updatedAtSuffix = ":updated_at"

// RedisKV persists preference strings in Redis under "<namespace>:<key>".
type RedisKV struct {
	client    redis.UniversalClient
	namespace string
}

// RedisOptions configures NewRedisKV.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// NewRedisKV connects to Redis and pings it once.
func NewRedisKV(ctx context.Context, opts RedisOptions) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", opts.Addr, err)
	}
	return NewRedisKVWithClient(client, opts.Namespace), nil
}

// NewRedisKVWithClient wraps an existing client.
func NewRedisKVWithClient(client redis.UniversalClient, namespace string) *RedisKV {
	return &RedisKV{client: client, namespace: namespace}
}

func (r *RedisKV) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

// Get returns the value stored under key, or "" when there is none.
func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, nil
}

// Set stores value under key without expiry, together with its write time.
func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(key), value, 0)
		pipe.Set(ctx, r.key(key)+updatedAtSuffix, time.Now().UnixMicro(), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Setting returns the value of key and when it was written.
func (r *RedisKV) Setting(ctx context.Context, key string) (domain.Setting, bool, error) {
	vals, err := r.client.MGet(ctx, r.key(key), r.key(key)+updatedAtSuffix).Result()
	if err != nil {
		return domain.Setting{}, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	value, ok := vals[0].(string)
	if !ok {
		return domain.Setting{}, false, nil
	}
	st := domain.Setting{Key: key, Value: value}
	if ts, ok := vals[1].(string); ok {
		st.UpdatedAtUnixM, _ = strconv.ParseInt(ts, 10, 64)
	}
	return st, true, nil
}

// Close closes the client.
func (r *RedisKV) Close() error {
	return r.client.Close()
}
