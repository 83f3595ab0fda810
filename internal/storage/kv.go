// Package storage persists the currency preference in SQLite or Redis.
package storage

import (
	"context"

	"wallet_go/internal/domain"
)

// KV is what both backends provide.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Setting(ctx context.Context, key string) (domain.Setting, bool, error)
	Close() error
}

var (
	_ KV = (*KVStore)(nil)
	_ KV = (*RedisKV)(nil)
)
