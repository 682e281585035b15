package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const memoryBackendSize = 128

// MemoryBackend is an in-process session storage with a byte quota per value.
type MemoryBackend struct {
	entries    *expirable.LRU[string, []byte]
	quotaBytes int
}

func NewMemoryBackend(quotaBytes int, ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{
		entries:    expirable.NewLRU[string, []byte](memoryBackendSize, nil, ttl),
		quotaBytes: quotaBytes,
	}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := b.entries.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	if b.quotaBytes > 0 && len(value) > b.quotaBytes {
		return ErrQuotaExceeded
	}
	b.entries.Add(key, append([]byte(nil), value...))
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.entries.Remove(key)
	return nil
}

// RedisBackend shares the session snapshot across processes.
type RedisBackend struct {
	client     redis.UniversalClient
	ttl        time.Duration
	quotaBytes int
}

func NewRedisBackend(client redis.UniversalClient, ttl time.Duration, quotaBytes int) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl, quotaBytes: quotaBytes}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return data, err
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	if b.quotaBytes > 0 && len(value) > b.quotaBytes {
		return ErrQuotaExceeded
	}
	return b.client.Set(ctx, key, value, b.ttl).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}
