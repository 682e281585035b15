package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"access-tool/internal/common/config"
)

const pingTimeout = 2 * time.Second

var ErrNoAddr = errors.New("redis address is empty")

// Client is the session cache connection.
type Client struct {
	*redis.Client
}

// Open connects to addr and checks it answers. An unreachable server is an error so the
// caller can fall back to memory.
func Open(ctx context.Context, addr, password string, db int) (*Client, error) {
	if addr == "" {
		return nil, ErrNoAddr
	}
	c := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: pingTimeout,
		MaxRetries:  1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return &Client{Client: c}, nil
}

// OpenFromConfig opens the redis of cfg.Storage.
func OpenFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	s := cfg.Storage
	return Open(ctx, fmt.Sprintf("%s:%d", s.RedisHost, s.RedisPort), s.RedisPassword, s.RedisDB)
}
