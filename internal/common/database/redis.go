package database

import (
	"context"
	"fmt"
	"time"

	"compound-site/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient holds application drafts. Commands are short single-key
// GET/SET/DEL calls.
type RedisClient struct {
	Client *redis.Client
}

func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Address,
		Password:        cfg.Password,
		DB:              cfg.DB,
		DialTimeout:     3 * time.Second,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		PoolSize:        8,
		MinIdleConns:    1,
		ConnMaxIdleTime: 10 * time.Minute,
	})

	return &RedisClient{Client: rdb}, nil
}

// Ping is used both for the startup retry loop and the /ready check.
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s unreachable: %w", c.Client.Options().Addr, err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

func (c *RedisClient) GetClient() *redis.Client {
	return c.Client
}
