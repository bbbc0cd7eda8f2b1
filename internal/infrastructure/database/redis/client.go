// Package redis provides the Redis connection and the distributed lock that
// serializes vector index builds across replicas.
package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whoiskiwi/PatentSearch/internal/config"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

var ErrClientClosed = apperrors.New(apperrors.CodeUnavailable, "redis client is closed")

const defaultKeyPrefix = "patentsearch:"

// Client wraps a Redis connection and namespaces every key it hands out.
type Client struct {
	rdb    redis.UniversalClient
	prefix string
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects to a standalone Redis and verifies it with PING.
func NewClient(ctx context.Context, cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	log = logging.OrNop(log)
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dial,
	})
	c := NewClientFromRedis(rdb, cfg.KeyPrefix, log)

	pingCtx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		_ = rdb.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "redis connection failed").WithDetail(cfg.Addr)
	}

	log.Info("Redis client connected", logging.String("addr", cfg.Addr), logging.Int("db", cfg.DB))
	return c, nil
}

// NewClientFromRedis wraps an existing go-redis client.
func NewClientFromRedis(rdb redis.UniversalClient, keyPrefix string, log logging.Logger) *Client {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Client{rdb: rdb, prefix: keyPrefix, logger: logging.OrNop(log)}
}

// Ping fails with ErrClientClosed after Close.
func (c *Client) Ping(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	return c.rdb.Ping(ctx).Err()
}

// Close is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.rdb.Close()
	if err == nil {
		c.logger.Info("Closed Redis client")
	} else {
		c.logger.Error("Failed to close Redis client", logging.Err(err))
	}
	return err
}

// Key prefixes name with the configured namespace.
func (c *Client) Key(name string) string { return c.prefix + name }

// GetUnderlyingClient exposes the raw go-redis client.
func (c *Client) GetUnderlyingClient() redis.UniversalClient { return c.rdb }

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
