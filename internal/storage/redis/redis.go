package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Client wraps redis for rate limiting, locks and realtime pub/sub.
type Client struct {
	client *redis.Client
	logger *zap.Logger
}

func New(addr, password string, db int, logger *zap.Logger) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// check connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("successfully connected to Redis")

	return NewWithClient(client, logger), nil
}

func NewWithClient(client *redis.Client, logger *zap.Logger) *Client {
	return &Client{
		client: client,
		logger: logger,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// IncrementWithExpiry increments the counter and refreshes its TTL
func (c *Client) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	if err != nil {
		c.logger.Error("failed to increment with expiry",
			zap.String("key", key),
			zap.Error(err),
		)
		return 0, fmt.Errorf("increment with expiry: %w", err)
	}

	return incrCmd.Val(), nil
}

func (c *Client) IncrementUserRateLimit(ctx context.Context, userID string) (int64, error) {
	return c.IncrementWithExpiry(ctx, RateLimitKey(userID), RateLimitWindowTTL)
}

// AcquireLock sets key to token if it is free. It reports whether the lock was taken.
func (c *Client) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		c.logger.Error("failed to acquire lock",
			zap.String("key", key),
			zap.Error(err),
		)
		return false, fmt.Errorf("acquire lock: %w", err)
	}

	return ok, nil
}

func (c *Client) ReleaseLock(ctx context.Context, key, token string) error {
	err := releaseScript.Run(ctx, c.client, []string{key}, token).Err()
	if err != nil && err != redis.Nil {
		c.logger.Error("failed to release lock",
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("release lock: %w", err)
	}

	return nil
}

func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	err := c.client.Publish(ctx, channel, payload).Err()
	if err != nil {
		c.logger.Error("failed to publish",
			zap.String("channel", channel),
			zap.Error(err),
		)
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

// PSubscribe returns a subscription the caller must close.
func (c *Client) PSubscribe(ctx context.Context, pattern string) *redis.PubSub {
	return c.client.PSubscribe(ctx, pattern)
}
