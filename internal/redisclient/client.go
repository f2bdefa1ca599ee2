package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backoffice-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// ChangeChannel is the pub/sub channel carrying a tenant's change events
func ChangeChannel(tenantID string) string {
	return "changes:" + tenantID
}

// PublishChange fans a change event out to the tenant's live subscribers
func (c *Client) PublishChange(ctx context.Context, event *models.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := c.rdb.Publish(ctx, ChangeChannel(event.TenantID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// SubscribeChanges subscribes to a tenant's change events. The caller closes
// the returned subscription.
func (c *Client) SubscribeChanges(ctx context.Context, tenantID string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, ChangeChannel(tenantID))
}

// CachedResponse is a response stored under an idempotency key
type CachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

// SaveResponse stores a response under an idempotency key with TTL
func (c *Client) SaveResponse(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, idempotencyKey(key), payload, ttl).Err()
}

// LoadResponse returns the response stored under an idempotency key, nil if
// there is none
func (c *Client) LoadResponse(ctx context.Context, key string) (*CachedResponse, error) {
	payload, err := c.rdb.Get(ctx, idempotencyKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp CachedResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("corrupt idempotency entry %s: %w", key, err)
	}
	return &resp, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
