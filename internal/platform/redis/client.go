// Package redis wraps the go-redis client and implements the donation
// vertical's cache: per-project monthly totals and session-scoped migration
// prompt dismissals.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"givers/internal/platform/config"
	id "givers/pkg/domain"
)

// Client wraps the go-redis client with health checking capabilities.
type Client struct {
	*redis.Client
}

// New creates a new Redis client from the provided configuration.
// Returns nil if the URL is empty (Redis not configured).
func New(cfg config.Redis) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.Client.Close()
}

// Cache implements the donation service cache on a Redis client.
type Cache struct {
	client       *Client
	totalTTL     time.Duration
	dismissalTTL time.Duration
}

// NewCache builds the cache. TTLs bound staleness of totals and the lifetime
// of a session's dismissal.
func NewCache(client *Client, cfg config.Redis) *Cache {
	return &Cache{
		client:       client,
		totalTTL:     cfg.TotalTTL,
		dismissalTTL: cfg.DismissalTTL,
	}
}

func totalKey(projectID id.ProjectID) string {
	return "totals:monthly:" + projectID.String()
}

func dismissalKey(userID id.UserID, sessionID string) string {
	return "migration:dismissed:" + userID.String() + ":" + sessionID
}

// GetMonthlyTotal returns the cached total and whether it was present.
func (c *Cache) GetMonthlyTotal(ctx context.Context, projectID id.ProjectID) (id.Money, bool, error) {
	val, err := c.client.Get(ctx, totalKey(projectID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get monthly total: %w", err)
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached total: %w", err)
	}
	return id.Money(n), true, nil
}

// SetMonthlyTotal caches the total with the configured TTL.
func (c *Cache) SetMonthlyTotal(ctx context.Context, projectID id.ProjectID, total id.Money) error {
	return c.client.Set(ctx, totalKey(projectID), int64(total), c.totalTTL).Err()
}

// InvalidateMonthlyTotal drops the cached total after a write.
func (c *Cache) InvalidateMonthlyTotal(ctx context.Context, projectID id.ProjectID) error {
	return c.client.Del(ctx, totalKey(projectID)).Err()
}

// DismissMigrationPrompt records a session-scoped dismissal.
func (c *Cache) DismissMigrationPrompt(ctx context.Context, userID id.UserID, sessionID string) error {
	return c.client.Set(ctx, dismissalKey(userID, sessionID), "1", c.dismissalTTL).Err()
}

// MigrationPromptDismissed reports whether this session dismissed the prompt.
func (c *Cache) MigrationPromptDismissed(ctx context.Context, userID id.UserID, sessionID string) (bool, error) {
	err := c.client.Get(ctx, dismissalKey(userID, sessionID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get dismissal: %w", err)
	}
	return true, nil
}
