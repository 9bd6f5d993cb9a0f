package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-builder/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

// ErrLockHeld is returned when another holder owns the lock
var ErrLockHeld = errors.New("lock held by another holder")

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
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

	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks that Redis answers
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func pageKey(slug string) string {
	return fmt.Sprintf("checkout:page:%s", slug)
}

func idempotencyKey(pageID, key string) string {
	return fmt.Sprintf("idempotency:order:%s:%s", pageID, key)
}

func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

// GetPage returns the cached storefront copy of a page, or nil on a miss
func (c *Client) GetPage(ctx context.Context, slug string) (*models.CheckoutPage, error) {
	raw, err := c.rdb.Get(ctx, pageKey(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read page cache: %w", err)
	}

	var page models.CheckoutPage
	if err := json.Unmarshal(raw, &page); err != nil {
		// a stale encoding is treated as a miss
		_ = c.rdb.Del(ctx, pageKey(slug)).Err()
		return nil, nil
	}
	return &page, nil
}

// SetPage caches a page under its slug
func (c *Client) SetPage(ctx context.Context, page *models.CheckoutPage, ttl time.Duration) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}
	return c.rdb.Set(ctx, pageKey(page.Slug), raw, ttl).Err()
}

// InvalidatePage drops the cached copies for the given slugs
func (c *Client) InvalidatePage(ctx context.Context, slugs ...string) error {
	if len(slugs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s != "" {
			keys = append(keys, pageKey(s))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// ClaimIdempotencyKey reserves key for a new order. It returns the order id
// already bound to the key when the key was claimed before.
func (c *Client) ClaimIdempotencyKey(ctx context.Context, pageID, key, orderID string, ttl time.Duration) (string, bool, error) {
	k := idempotencyKey(pageID, key)

	ok, err := c.rdb.SetNX(ctx, k, orderID, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if ok {
		return orderID, true, nil
	}

	existing, err := c.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls, try once more
		ok, err = c.rdb.SetNX(ctx, k, orderID, ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("failed to claim idempotency key: %w", err)
		}
		return orderID, ok, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	return existing, false, nil
}

// ReleaseIdempotencyKey forgets a claimed key so a failed submission can be retried
func (c *Client) ReleaseIdempotencyKey(ctx context.Context, pageID, key string) error {
	return c.rdb.Del(ctx, idempotencyKey(pageID, key)).Err()
}

// AcquireLock acquires a distributed lock and returns the release token
func (c *Client) AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, lockKey(name), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return "", ErrLockHeld
	}
	return token, nil
}

// ReleaseLock releases a lock if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, name, token string) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{lockKey(name)}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}
