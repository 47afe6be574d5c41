package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client regroupe les petits usages Redis hors panier : blacklist JWT et compteurs de rate limit
type Client struct {
	rdb redis.UniversalClient
}

func NewClient(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb}
}

// --- Blacklist JWT (révocation avant expiration) ---

// BlacklistToken révoque un token jusqu'à son expiration
func (c *Client) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, fmt.Sprintf("blacklist:%s", tokenID), "revoked", ttl).Err()
}

func (c *Client) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	exists, err := c.rdb.Exists(ctx, fmt.Sprintf("blacklist:%s", tokenID)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// --- Rate Limiting ---

// IncrementRateLimit incrémente le compteur ; la fenêtre démarre au premier appel
func (c *Client) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (c *Client) GetRateLimit(ctx context.Context, key string) (int64, error) {
	val, err := c.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return val, err
}

// Cooldown pose un verrou temporaire ; TTL retourne le temps restant (0 si absent)
func (c *Client) Cooldown(ctx context.Context, key string, d time.Duration) error {
	return c.rdb.Set(ctx, key, "1", d).Err()
}

func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (c *Client) Reset(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Ping sert au healthcheck
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
