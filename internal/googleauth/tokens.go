package googleauth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache keeps refreshed Google access tokens in Redis keyed by
// google_id, expiring a minute before the token itself does. Misses are
// not errors; callers fall back to the refresh token.
type TokenCache struct {
	rdb *redis.Client
}

func NewTokenCache(rdb *redis.Client) *TokenCache {
	return &TokenCache{rdb: rdb}
}

func (c *TokenCache) Get(ctx context.Context, googleID string) (string, bool) {
	if c.rdb == nil {
		return "", false
	}
	token, err := c.rdb.Get(ctx, tokenKey(googleID)).Result()
	if err != nil {
		return "", false
	}
	return token, true
}

func (c *TokenCache) Put(ctx context.Context, googleID, accessToken string, expiry time.Time) {
	if c.rdb == nil {
		return
	}
	ttl := time.Until(expiry) - time.Minute
	if ttl <= 0 {
		return
	}
	// Best effort; a cache write failure just means a refresh next time.
	c.rdb.Set(ctx, tokenKey(googleID), accessToken, ttl)
}

func tokenKey(googleID string) string {
	return "oauth:token:" + googleID
}
