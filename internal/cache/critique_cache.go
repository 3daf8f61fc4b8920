package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// CachedCritique is the hot-path cache entry for an already analyzed photo,
// keyed by SHA-256 content hash.
type CachedCritique struct {
	ContentHash string `json:"content_hash"`
	Filename    string `json:"filename"`
	Critique    string `json:"critique"`
	ExifJSON    string `json:"exif_json,omitempty"`
}

// CritiqueCache fronts the SQLite analysis table with Redis so repeat
// uploads of the same bytes skip the database entirely.
type CritiqueCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewCritiqueCache(client *redisv9.Client, ttl time.Duration) *CritiqueCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CritiqueCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *CritiqueCache) Get(ctx context.Context, contentHash string) (*CachedCritique, bool, error) {
	raw, err := c.client.Get(ctx, c.key(contentHash)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get critique failed: %w", err)
	}

	var cached CachedCritique
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached critique failed: %w", err)
	}
	return &cached, true, nil
}

func (c *CritiqueCache) Set(ctx context.Context, entry CachedCritique) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal critique cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(entry.ContentHash), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set critique failed: %w", err)
	}
	return nil
}

func (c *CritiqueCache) Delete(ctx context.Context, contentHash string) error {
	if err := c.client.Del(ctx, c.key(contentHash)).Err(); err != nil {
		return fmt.Errorf("redis delete critique failed: %w", err)
	}
	return nil
}

func (c *CritiqueCache) key(contentHash string) string {
	return "photo:critique:" + contentHash
}
