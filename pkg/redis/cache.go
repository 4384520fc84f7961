package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// DeletePrefix removes every cached value whose key starts with keyPrefix
func (c *Cache) DeletePrefix(ctx context.Context, keyPrefix string) (int, error) {
	if !c.client.Enabled() {
		return 0, nil
	}

	rdb := c.client.Redis()
	iter := rdb.Scan(ctx, 0, c.fullKey(keyPrefix)+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("cache scan failed: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("cache delete failed: %w", err)
	}
	return len(keys), nil
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // 응답 캐시 최소
	TTLMedium = 10 * time.Minute // 인사이트 응답
	TTLLong   = 1 * time.Hour    // 매핑 등 기준 데이터
)

// InsightsKeyPrefix scopes all cached insights of one corp
func InsightsKeyPrefix(corpCode string) string {
	return fmt.Sprintf("insights:%s:", corpCode)
}

// InsightsKey identifies one assembled insights response
func InsightsKey(corpCode, scope, reportVariant string, years []string) string {
	return fmt.Sprintf("%s%s:%s:%s", InsightsKeyPrefix(corpCode), scope, reportVariant, strings.Join(years, ","))
}
