package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(addr, password string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisCache{
		client: client,
	}, nil
}

// searchKey namespaces entries by patient so invalidation can target one
// patient's keys with a single SCAN pattern.
func searchKey(patientID int64, key string) string {
	return fmt.Sprintf("search:%d:%s", patientID, key)
}

// GetSearch retrieves a cached search result. Returns nil on miss.
func (c *RedisCache) GetSearch(ctx context.Context, patientID int64, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, searchKey(patientID, key)).Bytes()
	if err == redis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SetSearch stores a serialized search result with TTL.
func (c *RedisCache) SetSearch(ctx context.Context, patientID int64, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, searchKey(patientID, key), data, ttl).Err()
}

// InvalidatePatient removes every cached search for a patient.
func (c *RedisCache) InvalidatePatient(ctx context.Context, patientID int64) error {
	pattern := fmt.Sprintf("search:%d:*", patientID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	pipe := c.client.Pipeline()
	count := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if count > 0 {
		_, err := pipe.Exec(ctx)
		return err
	}
	return nil
}

// Close closes the cache connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
