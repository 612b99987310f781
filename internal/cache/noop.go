package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing.
// Used as a fallback when Redis is unavailable - all operations succeed
// but no actual caching occurs (always cache miss).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// GetSearch always returns nil (cache miss)
func (c *NoOpCache) GetSearch(ctx context.Context, patientID int64, key string) ([]byte, error) {
	return nil, nil
}

// SetSearch does nothing and always succeeds
func (c *NoOpCache) SetSearch(ctx context.Context, patientID int64, key string, data []byte, ttl time.Duration) error {
	return nil
}

// InvalidatePatient does nothing and always succeeds
func (c *NoOpCache) InvalidatePatient(ctx context.Context, patientID int64) error {
	return nil
}

// Close does nothing and always succeeds
func (c *NoOpCache) Close() error {
	return nil
}
