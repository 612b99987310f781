package cache

import (
	"context"
	"testing"
	"time"
)

// TestNoOpCache verifies that NoOpCache implements the Cache interface correctly
func TestNoOpCache(t *testing.T) {
	cache := NewNoOpCache()
	ctx := context.Background()

	// GetSearch should always return nil (cache miss)
	data, err := cache.GetSearch(ctx, 1, "test-key")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if data != nil {
		t.Errorf("Expected nil result (cache miss), got %v", data)
	}

	// SetSearch should succeed silently
	if err := cache.SetSearch(ctx, 1, "test-key", []byte(`{"results":[]}`), time.Hour); err != nil {
		t.Errorf("Expected no error on SetSearch, got %v", err)
	}

	// Verify it still returns nil (nothing was actually cached)
	data, err = cache.GetSearch(ctx, 1, "test-key")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if data != nil {
		t.Errorf("Expected nil result (no-op cache doesn't store), got %v", data)
	}

	// InvalidatePatient should succeed silently
	if err := cache.InvalidatePatient(ctx, 1); err != nil {
		t.Errorf("Expected no error on InvalidatePatient, got %v", err)
	}

	if err := cache.Close(); err != nil {
		t.Errorf("Expected no error on Close, got %v", err)
	}
}

func TestSearchKeyStable(t *testing.T) {
	a := SearchKey("diabetes medication", 5, []string{"lab_report"}, 0)
	b := SearchKey("diabetes medication", 5, []string{"lab_report"}, 0)
	if a != b {
		t.Error("same parameters should derive the same key")
	}
	if c := SearchKey("diabetes medication", 10, []string{"lab_report"}, 0); c == a {
		t.Error("different top_k should derive a different key")
	}
	if c := SearchKey("diabetes medication", 5, []string{"lab_report"}, 7); c == a {
		t.Error("different document filter should derive a different key")
	}
}
