package store

import (
	"math"
	"testing"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		distance float32
		want     float32
	}{
		{"identical vectors", 0, 1},
		{"orthogonal vectors", 1, 0.5},
		{"opposite vectors", 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.distance); got != tt.want {
				t.Errorf("Similarity(%v) = %v, want %v", tt.distance, got, tt.want)
			}
		})
	}
}

func TestPatientLockKeyDistinct(t *testing.T) {
	ids := []int64{1, 2, 42, math.MaxInt32, math.MaxInt32 + 1, math.MaxInt64}
	seen := make(map[int64]int64, len(ids))
	for _, id := range ids {
		key := patientLockKey(id)
		if prev, ok := seen[key]; ok {
			t.Fatalf("patients %d and %d share lock key %d", prev, id, key)
		}
		seen[key] = id
	}
}

func TestSimilarityMonotonic(t *testing.T) {
	prev := Similarity(0)
	for d := float32(0.1); d <= 2; d += 0.1 {
		cur := Similarity(d)
		if cur >= prev {
			t.Fatalf("similarity not strictly decreasing at distance %v", d)
		}
		prev = cur
	}
}
