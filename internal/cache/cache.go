package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Cache stores serialized search responses keyed per patient, so one
// patient's invalidation never touches another's entries.
type Cache interface {
	// GetSearch retrieves a cached search result. Returns nil on miss.
	GetSearch(ctx context.Context, patientID int64, key string) ([]byte, error)

	// SetSearch stores a serialized search result with TTL.
	SetSearch(ctx context.Context, patientID int64, key string, data []byte, ttl time.Duration) error

	// InvalidatePatient removes every cached search for a patient.
	InvalidatePatient(ctx context.Context, patientID int64) error

	// Close closes the cache connection.
	Close() error
}

// SearchKey derives a stable cache key from the search parameters.
func SearchKey(query string, topK int, documentTypes []string, documentID int64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%d", query, topK, strings.Join(documentTypes, ","), documentID)
	return hex.EncodeToString(h.Sum(nil))
}
