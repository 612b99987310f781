package cache

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockCache is a mock implementation of the Cache interface for testing
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetSearch(ctx context.Context, patientID int64, key string) ([]byte, error) {
	args := m.Called(ctx, patientID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCache) SetSearch(ctx context.Context, patientID int64, key string, data []byte, ttl time.Duration) error {
	args := m.Called(ctx, patientID, key, data, ttl)
	return args.Error(0)
}

func (m *MockCache) InvalidatePatient(ctx context.Context, patientID int64) error {
	args := m.Called(ctx, patientID)
	return args.Error(0)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}
