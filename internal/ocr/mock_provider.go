package ocr

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of Provider using testify/mock.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Extract(ctx context.Context, content []byte, mimeType string) (string, error) {
	args := m.Called(ctx, content, mimeType)
	return args.String(0), args.Error(1)
}
