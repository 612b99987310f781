package store

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"patient-docs/internal/embeddings"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetDocument(ctx context.Context, id int64) (Document, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) ListPatientDocuments(ctx context.Context, patientID int64) ([]Document, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Document), args.Error(1)
}

func (m *MockStore) UpdateDocumentStatus(ctx context.Context, id int64, status DocumentStatus, processedDate *time.Time) error {
	args := m.Called(ctx, id, status, processedDate)
	return args.Error(0)
}

func (m *MockStore) CreateExtraction(ctx context.Context, documentID, patientID int64) (Extraction, error) {
	args := m.Called(ctx, documentID, patientID)
	return args.Get(0).(Extraction), args.Error(1)
}

func (m *MockStore) GetExtraction(ctx context.Context, id int64) (Extraction, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Extraction), args.Error(1)
}

func (m *MockStore) StartExtraction(ctx context.Context, id int64, method string) error {
	args := m.Called(ctx, id, method)
	return args.Error(0)
}

func (m *MockStore) CompleteExtraction(ctx context.Context, id int64, rawText string, processingTime float64) error {
	args := m.Called(ctx, id, rawText, processingTime)
	return args.Error(0)
}

func (m *MockStore) FailExtraction(ctx context.Context, id int64, errorMessage string, processingTime float64) error {
	args := m.Called(ctx, id, errorMessage, processingTime)
	return args.Error(0)
}

func (m *MockStore) LatestCompletedExtraction(ctx context.Context, documentID int64) (Extraction, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).(Extraction), args.Error(1)
}

func (m *MockStore) InsertChunks(ctx context.Context, chunks []Chunk) (int, error) {
	args := m.Called(ctx, chunks)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) DeleteDocumentChunks(ctx context.Context, patientID, documentID int64) error {
	args := m.Called(ctx, patientID, documentID)
	return args.Error(0)
}

func (m *MockStore) DeletePatientChunks(ctx context.Context, patientID int64) error {
	args := m.Called(ctx, patientID)
	return args.Error(0)
}

func (m *MockStore) SearchChunks(ctx context.Context, patientID int64, query embeddings.Vector, topK int, filter SearchFilter) ([]ScoredChunk, error) {
	args := m.Called(ctx, patientID, query, topK, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ScoredChunk), args.Error(1)
}

func (m *MockStore) PatientChunkStats(ctx context.Context, patientID int64) (Stats, error) {
	args := m.Called(ctx, patientID)
	return args.Get(0).(Stats), args.Error(1)
}

// WithPatientLock records the call and runs fn inline; lock semantics are not
// simulated.
func (m *MockStore) WithPatientLock(ctx context.Context, patientID int64, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, patientID)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}
