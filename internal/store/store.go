package store

import (
	"context"
	"errors"
	"time"

	"patient-docs/internal/embeddings"
)

// DocumentStatus is the document lifecycle. The upload subsystem owns the
// document row; this core only reads it and moves the status.
type DocumentStatus string

const (
	DocUploaded   DocumentStatus = "uploaded"
	DocProcessing DocumentStatus = "processing"
	DocProcessed  DocumentStatus = "processed"
	DocFailed     DocumentStatus = "failed"
)

// ExtractionStatus is the state of one recognition attempt.
type ExtractionStatus string

const (
	ExtractionPending    ExtractionStatus = "pending"
	ExtractionInProgress ExtractionStatus = "in_progress"
	ExtractionCompleted  ExtractionStatus = "completed"
	ExtractionFailed     ExtractionStatus = "failed"
)

// ErrNotFound is returned when a referenced document or extraction does not
// exist.
var ErrNotFound = errors.New("not found")

type Document struct {
	ID               int64
	PatientID        int64
	ClinicID         int64
	OriginalFilename string
	FilePath         string
	MimeType         string
	DocumentType     string
	Status           DocumentStatus
	UploadDate       time.Time
	ProcessedDate    *time.Time
}

// Extraction is one text-recognition attempt against a document. Rows are
// append-only: a re-trigger creates a new row, it never mutates a failed one.
type Extraction struct {
	ID             int64
	DocumentID     int64
	PatientID      int64
	Status         ExtractionStatus
	Method         string
	RawText        string
	ProcessingTime float64 // seconds
	ErrorMessage   string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// Chunk is a fixed-size slice of an extraction's text plus its embedding.
// Document metadata is denormalized onto the row for filtering without
// joins; it reflects the document as of indexing time.
type Chunk struct {
	ID               int64
	PatientID        int64
	DocumentID       int64
	ExtractionID     *int64
	Text             string
	Index            int
	StartToken       int
	EndToken         int
	TotalTokens      int
	DocumentType     string
	OriginalFilename string
	UploadDate       *time.Time
	ExtractionMethod string
	Embedding        embeddings.Vector
}

// ScoredChunk is a search hit. Distance is cosine distance in [0,2];
// Similarity is its [0,1] normalization.
type ScoredChunk struct {
	Chunk
	Distance   float32
	Similarity float32
}

// SearchFilter narrows a patient-scoped search. Zero values mean no filter.
type SearchFilter struct {
	DocumentTypes []string
	DocumentID    int64
}

// Stats summarizes one patient's chunk collection.
type Stats struct {
	PatientID       int64
	ChunkCount      int
	DocumentCount   int
	CollectionLabel string
}

// Similarity converts a cosine distance in [0,2] to a [0,1] similarity
// where 1 means identical. Strictly decreasing in distance.
func Similarity(distance float32) float32 {
	return 1 - distance/2
}

// Store defines persistence for documents, extractions and chunk vectors.
type Store interface {
	// Documents (externally owned; this core reads and moves status)
	GetDocument(ctx context.Context, id int64) (Document, error)
	ListPatientDocuments(ctx context.Context, patientID int64) ([]Document, error)
	UpdateDocumentStatus(ctx context.Context, id int64, status DocumentStatus, processedDate *time.Time) error

	// Extractions
	CreateExtraction(ctx context.Context, documentID, patientID int64) (Extraction, error)
	GetExtraction(ctx context.Context, id int64) (Extraction, error)
	StartExtraction(ctx context.Context, id int64, method string) error
	CompleteExtraction(ctx context.Context, id int64, rawText string, processingTime float64) error
	FailExtraction(ctx context.Context, id int64, errorMessage string, processingTime float64) error
	LatestCompletedExtraction(ctx context.Context, documentID int64) (Extraction, error)

	// Chunks. InsertChunks writes the whole slice in one transaction; every
	// read and write on the chunk table carries the patient id predicate.
	InsertChunks(ctx context.Context, chunks []Chunk) (int, error)
	DeleteDocumentChunks(ctx context.Context, patientID, documentID int64) error
	DeletePatientChunks(ctx context.Context, patientID int64) error
	SearchChunks(ctx context.Context, patientID int64, query embeddings.Vector, topK int, filter SearchFilter) ([]ScoredChunk, error)
	PatientChunkStats(ctx context.Context, patientID int64) (Stats, error)

	// WithPatientLock runs fn while holding an exclusive per-patient lock,
	// serializing collection mutations across processes.
	WithPatientLock(ctx context.Context, patientID int64, fn func(ctx context.Context) error) error
}
