// Package vectorstore turns extracted document text into searchable,
// patient-scoped chunk vectors. Every operation takes the patient id
// explicitly; there is no way to touch another patient's rows through it.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"patient-docs/internal/cache"
	"patient-docs/internal/chunker"
	"patient-docs/internal/embeddings"
	"patient-docs/internal/store"
)

// Meta is the document metadata denormalized onto every chunk row.
type Meta struct {
	ExtractionID     *int64
	DocumentType     string
	OriginalFilename string
	UploadDate       *time.Time
	ExtractionMethod string
}

// splitter is what the service needs from the chunker.
type splitter interface {
	Chunk(text string) []chunker.Chunk
}

type Service struct {
	store    store.Store
	embedder embeddings.Embedder
	cache    cache.Cache
	chunker  splitter
	log      *slog.Logger
	cacheTTL time.Duration
}

func New(st store.Store, emb embeddings.Embedder, c cache.Cache, ch *chunker.Chunker, log *slog.Logger, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{store: st, embedder: emb, cache: c, chunker: ch, log: log, cacheTTL: cacheTTL}
}

// AddDocument chunks text, embeds all chunks in one batch and stores them in
// one transaction. Returns the number of chunks stored. Empty or whitespace
// text stores nothing and returns 0. If any stage fails, nothing is stored.
func (s *Service) AddDocument(ctx context.Context, patientID, documentID int64, text string, meta Meta) (int, error) {
	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		s.log.Info("document has no text to index", "patient_id", patientID, "document_id", documentID)
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed document %d: %w", documentID, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedded %d vectors for %d chunks of document %d", len(vectors), len(chunks), documentID)
	}

	rows := make([]store.Chunk, len(chunks))
	for i, c := range chunks {
		rows[i] = store.Chunk{
			PatientID:        patientID,
			DocumentID:       documentID,
			ExtractionID:     meta.ExtractionID,
			Text:             c.Text,
			Index:            c.Index,
			StartToken:       c.StartToken,
			EndToken:         c.EndToken,
			TotalTokens:      c.TokenCount,
			DocumentType:     meta.DocumentType,
			OriginalFilename: meta.OriginalFilename,
			UploadDate:       meta.UploadDate,
			ExtractionMethod: meta.ExtractionMethod,
			Embedding:        vectors[i],
		}
	}

	n, err := s.store.InsertChunks(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to store chunks of document %d: %w", documentID, err)
	}

	s.invalidate(ctx, patientID)
	s.log.Info("document indexed", "patient_id", patientID, "document_id", documentID, "chunks", n)
	return n, nil
}

// DeleteDocument removes one document's chunks from the patient's collection.
func (s *Service) DeleteDocument(ctx context.Context, patientID, documentID int64) error {
	if err := s.store.DeleteDocumentChunks(ctx, patientID, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks of document %d: %w", documentID, err)
	}
	s.invalidate(ctx, patientID)
	return nil
}

// DeletePatientCollection removes every chunk the patient has.
func (s *Service) DeletePatientCollection(ctx context.Context, patientID int64) error {
	if err := s.store.DeletePatientChunks(ctx, patientID); err != nil {
		return fmt.Errorf("failed to delete collection of patient %d: %w", patientID, err)
	}
	s.invalidate(ctx, patientID)
	return nil
}

// Search embeds the query and returns the patient's nearest chunks, closest
// first. Results are cached per patient with the configured TTL.
func (s *Service) Search(ctx context.Context, patientID int64, query string, topK int, filter store.SearchFilter) ([]store.ScoredChunk, error) {
	key := cache.SearchKey(query, topK, filter.DocumentTypes, filter.DocumentID)
	if data, err := s.cache.GetSearch(ctx, patientID, key); err != nil {
		s.log.Warn("search cache read failed", "patient_id", patientID, "err", err)
	} else if data != nil {
		var cached []store.ScoredChunk
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	vectors, err := s.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedded %d vectors for one query", len(vectors))
	}

	results, err := s.store.SearchChunks(ctx, patientID, vectors[0], topK, filter)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Similarity = store.Similarity(results[i].Distance)
	}

	if data, err := json.Marshal(results); err == nil {
		if err := s.cache.SetSearch(ctx, patientID, key, data, s.cacheTTL); err != nil {
			s.log.Warn("search cache write failed", "patient_id", patientID, "err", err)
		}
	}
	return results, nil
}

// PatientStats reports the size of one patient's collection.
func (s *Service) PatientStats(ctx context.Context, patientID int64) (store.Stats, error) {
	return s.store.PatientChunkStats(ctx, patientID)
}

func (s *Service) invalidate(ctx context.Context, patientID int64) {
	if err := s.cache.InvalidatePatient(ctx, patientID); err != nil {
		s.log.Warn("failed to invalidate search cache", "patient_id", patientID, "err", err)
	}
}
