// Package extract runs text recognition jobs against uploaded documents.
//
// A job moves pending -> in_progress -> completed or failed, and the owning
// document's status moves in lockstep: processing while the job runs,
// processed on success, failed on failure. A failed job is never retried
// automatically; re-triggering creates a fresh extraction row.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"patient-docs/internal/ocr"
	"patient-docs/internal/queue"
	"patient-docs/internal/store"
)

type Service struct {
	store     store.Store
	providers *ocr.Registry
	queue     queue.Queue
	log       *slog.Logger
}

func New(st store.Store, providers *ocr.Registry, q queue.Queue, log *slog.Logger) *Service {
	return &Service{store: st, providers: providers, queue: q, log: log}
}

// Trigger creates a pending extraction for the document, marks the document
// processing and enqueues the work. It returns without waiting for the
// recognition to run.
func (s *Service) Trigger(ctx context.Context, documentID int64, method string) (store.Extraction, error) {
	if _, err := ocr.ParseMethod(method); err != nil {
		return store.Extraction{}, err
	}
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return store.Extraction{}, err
	}

	ext, err := s.store.CreateExtraction(ctx, doc.ID, doc.PatientID)
	if err != nil {
		return store.Extraction{}, err
	}
	if err := s.store.UpdateDocumentStatus(ctx, doc.ID, store.DocProcessing, nil); err != nil {
		return store.Extraction{}, err
	}

	payload, err := json.Marshal(queue.ExtractPayload{
		DocumentID:   doc.ID,
		ExtractionID: ext.ID,
		Method:       method,
	})
	if err != nil {
		return store.Extraction{}, err
	}
	task := queue.Task{Type: queue.TaskTypeExtract, Payload: payload, MaxAttempts: 1}
	if err := queue.EnqueueWithRetry(ctx, s.queue, task, 3, time.Second); err != nil {
		return store.Extraction{}, fmt.Errorf("failed to enqueue extraction %d: %w", ext.ID, err)
	}

	s.log.Info("extraction triggered", "document_id", doc.ID, "extraction_id", ext.ID, "method", method)
	return ext, nil
}

// Run executes one extraction job. Recognition failures are terminal for the
// job: they are recorded on the extraction and document rows, not returned,
// so the queue never re-runs them. The returned error covers storage faults
// only.
func (s *Service) Run(ctx context.Context, documentID, extractionID int64, method string) error {
	started := time.Now()

	// Resolve the default up front so the extraction row and the chunks
	// denormalized from it always carry the provider that actually ran.
	m := ocr.Method(method)
	if m == "" {
		m = s.providers.Default()
	}
	method = string(m)

	provider, err := s.providers.Get(m)
	if err != nil {
		return s.fail(ctx, documentID, extractionID, started, err)
	}

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.store.StartExtraction(ctx, extractionID, method); err != nil {
		return err
	}

	content, err := os.ReadFile(doc.FilePath)
	if err != nil {
		return s.fail(ctx, documentID, extractionID, started, fmt.Errorf("failed to read document file: %w", err))
	}

	text, err := provider.Extract(ctx, content, doc.MimeType)
	if err != nil {
		if ocr.IsRateLimited(err) {
			s.log.Warn("recognition provider rate limited", "document_id", documentID, "extraction_id", extractionID, "method", method)
		}
		return s.fail(ctx, documentID, extractionID, started, err)
	}

	elapsed := time.Since(started).Seconds()
	if err := s.store.CompleteExtraction(ctx, extractionID, text, elapsed); err != nil {
		return err
	}
	now := time.Now()
	if err := s.store.UpdateDocumentStatus(ctx, documentID, store.DocProcessed, &now); err != nil {
		return err
	}
	s.log.Info("extraction completed", "document_id", documentID, "extraction_id", extractionID,
		"method", method, "seconds", elapsed, "chars", len(text))

	// Hand off to indexing. Force so a previous index of this document is
	// replaced rather than duplicated.
	payload, err := json.Marshal(queue.IndexDocumentPayload{DocumentID: documentID, Force: true})
	if err != nil {
		return err
	}
	task := queue.Task{Type: queue.TaskTypeIndexDocument, Payload: payload, MaxAttempts: 1}
	if err := queue.EnqueueWithRetry(ctx, s.queue, task, 3, time.Second); err != nil {
		s.log.Error("failed to enqueue indexing after extraction", "document_id", documentID, "err", err)
	}
	return nil
}

// fail records a terminal job failure on both rows. The cause is folded into
// the extraction's error message; only storage faults propagate.
func (s *Service) fail(ctx context.Context, documentID, extractionID int64, started time.Time, cause error) error {
	elapsed := time.Since(started).Seconds()
	s.log.Error("extraction failed", "document_id", documentID, "extraction_id", extractionID,
		"seconds", elapsed, "err", cause)

	if err := s.store.FailExtraction(ctx, extractionID, cause.Error(), elapsed); err != nil {
		return err
	}
	return s.store.UpdateDocumentStatus(ctx, documentID, store.DocFailed, nil)
}
