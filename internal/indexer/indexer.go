// Package indexer keeps patient vector collections consistent with the
// relational truth: a patient's collection holds exactly the chunks of the
// latest completed extraction of each of their documents.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"patient-docs/internal/store"
	"patient-docs/internal/vectorstore"
)

// VectorStore is what the indexer needs from the vector layer.
type VectorStore interface {
	AddDocument(ctx context.Context, patientID, documentID int64, text string, meta vectorstore.Meta) (int, error)
	DeleteDocument(ctx context.Context, patientID, documentID int64) error
	DeletePatientCollection(ctx context.Context, patientID int64) error
	PatientStats(ctx context.Context, patientID int64) (store.Stats, error)
}

// Report summarizes one reindex run.
type Report struct {
	PatientID      int64 `json:"patient_id"`
	TotalDocuments int   `json:"total_documents"`
	Indexed        int   `json:"indexed"`
	Skipped        int   `json:"skipped"`
	Failed         int   `json:"failed"`
	TotalChunks    int   `json:"total_chunks"`
}

type Indexer struct {
	store   store.Store
	vectors VectorStore
	log     *slog.Logger
}

func New(st store.Store, vectors VectorStore, log *slog.Logger) *Indexer {
	return &Indexer{store: st, vectors: vectors, log: log}
}

// ReindexPatient rebuilds one patient's collection from scratch: delete
// everything, then index the latest completed extraction of each document.
// Documents without a completed extraction are skipped; per-document indexing
// failures are counted and the run continues. The whole rebuild runs under
// the patient lock so concurrent mutations of the same collection serialize.
func (ix *Indexer) ReindexPatient(ctx context.Context, patientID int64) (Report, error) {
	report := Report{PatientID: patientID}

	err := ix.store.WithPatientLock(ctx, patientID, func(ctx context.Context) error {
		if err := ix.vectors.DeletePatientCollection(ctx, patientID); err != nil {
			return err
		}

		docs, err := ix.store.ListPatientDocuments(ctx, patientID)
		if err != nil {
			return err
		}
		report.TotalDocuments = len(docs)

		for _, doc := range docs {
			ext, err := ix.store.LatestCompletedExtraction(ctx, doc.ID)
			if errors.Is(err, store.ErrNotFound) {
				report.Skipped++
				continue
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(ext.RawText) == "" {
				report.Skipped++
				ix.log.Info("skipping document with no extraction text",
					"patient_id", patientID, "document_id", doc.ID, "extraction_id", ext.ID)
				continue
			}

			n, err := ix.indexExtraction(ctx, doc, ext)
			if err != nil {
				report.Failed++
				ix.log.Error("failed to index document during reindex",
					"patient_id", patientID, "document_id", doc.ID, "err", err)
				continue
			}
			report.Indexed++
			report.TotalChunks += n
		}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("reindex of patient %d failed: %w", patientID, err)
	}

	ix.log.Info("patient reindexed", "patient_id", patientID,
		"documents", report.TotalDocuments, "indexed", report.Indexed,
		"skipped", report.Skipped, "failed", report.Failed, "chunks", report.TotalChunks)
	return report, nil
}

// IndexDocument indexes one document's latest completed extraction. With
// force, any existing chunks of the document are removed first; without it,
// indexing an already-indexed document adds duplicate rows, so callers are
// expected to pass force when re-running.
func (ix *Indexer) IndexDocument(ctx context.Context, documentID int64, force bool) (int, error) {
	doc, err := ix.store.GetDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	ext, err := ix.store.LatestCompletedExtraction(ctx, documentID)
	if err != nil {
		return 0, err
	}

	var chunks int
	err = ix.store.WithPatientLock(ctx, doc.PatientID, func(ctx context.Context) error {
		if force {
			if err := ix.vectors.DeleteDocument(ctx, doc.PatientID, doc.ID); err != nil {
				return err
			}
		}
		n, err := ix.indexExtraction(ctx, doc, ext)
		if err != nil {
			return err
		}
		chunks = n
		return nil
	})
	return chunks, err
}

// PurgePatient removes a patient's whole collection.
func (ix *Indexer) PurgePatient(ctx context.Context, patientID int64) error {
	return ix.store.WithPatientLock(ctx, patientID, func(ctx context.Context) error {
		return ix.vectors.DeletePatientCollection(ctx, patientID)
	})
}

func (ix *Indexer) indexExtraction(ctx context.Context, doc store.Document, ext store.Extraction) (int, error) {
	extractionID := ext.ID
	uploadDate := doc.UploadDate
	return ix.vectors.AddDocument(ctx, doc.PatientID, doc.ID, ext.RawText, vectorstore.Meta{
		ExtractionID:     &extractionID,
		DocumentType:     doc.DocumentType,
		OriginalFilename: doc.OriginalFilename,
		UploadDate:       &uploadDate,
		ExtractionMethod: ext.Method,
	})
}
