// The gateway service exposes the management API: triggering extractions,
// per-document indexing, patient reindex and purge, collection stats and a
// search test endpoint.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"patient-docs/internal/app"
	"patient-docs/internal/httputil"
	"patient-docs/internal/queue"
	"patient-docs/internal/store"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	r := httputil.NewRouter(deps.Log)

	r.Route("/api/vector", func(r chi.Router) {
		r.Get("/patients/{patientID}/stats", statsHandler(deps))
		r.Post("/patients/{patientID}/reindex", reindexHandler(deps))
		r.Delete("/patients/{patientID}/vector-data", purgeHandler(deps))
		r.Post("/patients/{patientID}/search-test", searchTestHandler(deps))
		r.Post("/documents/{documentID}/index", indexDocumentHandler(deps))
	})
	r.Post("/api/documents/{documentID}/extract", extractHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server error", "err", err)
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func statsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := pathID(r, "patientID")
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		stats, err := deps.Vectors.PatientStats(r.Context(), patientID)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to get stats", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"patient_id":     stats.PatientID,
			"collection":     stats.CollectionLabel,
			"chunk_count":    stats.ChunkCount,
			"document_count": stats.DocumentCount,
		})
	}
}

// reindexHandler enqueues a full rebuild of the patient's collection and
// returns immediately; the counts show up in the indexer's logs.
func reindexHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := pathID(r, "patientID")
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		payload, err := json.Marshal(queue.ReindexPayload{PatientID: patientID})
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to encode task", err, http.StatusInternalServerError)
			return
		}
		task := queue.Task{Type: queue.TaskTypeReindexPatient, Payload: payload, MaxAttempts: 1}
		if err := queue.EnqueueWithRetry(r.Context(), deps.Queue, task, 3, time.Second); err != nil {
			httputil.Fail(deps.Log, w, "failed to enqueue reindex", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"patient_id": patientID,
			"status":     "reindex queued",
		})
	}
}

// purgeHandler enqueues the deletion so it runs under the same per-patient
// serialization as reindexing, like the sibling endpoints.
func purgeHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := pathID(r, "patientID")
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		payload, err := json.Marshal(queue.PurgePayload{PatientID: patientID})
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to encode task", err, http.StatusInternalServerError)
			return
		}
		task := queue.Task{Type: queue.TaskTypePurgePatient, Payload: payload, MaxAttempts: 1}
		if err := queue.EnqueueWithRetry(r.Context(), deps.Queue, task, 3, time.Second); err != nil {
			httputil.Fail(deps.Log, w, "failed to enqueue purge", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"patient_id": patientID,
			"status":     "purge queued",
		})
	}
}

type searchTestRequest struct {
	Query        string `json:"query" validate:"required,min=1,max=1000"`
	TopK         int    `json:"top_k" validate:"omitempty,min=1,max=50"`
	DocumentType string `json:"document_type" validate:"omitempty,max=100"`
	DocumentID   int64  `json:"document_id" validate:"omitempty,min=1"`
}

type searchHit struct {
	ChunkID      int64   `json:"chunk_id"`
	DocumentID   int64   `json:"document_id"`
	Text         string  `json:"text"`
	Similarity   float32 `json:"similarity"`
	Distance     float32 `json:"distance"`
	DocumentType string  `json:"document_type,omitempty"`
	Filename     string  `json:"filename,omitempty"`
}

func searchTestHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := pathID(r, "patientID")
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		var req searchTestRequest
		if err := httputil.DecodeAndValidate(r, &req); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		if req.TopK == 0 {
			req.TopK = 5
		}

		filter := store.SearchFilter{DocumentID: req.DocumentID}
		if req.DocumentType != "" {
			filter.DocumentTypes = []string{req.DocumentType}
		}
		results, err := deps.Vectors.Search(r.Context(), patientID, req.Query, req.TopK, filter)
		if err != nil {
			httputil.Fail(deps.Log, w, "search failed", err, http.StatusInternalServerError)
			return
		}

		hits := make([]searchHit, len(results))
		for i, res := range results {
			hits[i] = searchHit{
				ChunkID:      res.ID,
				DocumentID:   res.DocumentID,
				Text:         res.Text,
				Similarity:   res.Similarity,
				Distance:     res.Distance,
				DocumentType: res.DocumentType,
				Filename:     res.OriginalFilename,
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"patient_id": patientID,
			"query":      req.Query,
			"results":    hits,
		})
	}
}

type indexDocumentRequest struct {
	ForceReindex bool `json:"force_reindex"`
}

// indexDocumentHandler verifies the document is indexable before queueing:
// a missing document is 404, one without a completed extraction is 400.
func indexDocumentHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		documentID, err := pathID(r, "documentID")
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		var req indexDocumentRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
				return
			}
		}

		if _, err := deps.Store.GetDocument(r.Context(), documentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httputil.Fail(deps.Log, w, "document not found", err, http.StatusNotFound)
				return
			}
			httputil.Fail(deps.Log, w, "failed to load document", err, http.StatusInternalServerError)
			return
		}
		if _, err := deps.Store.LatestCompletedExtraction(r.Context(), documentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httputil.Fail(deps.Log, w, "document has no completed extraction", err, http.StatusBadRequest)
				return
			}
			httputil.Fail(deps.Log, w, "failed to load extraction", err, http.StatusInternalServerError)
			return
		}

		payload, err := json.Marshal(queue.IndexDocumentPayload{DocumentID: documentID, Force: req.ForceReindex})
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to encode task", err, http.StatusInternalServerError)
			return
		}
		task := queue.Task{Type: queue.TaskTypeIndexDocument, Payload: payload, MaxAttempts: 1}
		if err := queue.EnqueueWithRetry(r.Context(), deps.Queue, task, 3, time.Second); err != nil {
			httputil.Fail(deps.Log, w, "failed to enqueue indexing", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"document_id":   documentID,
			"force_reindex": req.ForceReindex,
			"status":        "indexing queued",
		})
	}
}

type extractRequest struct {
	Method string `json:"method" validate:"omitempty,oneof=google_vision openai_vision gemini_vision pdf_text"`
}

func extractHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		documentID, err := pathID(r, "documentID")
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		var req extractRequest
		if r.ContentLength > 0 {
			if err := httputil.DecodeAndValidate(r, &req); err != nil {
				httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
				return
			}
		}

		ext, err := deps.Extractor.Trigger(r.Context(), documentID, req.Method)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httputil.Fail(deps.Log, w, "document not found", err, http.StatusNotFound)
				return
			}
			httputil.Fail(deps.Log, w, "failed to trigger extraction", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"document_id":   documentID,
			"extraction_id": ext.ID,
			"status":        string(ext.Status),
		})
	}
}
