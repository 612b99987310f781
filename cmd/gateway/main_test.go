package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"patient-docs/internal/app"
	"patient-docs/internal/cache"
	"patient-docs/internal/queue"
	"patient-docs/internal/store"
	"patient-docs/internal/vectorstore"
)

func testDeps(st store.Store) app.Deps {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return app.Deps{
		Log:     log,
		Store:   st,
		Vectors: vectorstore.New(st, nil, cache.NewNoOpCache(), nil, log, 0),
	}
}

func newRouter(deps app.Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/vector/patients/{patientID}/stats", statsHandler(deps))
	r.Delete("/api/vector/patients/{patientID}/vector-data", purgeHandler(deps))
	r.Post("/api/vector/patients/{patientID}/search-test", searchTestHandler(deps))
	r.Post("/api/vector/documents/{documentID}/index", indexDocumentHandler(deps))
	return r
}

func TestStatsHandler(t *testing.T) {
	st := &store.MockStore{}
	st.On("PatientChunkStats", mock.Anything, int64(12)).Return(store.Stats{
		PatientID: 12, ChunkCount: 40, DocumentCount: 3, CollectionLabel: "patient_12_docs",
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/vector/patients/12/stats", nil)
	rec := httptest.NewRecorder()
	newRouter(testDeps(st)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "patient_12_docs") || !strings.Contains(body, "40") {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestStatsHandlerRejectsBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/vector/patients/abc/stats", nil)
	rec := httptest.NewRecorder()
	newRouter(testDeps(&store.MockStore{})).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchTestRequiresQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/vector/patients/12/search-test",
		strings.NewReader(`{"top_k": 5}`))
	rec := httptest.NewRecorder()
	newRouter(testDeps(&store.MockStore{})).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPurgeEnqueuesTask(t *testing.T) {
	q := &queue.MockQueue{}
	q.On("Enqueue", mock.Anything, mock.MatchedBy(func(task queue.Task) bool {
		return task.Type == queue.TaskTypePurgePatient
	})).Return(nil)

	deps := testDeps(&store.MockStore{})
	deps.Queue = q

	req := httptest.NewRequest(http.MethodDelete, "/api/vector/patients/12/vector-data", nil)
	rec := httptest.NewRecorder()
	newRouter(deps).ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	q.AssertExpectations(t)
}

func TestIndexDocumentNotFound(t *testing.T) {
	st := &store.MockStore{}
	st.On("GetDocument", mock.Anything, int64(9)).Return(store.Document{}, store.ErrNotFound)

	req := httptest.NewRequest(http.MethodPost, "/api/vector/documents/9/index", nil)
	rec := httptest.NewRecorder()
	newRouter(testDeps(st)).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestIndexDocumentWithoutExtraction(t *testing.T) {
	st := &store.MockStore{}
	st.On("GetDocument", mock.Anything, int64(9)).Return(store.Document{ID: 9, PatientID: 2}, nil)
	st.On("LatestCompletedExtraction", mock.Anything, int64(9)).
		Return(store.Extraction{}, store.ErrNotFound)

	req := httptest.NewRequest(http.MethodPost, "/api/vector/documents/9/index", nil)
	rec := httptest.NewRecorder()
	newRouter(testDeps(st)).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
