package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"patient-docs/internal/embeddings"
)

type PostgresStore struct {
	db  *sql.DB
	dim int
}

// Advisory lock key space. migrationLockID guards schema setup;
// patientLockClass prefixes per-patient collection lock keys so they never
// collide with other advisory users of the same database.
const (
	migrationLockID  = 824001
	patientLockClass = 824002
)

// NewPostgres opens the database and runs schema setup. dim is the width of
// the embedding column; it must match the embedder's output.
func NewPostgres(dsn string, dim int) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if dim <= 0 {
		dim = 3072
	}
	s := &PostgresStore{db: db, dim: dim}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock so concurrent service startups don't race the DDL.
	var acquired bool
	if err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, migrationLockID).Scan(&acquired); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		// Another service is running migrations; wait briefly and skip.
		time.Sleep(2 * time.Second)
		return nil
	}
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id BIGSERIAL PRIMARY KEY,
			patient_id BIGINT NOT NULL,
			clinic_id BIGINT NOT NULL DEFAULT 0,
			original_filename TEXT NOT NULL DEFAULT '',
			file_path TEXT NOT NULL DEFAULT '',
			mime_type TEXT NOT NULL DEFAULT '',
			document_type TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'uploaded',
			upload_date TIMESTAMPTZ NOT NULL DEFAULT now(),
			processed_date TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS documents_patient_idx ON documents (patient_id);`,
		`CREATE TABLE IF NOT EXISTS extractions (
			id BIGSERIAL PRIMARY KEY,
			document_id BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			patient_id BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			method TEXT NOT NULL DEFAULT '',
			raw_text TEXT NOT NULL DEFAULT '',
			processing_time DOUBLE PRECISION NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS extractions_document_idx ON extractions (document_id);`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id BIGSERIAL PRIMARY KEY,
			patient_id BIGINT NOT NULL,
			document_id BIGINT NOT NULL,
			extraction_id BIGINT REFERENCES extractions(id) ON DELETE SET NULL,
			chunk_text TEXT NOT NULL,
			chunk_index INT NOT NULL,
			chunk_start_token INT NOT NULL DEFAULT 0,
			chunk_end_token INT NOT NULL DEFAULT 0,
			total_tokens INT NOT NULL DEFAULT 0,
			document_type TEXT NOT NULL DEFAULT '',
			original_filename TEXT NOT NULL DEFAULT '',
			upload_date TIMESTAMPTZ,
			extraction_method TEXT NOT NULL DEFAULT '',
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`, s.dim),
		`CREATE INDEX IF NOT EXISTS document_chunks_patient_idx ON document_chunks (patient_id);`,
		`CREATE INDEX IF NOT EXISTS document_chunks_document_idx ON document_chunks (document_id);`,
		`CREATE INDEX IF NOT EXISTS document_chunks_patient_document_idx ON document_chunks (patient_id, document_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	// No ANN index on the embedding column: at 3072 dimensions the column is
	// past the HNSW/IVFFlat ceiling, so searches run as exact scans over a
	// single patient's rows, which the btree indexes above keep small.
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id int64) (Document, error) {
	var (
		d         Document
		processed sql.NullTime
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, clinic_id, original_filename, file_path, mime_type,
		       document_type, status, upload_date, processed_date
		FROM documents WHERE id=$1`, id)
	if err := row.Scan(&d.ID, &d.PatientID, &d.ClinicID, &d.OriginalFilename, &d.FilePath,
		&d.MimeType, &d.DocumentType, &d.Status, &d.UploadDate, &processed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, fmt.Errorf("document %d: %w", id, ErrNotFound)
		}
		return Document{}, fmt.Errorf("failed to get document %d: %w", id, err)
	}
	if processed.Valid {
		d.ProcessedDate = &processed.Time
	}
	return d, nil
}

func (s *PostgresStore) ListPatientDocuments(ctx context.Context, patientID int64) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, clinic_id, original_filename, file_path, mime_type,
		       document_type, status, upload_date, processed_date
		FROM documents WHERE patient_id=$1 ORDER BY id`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var (
			d         Document
			processed sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.PatientID, &d.ClinicID, &d.OriginalFilename, &d.FilePath,
			&d.MimeType, &d.DocumentType, &d.Status, &d.UploadDate, &processed); err != nil {
			return nil, err
		}
		if processed.Valid {
			d.ProcessedDate = &processed.Time
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, id int64, status DocumentStatus, processedDate *time.Time) error {
	var processed sql.NullTime
	if processedDate != nil {
		processed = sql.NullTime{Time: *processedDate, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET status=$1, processed_date=$2 WHERE id=$3`,
		status, processed, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CreateExtraction(ctx context.Context, documentID, patientID int64) (Extraction, error) {
	e := Extraction{DocumentID: documentID, PatientID: patientID, Status: ExtractionPending}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO extractions(document_id, patient_id, status)
		VALUES($1,$2,$3) RETURNING id, created_at`,
		documentID, patientID, ExtractionPending)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return Extraction{}, fmt.Errorf("failed to create extraction for document %d: %w", documentID, err)
	}
	return e, nil
}

func (s *PostgresStore) GetExtraction(ctx context.Context, id int64) (Extraction, error) {
	var (
		e         Extraction
		completed sql.NullTime
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, patient_id, status, method, raw_text, processing_time,
		       error_message, created_at, completed_at
		FROM extractions WHERE id=$1`, id)
	if err := row.Scan(&e.ID, &e.DocumentID, &e.PatientID, &e.Status, &e.Method, &e.RawText,
		&e.ProcessingTime, &e.ErrorMessage, &e.CreatedAt, &completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Extraction{}, fmt.Errorf("extraction %d: %w", id, ErrNotFound)
		}
		return Extraction{}, fmt.Errorf("failed to get extraction %d: %w", id, err)
	}
	if completed.Valid {
		e.CompletedAt = &completed.Time
	}
	return e, nil
}

func (s *PostgresStore) StartExtraction(ctx context.Context, id int64, method string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE extractions SET status=$1, method=$2 WHERE id=$3`,
		ExtractionInProgress, method, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("extraction %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CompleteExtraction(ctx context.Context, id int64, rawText string, processingTime float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE extractions SET status=$1, raw_text=$2, processing_time=$3, completed_at=now()
		WHERE id=$4`,
		ExtractionCompleted, rawText, processingTime, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("extraction %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FailExtraction(ctx context.Context, id int64, errorMessage string, processingTime float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE extractions SET status=$1, error_message=$2, processing_time=$3, completed_at=now()
		WHERE id=$4`,
		ExtractionFailed, errorMessage, processingTime, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("extraction %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) LatestCompletedExtraction(ctx context.Context, documentID int64) (Extraction, error) {
	var (
		e         Extraction
		completed sql.NullTime
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, patient_id, status, method, raw_text, processing_time,
		       error_message, created_at, completed_at
		FROM extractions
		WHERE document_id=$1 AND status=$2
		ORDER BY completed_at DESC NULLS LAST, id DESC
		LIMIT 1`, documentID, ExtractionCompleted)
	if err := row.Scan(&e.ID, &e.DocumentID, &e.PatientID, &e.Status, &e.Method, &e.RawText,
		&e.ProcessingTime, &e.ErrorMessage, &e.CreatedAt, &completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Extraction{}, fmt.Errorf("no completed extraction for document %d: %w", documentID, ErrNotFound)
		}
		return Extraction{}, fmt.Errorf("failed to get extraction for document %d: %w", documentID, err)
	}
	if completed.Valid {
		e.CompletedAt = &completed.Time
	}
	return e, nil
}

func (s *PostgresStore) InsertChunks(ctx context.Context, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, c := range chunks {
		if len(c.Embedding) != s.dim {
			return 0, fmt.Errorf("chunk %d of document %d has %d dimensions, column expects %d",
				c.Index, c.DocumentID, len(c.Embedding), s.dim)
		}
		var extractionID sql.NullInt64
		if c.ExtractionID != nil {
			extractionID = sql.NullInt64{Int64: *c.ExtractionID, Valid: true}
		}
		var uploadDate sql.NullTime
		if c.UploadDate != nil {
			uploadDate = sql.NullTime{Time: *c.UploadDate, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO document_chunks(patient_id, document_id, extraction_id, chunk_text, chunk_index,
				chunk_start_token, chunk_end_token, total_tokens, document_type,
				original_filename, upload_date, extraction_method, embedding)
			VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13::vector)`,
			c.PatientID, c.DocumentID, extractionID, c.Text, c.Index,
			c.StartToken, c.EndToken, c.TotalTokens, c.DocumentType,
			c.OriginalFilename, uploadDate, c.ExtractionMethod,
			pgvector.NewVector(c.Embedding))
		if err != nil {
			return 0, fmt.Errorf("failed to insert chunk %d of document %d: %w", c.Index, c.DocumentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (s *PostgresStore) DeleteDocumentChunks(ctx context.Context, patientID, documentID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE patient_id=$1 AND document_id=$2`,
		patientID, documentID)
	return err
}

func (s *PostgresStore) DeletePatientChunks(ctx context.Context, patientID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE patient_id=$1`, patientID)
	return err
}

// SearchChunks runs an exact cosine-distance scan over one patient's chunks.
// The patient id predicate is first in the WHERE clause and is never optional.
func (s *PostgresStore) SearchChunks(ctx context.Context, patientID int64, query embeddings.Vector, topK int, filter SearchFilter) ([]ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	q := `
		SELECT id, patient_id, document_id, extraction_id, chunk_text, chunk_index,
		       chunk_start_token, chunk_end_token, total_tokens, document_type,
		       original_filename, upload_date, extraction_method,
		       embedding <=> $1::vector AS distance
		FROM document_chunks
		WHERE patient_id = $2`
	args := []any{pgvector.NewVector(query), patientID}
	if len(filter.DocumentTypes) > 0 {
		args = append(args, pq.Array(filter.DocumentTypes))
		q += fmt.Sprintf(" AND document_type = ANY($%d)", len(args))
	}
	if filter.DocumentID > 0 {
		args = append(args, filter.DocumentID)
		q += fmt.Sprintf(" AND document_id = $%d", len(args))
	}
	args = append(args, topK)
	q += fmt.Sprintf(" ORDER BY distance ASC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search for patient %d failed: %w", patientID, err)
	}
	defer rows.Close()

	var out []ScoredChunk
	for rows.Next() {
		var (
			sc           ScoredChunk
			extractionID sql.NullInt64
			uploadDate   sql.NullTime
		)
		if err := rows.Scan(&sc.ID, &sc.PatientID, &sc.DocumentID, &extractionID, &sc.Text, &sc.Index,
			&sc.StartToken, &sc.EndToken, &sc.TotalTokens, &sc.DocumentType,
			&sc.OriginalFilename, &uploadDate, &sc.ExtractionMethod, &sc.Distance); err != nil {
			return nil, err
		}
		if extractionID.Valid {
			sc.ExtractionID = &extractionID.Int64
		}
		if uploadDate.Valid {
			sc.UploadDate = &uploadDate.Time
		}
		sc.Similarity = Similarity(sc.Distance)
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PatientChunkStats(ctx context.Context, patientID int64) (Stats, error) {
	st := Stats{
		PatientID:       patientID,
		CollectionLabel: fmt.Sprintf("patient_%d_docs", patientID),
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT document_id)
		FROM document_chunks WHERE patient_id=$1`, patientID)
	if err := row.Scan(&st.ChunkCount, &st.DocumentCount); err != nil {
		return Stats{}, fmt.Errorf("failed to get stats for patient %d: %w", patientID, err)
	}
	return st, nil
}

// patientLockKey maps a patient id into the single-key bigint advisory lock
// space. XOR with the shifted class constant is a bijection, so distinct
// patient ids never share a key and the full int64 id range is usable.
func patientLockKey(patientID int64) int64 {
	return (int64(patientLockClass) << 32) ^ patientID
}

// WithPatientLock takes a session-scoped advisory lock keyed on the patient id
// and holds it for the duration of fn. The lock lives on a dedicated
// connection so pool reuse cannot release it early.
func (s *PostgresStore) WithPatientLock(ctx context.Context, patientID int64, fn func(ctx context.Context) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	key := patientLockKey(patientID)
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		return fmt.Errorf("failed to lock patient %d: %w", patientID, err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
	}()

	return fn(ctx)
}
