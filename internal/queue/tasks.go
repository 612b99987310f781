package queue

// ExtractPayload asks a worker to run text recognition for one extraction row.
type ExtractPayload struct {
	DocumentID   int64  `json:"document_id"`
	ExtractionID int64  `json:"extraction_id"`
	Method       string `json:"method,omitempty"`
}

// IndexDocumentPayload asks a worker to embed and store one document's chunks.
type IndexDocumentPayload struct {
	DocumentID int64 `json:"document_id"`
	Force      bool  `json:"force"`
}

// ReindexPayload asks a worker to rebuild one patient's whole collection.
type ReindexPayload struct {
	PatientID int64 `json:"patient_id"`
}

// PurgePayload asks a worker to remove one patient's collection.
type PurgePayload struct {
	PatientID int64 `json:"patient_id"`
}
