package docModel

import "time"

type DocStatus string

const (
	StatusProcessing DocStatus = "processing"
	StatusReady      DocStatus = "ready"
	StatusFailed     DocStatus = "failed"
	StatusDeleted    DocStatus = "deleted"
)

// Document is the registry's view of an ingested PDF. The registry owns these
// records exclusively, everything else gets copies.
type Document struct {
	ID         string    `json:"document_id"`
	PageCount  int       `json:"page_count"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
	IndexPath  string    `json:"index_path"`
	Status     DocStatus `json:"status"`
}

// DocChunk only lives during ingestion, its text ends up stored next to the
// vector inside the document's index.
type DocChunk struct {
	DocID    string `json:"doc_id"`
	Position int    `json:"position"`
	Page     int    `json:"page"`
	Text     string `json:"text"`
}

// ScoredChunk is a retrieval hit, best matches carry the highest score.
type ScoredChunk struct {
	Text     string  `json:"text"`
	Page     int     `json:"page"`
	Position int     `json:"position"`
	Score    float32 `json:"score"`
}

// IndexMeta is the minimal metadata persisted beside the vectors, enough to
// rebuild a registry entry after a restart without re-embedding anything.
type IndexMeta struct {
	DocID      string    `json:"doc_id"`
	Dimension  int       `json:"dimension"`
	Model      string    `json:"model"`
	ChunkCount int       `json:"chunk_count"`
	PageCount  int       `json:"page_count"`
	CreatedAt  time.Time `json:"created_at"`
}
