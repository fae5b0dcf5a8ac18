package vectorDB

import (
	"context"

	"github.com/soumk/pdfchat-api/internal/domain/docModel"
)

// Store maintains one isolated nearest-neighbor index per document.
// BuildIndex is only ever called from the ingestion pipeline, which is the
// single code path allowed to create or rebuild an index.
type Store interface {
	// BuildIndex persists (chunk, vector) pairs for the document, replacing
	// any previous index. Zero pairs fail with docModel.ErrEmptyIndex. The
	// vector dimensionality is pinned here and validated on every search.
	BuildIndex(ctx context.Context, docID string, chunks []docModel.DocChunk, vectors [][]float32) error

	// Search returns up to k chunks ordered best match first, using cosine
	// similarity. k larger than the index size returns everything. A query
	// vector of the wrong dimension fails with *docModel.DimensionMismatchError.
	Search(ctx context.Context, docID string, vector []float32, k int) ([]docModel.ScoredChunk, error)

	// DeleteIndex removes the document's index. Deleting an absent index is
	// a no-op.
	DeleteIndex(ctx context.Context, docID string) error

	// HasIndex reports whether a non-empty persisted index exists.
	HasIndex(ctx context.Context, docID string) (bool, error)

	// IndexRef reports where the document's index lives, a file path for the
	// bolt backend and a collection name for qdrant. Informational only.
	IndexRef(docID string) string

	Close() error
}
