package docModel

import (
	"errors"
	"fmt"
)

// Input errors, reported as client-side failures and never retried.
var (
	ErrEmptyDocument     = errors.New("document text is empty")
	ErrNoExtractableText = errors.New("no extractable text in document")
	ErrNotPDF            = errors.New("only PDF uploads are supported")
	ErrInvalidDocumentID = errors.New("filename does not yield a usable document id")
)

// State errors, reported as conflict / not-found.
var (
	ErrDuplicateDocument   = errors.New("document already ingested")
	ErrIngestionInProgress = errors.New("ingestion already in progress for this document")
	ErrDocumentNotReady    = errors.New("document not found or not ready")
)

// Integrity errors. A corrupted index demotes its document to failed, it
// never crashes the process.
var (
	ErrEmptyIndex     = errors.New("cannot build an index with zero chunks")
	ErrIndexCorrupted = errors.New("persisted index is corrupted or unreadable")
)

// DimensionMismatchError means a query embedding does not match the
// dimensionality pinned when the index was built. This is a caller error
// (wrong embedding model), we fail fast instead of producing nonsense scores.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: index has %d, query has %d", e.Want, e.Got)
}

// EmbeddingServiceError identifies the embedding provider as the failing
// collaborator. Not retried internally, the caller may retry the request.
type EmbeddingServiceError struct {
	Provider string
	Err      error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service %q failed: %v", e.Provider, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// AnswerGenerationError identifies the LLM provider as the failing
// collaborator. Never silently replaced with a canned answer.
type AnswerGenerationError struct {
	Provider string
	Err      error
}

func (e *AnswerGenerationError) Error() string {
	return fmt.Sprintf("answer generation via %q failed: %v", e.Provider, e.Err)
}

func (e *AnswerGenerationError) Unwrap() error { return e.Err }
