package retrieval

import (
	"context"

	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/rag/embedding"
	"github.com/soumk/pdfchat-api/internal/rag/vectorDB"
	"github.com/soumk/pdfchat-api/internal/registry"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

// Engine answers "which chunks of this document are closest to this
// question". Readiness is checked before any provider call so a question
// against a missing or mid-ingestion document never costs an embedding
// request.
type Engine struct {
	registry *registry.Registry
	embedder embedding.Embedder
	store    vectorDB.Store
	topK     int
	logger   *logger_i.Logger
}

func NewEngine(reg *registry.Registry, e embedding.Embedder, store vectorDB.Store, cfg config.RAGConfig) *Engine {
	return &Engine{
		registry: reg,
		embedder: e,
		store:    store,
		topK:     cfg.TopK,
		logger:   logger_i.NewLogger("Retrieval"),
	}
}

// Retrieve embeds the question and returns the top matching chunks along
// with the query vector, so callers can reuse it for answer caching.
func (e *Engine) Retrieve(ctx context.Context, docID string, question string) ([]docModel.ScoredChunk, []float32, error) {
	log := e.logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	doc, ok := e.registry.Get(docID)
	if !ok || doc.Status != docModel.StatusReady {
		return nil, nil, docModel.ErrDocumentNotReady
	}

	queryVector, err := e.embedder.GetEmbedding(ctx, question)
	if err != nil {
		return nil, nil, err
	}

	matches, err := e.store.Search(ctx, docID, queryVector, e.topK)
	if err != nil {
		return nil, nil, err
	}

	log.Debug("Retrieved chunks", "docId", docID, "matches", len(matches))
	return matches, queryVector, nil
}
