package rag

import (
	"context"
	"errors"
	"time"

	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/domain/jobModel"
	"github.com/soumk/pdfchat-api/internal/metrics"
	"github.com/soumk/pdfchat-api/internal/rag/cache"
	"github.com/soumk/pdfchat-api/internal/rag/ingest"
	"github.com/soumk/pdfchat-api/internal/rag/retrieval"
	"github.com/soumk/pdfchat-api/internal/rag/synthesis"
	"github.com/soumk/pdfchat-api/internal/registry"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - This is the PUBLIC contract.
  - It defines the "behavior" (what the worker and handlers can do).
  - We expose this to keep callers decoupled from our specific logic.

2. service (Private Struct):
  - This is the PRIVATE implementation.
  - It holds the "state" (registry, retrieval engine, synthesizer).
  - It is lowercase to prevent external packages from accessing our
    internal dependencies directly.

3. Pointer Receiver (*service):
  - By defining methods on (*service), the struct IMPLICITLY satisfies
    the Service interface.

4. Dependency Injection (NewService):
  - This constructor links the private struct to the public interface.
  - It allows us to swap real stores for mocks during testing without
    changing the callers' code.
*/

// Service is the single entry point for everything document related. The
// worker calls IngestDocument, the HTTP and MCP surfaces call the rest.
type Service interface {
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	Ask(ctx context.Context, docID string, question string) (answer string, sources []string, err error)
	ListDocuments(ctx context.Context) []string
	GetDocument(docID string) (docModel.Document, bool)
	DeleteDocument(ctx context.Context, docID string) (bool, error)
	DeleteAllDocuments(ctx context.Context) (int, error)
}

type service struct {
	registry    *registry.Registry
	pipeline    *ingest.Pipeline
	retriever   *retrieval.Engine
	synthesizer *synthesis.Synthesizer
	answerCache cache.AnswerCache
	logger      *logger_i.Logger
}

// NewService constructor. answerCache may be nil, answers are then always
// generated fresh.
func NewService(reg *registry.Registry, pipeline *ingest.Pipeline, retriever *retrieval.Engine, synthesizer *synthesis.Synthesizer, answerCache cache.AnswerCache) Service {
	return &service{
		registry:    reg,
		pipeline:    pipeline,
		retriever:   retriever,
		synthesizer: synthesizer,
		answerCache: answerCache,
		logger:      logger_i.NewLogger("RAG Service :"),
	}
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Document_ingestion", time.Since(start)) }()

	j := s.pipeline.Run(ctx, job)
	metrics.SetDocumentsReady(s.registry.ReadyCount())
	if j.Status != jobModel.JobStatusComplete {
		return s.jobError(j, errors.New("ingest Document Failed"), j.Error.Message, true)
	}
	return j
}

func (s *service) Ask(ctx context.Context, docID string, question string) (string, []string, error) {
	inMethodLogger := s.logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY), "docId", docID)

	processContext, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Retrieval (readiness check + query embedding + search)
	matches, queryVector, err := s.executeRetrievalStep(processContext, inMethodLogger, docID, question)
	if err != nil {
		s.demoteIfCorrupted(processContext, docID, err)
		return "", nil, err
	}

	// Cache Check
	if cached, found := s.executeCacheCheckStep(processContext, inMethodLogger, docID, question, queryVector); found {
		return cached, sourcesOf(matches), nil
	}

	// LLM Generation
	answer, err := s.executeLLMStep(processContext, inMethodLogger, question, matches)
	if err != nil {
		return "", nil, err
	}

	//Background Cache Save
	if s.answerCache != nil {
		go func() {
			saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer saveCancel()
			if err := s.answerCache.Save(saveCtx, docID, question, answer, queryVector); err != nil {
				s.logger.Error("Failed to save to cache", "error", err)
			}
		}()
	}

	return answer, sourcesOf(matches), nil
}

// demoteIfCorrupted marks a document failed when its persisted index turned
// out unreadable. A corrupted index can never serve another query, leaving
// the document ready would block re-ingestion behind ErrDuplicateDocument
// while every ask keeps failing.
func (s *service) demoteIfCorrupted(ctx context.Context, docID string, err error) {
	if !errors.Is(err, docModel.ErrIndexCorrupted) {
		return
	}
	s.logger.Warn("Demoting document with unreadable index", "docId", docID)
	if uerr := s.registry.UpdateStatus(ctx, docID, docModel.StatusFailed, docModel.IndexMeta{}); uerr != nil {
		s.logger.Error("Could not mark document failed", "docId", docID, "error", uerr)
	}
	metrics.SetDocumentsReady(s.registry.ReadyCount())
}

func (s *service) ListDocuments(ctx context.Context) []string {
	return s.registry.List()
}

func (s *service) GetDocument(docID string) (docModel.Document, bool) {
	return s.registry.Get(docID)
}

func (s *service) DeleteDocument(ctx context.Context, docID string) (bool, error) {
	existed, err := s.registry.Delete(ctx, docID)
	metrics.SetDocumentsReady(s.registry.ReadyCount())
	return existed, err
}

func (s *service) DeleteAllDocuments(ctx context.Context) (int, error) {
	n, err := s.registry.DeleteAll(ctx)
	metrics.SetDocumentsReady(s.registry.ReadyCount())
	return n, err
}
