package rag

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/domain/jobModel"
	"github.com/soumk/pdfchat-api/internal/metrics"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

// sourcesOf collapses matches to page references, first occurrence order.
func sourcesOf(matches []docModel.ScoredChunk) []string {
	var sources []string
	seen := make(map[int]bool)
	for _, m := range matches {
		if seen[m.Page] {
			continue
		}
		seen[m.Page] = true
		sources = append(sources, fmt.Sprintf("page %d", m.Page))
	}
	return sources
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err)

	if message == "" {
		message = "Internal Server Error"
	}
	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	return job
}

func (s *service) executeRetrievalStep(ctx context.Context, log *logger_i.Logger, docID string, question string) ([]docModel.ScoredChunk, []float32, error) {
	log.Debug("Ask", "Current Step", "retrieval")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	return s.retriever.Retrieve(ctx, docID, question)
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, docID string, question string, queryVector []float32) (string, bool) {
	if s.answerCache == nil {
		return "", false
	}
	log.Debug("Ask", "Current Step", "cache_lookup")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	return s.answerCache.Get(ctx, docID, question, queryVector)
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, question string, matches []docModel.ScoredChunk) (string, error) {
	log.Debug("Ask", "Current Step", "llm_generation")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.synthesizer.Answer(ctx, question, matches)
}
