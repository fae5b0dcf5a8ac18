package synthesis

import (
	"context"

	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/rag/llm"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

// Synthesizer turns retrieved chunks into a grounded answer. The system
// prompt pins the model to the supplied context, so an empty or irrelevant
// retrieval yields an honest "not in the document" answer instead of a
// hallucination.
type Synthesizer struct {
	provider    llm.Provider
	temperature float64
	logger      *logger_i.Logger
}

func NewSynthesizer(p llm.Provider, cfg config.RAGConfig) *Synthesizer {
	return &Synthesizer{
		provider:    p,
		temperature: cfg.Temperature,
		logger:      logger_i.NewLogger("Synthesis"),
	}
}

func (s *Synthesizer) Answer(ctx context.Context, question string, matches []docModel.ScoredChunk) (string, error) {
	log := s.logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text)
	}

	answer, err := s.provider.Generate(ctx, question, texts, s.temperature)
	if err != nil {
		log.Error("Error generating answer", "error", err)
		return "", err
	}
	return answer, nil
}
