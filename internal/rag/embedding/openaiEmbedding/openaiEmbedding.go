package openaiEmbedding

import (
	"context"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/rag/embedding"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

type client struct {
	openAi openai.Client
	model  string
}

func GetOpenAIEmbeddingClient(ctx context.Context, modelName string, apikey string) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_embedding")
		if apikey == "" {
			logger.Error("OpenAI API key not set, embedding client unavailable")
			return
		}
		embeddingClient = &client{
			openAi: openai.NewClient(option.WithAPIKey(apikey)),
			model:  modelName,
		}
		logger.Debug("OpenAI Embedding model name: " + modelName)
		logger.Info("OpenAI Embedding client created")
	})

	if embeddingClient == nil {
		return nil
	}
	return embeddingClient
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vecs, err := c.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// BatchEmbedding sends all chunks in one request. OpenAI has no separate
// batch-job API for embeddings the way Google does, so the huge flag only
// changes how callers slice their input.
func (c *client) BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error) {
	return c.embed(ctx, chunks)
}

func (c *client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	log := logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	resp, err := c.openAi.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(config.EmbeddingOutputDimensionality)),
	})
	if err != nil {
		log.Error("Error getting embeddings from OpenAI", "error", err.Error())
		return nil, &docModel.EmbeddingServiceError{Provider: "openai", Err: err}
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}
