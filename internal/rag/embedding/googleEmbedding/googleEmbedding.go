package googleEmbedding

import (
	"context"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/soumk/pdfchat-api/internal/adapter/utils"
	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/rag/embedding"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client
var dimension int32 = config.EmbeddingOutputDimensionality

type client struct {
	genAi *genai.Client
	model string
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		logger.Error("Error creating Google Embedding client:", "error", err)
	}
	if c != nil {
		embeddingClient = &client{
			genAi: c,
			model: modelName,
		}
		logger.Debug("Google Embedding model name: " + modelName)
		logger.Info("Google Embedding client created")
		go closeClient(ctx, embeddingClient)
	}
}

func closeClient(ctx context.Context, embeddingClient *client) {
	<-ctx.Done()
	logger.Info("Closing Google Embedding client")
	embeddingClient.genAi = nil
	embeddingClient.model = ""
}

func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, modelName, apikey)
	})

	//if init still fails
	if embeddingClient == nil {
		return nil
	}
	return &client{genAi: embeddingClient.genAi, model: embeddingClient.model}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	text := genai.Text(query)
	result, err := c.genAi.Models.EmbedContent(ctx, c.model, text, &genai.EmbedContentConfig{OutputDimensionality: &dimension, TaskType: "RETRIEVAL_QUERY"})
	if err != nil {
		log.Error("Error getting query embedding from Google", "error", err.Error())
		return nil, &docModel.EmbeddingServiceError{Provider: "google", Err: err}
	}
	return result.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error) {
	log := logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	if !isHugeDataSet {
		res, err := c.doCall(ctx, getContent(chunks))
		if err != nil || res == nil {
			if doRetry(err, log) {
				log.Debug("Retrying in 5 seconds")
				time.Sleep(5 * time.Second)
				res, err = c.doCall(ctx, getContent(chunks))
			}
			if err != nil || res == nil {
				log.Error("Error getting embeddings from Google", "error", err)
				return nil, &docModel.EmbeddingServiceError{Provider: "google", Err: err}
			}
		}
		embeddingResults := make([][]float32, 0, len(res.Embeddings))
		for _, r := range res.Embeddings {
			embeddingResults = append(embeddingResults, r.Values)
		}
		return embeddingResults, nil
	}

	source := genai.EmbeddingsBatchJobSource{InlinedRequests: getInlinedBatchRequests(chunks)}
	batchJobName := utils.GetNewUUID()

	log = log.With("batchJobName", batchJobName, "chunks", len(chunks))
	conf := genai.CreateEmbeddingsBatchJobConfig{DisplayName: batchJobName}
	_, err := c.genAi.Batches.CreateEmbeddings(ctx, &c.model, &source, &conf)
	if err != nil {
		log.Error("Error creating batch embedding job", "error", err.Error())
		return nil, &docModel.EmbeddingServiceError{Provider: "google", Err: err}
	}

	answer, err := c.pollForAnswer(ctx, batchJobName, log)
	if err != nil {
		return nil, &docModel.EmbeddingServiceError{Provider: "google", Err: err}
	}
	resultVectors, downErrors := downloadAnswerFromClient(answer, log)
	if downErrors != nil {
		log.Error("Error downloading batch embedding results", "errors", downErrors)
	}

	return resultVectors, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content) (*genai.EmbedContentResponse, error) {
	result, err := c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{OutputDimensionality: &dimension, TaskType: "RETRIEVAL_DOCUMENT"})
	return result, err
}
