package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/rag/llm"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

type llmClient struct {
	client    *genai.Client
	modelName string
}

var logger *logger_i.Logger
var geminiClient *llmClient
var once sync.Once

func GetGeminiClient(ctx context.Context, modelName string, apikey string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, modelName, apikey)
	})

	if geminiClient == nil {
		return nil
	}
	return &llmClient{client: geminiClient.client, modelName: geminiClient.modelName}
}

func newGeminiClient(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		logger.Error("Error creating Gemini client:", "error", err)
	}
	if c != nil {
		geminiClient = &llmClient{client: c, modelName: modelName}
		logger.Info("Gemini client created", "model", modelName)
		go closeClient(ctx, geminiClient)
	}
}

func (c *llmClient) Generate(ctx context.Context, question string, matches []string, temperature float64) (string, error) {
	log := logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	systemInstruction := &genai.Content{
		Parts: []*genai.Part{
			{Text: config.GroundedSystemPrompt},
		},
	}

	contextText := strings.Join(matches, "\n\n")
	userPrompt := fmt.Sprintf("Context:\n%s\n\nUser Question: %s", contextText, question)

	temp := float32(temperature)
	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       &temp,
	}

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.modelName,
		genai.Text(userPrompt),
		contentConfig,
	)
	if err != nil {
		log.Error("Error generating answer with Gemini", "error", err.Error())
		return "", &docModel.AnswerGenerationError{Provider: "gemini", Err: err}
	}
	return result.Text(), nil
}

func closeClient(ctx context.Context, llm *llmClient) {
	<-ctx.Done()
	logger.Info("Closing Gemini client")
	llm.client = nil
	llm.modelName = ""
}
