package openaiLLM

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/rag/llm"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

type llmClient struct {
	client    openai.Client
	modelName string
}

var logger *logger_i.Logger
var openaiClient *llmClient
var once sync.Once

func GetOpenAIClient(ctx context.Context, modelName string, apikey string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_openai")
		if apikey == "" {
			logger.Error("OpenAI API key not set, chat client unavailable")
			return
		}
		openaiClient = &llmClient{
			client:    openai.NewClient(option.WithAPIKey(apikey)),
			modelName: modelName,
		}
		logger.Info("OpenAI chat client created", "model", modelName)
	})

	if openaiClient == nil {
		return nil
	}
	return openaiClient
}

func (c *llmClient) Generate(ctx context.Context, question string, matches []string, temperature float64) (string, error) {
	log := logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	contextText := strings.Join(matches, "\n\n")
	userPrompt := fmt.Sprintf("Context:\n%s\n\nUser Question: %s", contextText, question)

	chat, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(config.GroundedSystemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		log.Error("Error generating answer with OpenAI", "error", err.Error())
		return "", &docModel.AnswerGenerationError{Provider: "openai", Err: err}
	}
	if len(chat.Choices) == 0 {
		return "", &docModel.AnswerGenerationError{Provider: "openai", Err: fmt.Errorf("empty completion response")}
	}
	return chat.Choices[0].Message.Content, nil
}
