// @title           PDF Chat API
// @version         1.0
// @description     Upload PDF documents and ask grounded questions against them
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/data/store"
	jobmodel "github.com/soumk/pdfchat-api/internal/domain/jobModel"
	"github.com/soumk/pdfchat-api/internal/handlers"
	"github.com/soumk/pdfchat-api/internal/job"
	"github.com/soumk/pdfchat-api/internal/metrics"
	"github.com/soumk/pdfchat-api/internal/rag"
	"github.com/soumk/pdfchat-api/internal/rag/cache"
	"github.com/soumk/pdfchat-api/internal/rag/embedding"
	"github.com/soumk/pdfchat-api/internal/rag/embedding/googleEmbedding"
	"github.com/soumk/pdfchat-api/internal/rag/embedding/openaiEmbedding"
	"github.com/soumk/pdfchat-api/internal/rag/ingest"
	"github.com/soumk/pdfchat-api/internal/rag/llm"
	"github.com/soumk/pdfchat-api/internal/rag/llm/gemini"
	"github.com/soumk/pdfchat-api/internal/rag/llm/openaiLLM"
	"github.com/soumk/pdfchat-api/internal/rag/retrieval"
	"github.com/soumk/pdfchat-api/internal/rag/synthesis"
	"github.com/soumk/pdfchat-api/internal/rag/vectorDB"
	"github.com/soumk/pdfchat-api/internal/rag/vectorDB/boltIndex"
	"github.com/soumk/pdfchat-api/internal/rag/vectorDB/qdrantDB"
	"github.com/soumk/pdfchat-api/internal/registry"
	"github.com/soumk/pdfchat-api/internal/server"
	"github.com/soumk/pdfchat-api/internal/worker"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	//missing .env is fine, the environment may be set by the host
	_ = godotenv.Load()

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	var jobStore jobmodel.JobStore
	if redisJobStore := store.GetRedisJobStore(serviceContext); redisJobStore != nil {
		jobStore = redisJobStore
	} else {
		logger.Error("Redis job store is offline, falling back to memory")
		jobStore = store.InitInMemoryJobStore()
	}

	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStore,
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	//vector index backend
	dataDir := config.DataDir()
	var vectorStore vectorDB.Store
	var qdrantStore *qdrantDB.Store
	if config.VectorBackend() == config.VectorBackendQdrant {
		qdrantStore = qdrantDB.GetQdrantStore(serviceContext)
		if qdrantStore != nil {
			vectorStore = qdrantStore
		}
	} else {
		boltStore, err := boltIndex.NewStore(dataDir, config.EmbeddingModelName())
		if err != nil {
			logger.Error("Could not open vector index store", "error", err)
			return
		}
		vectorStore = boltStore
	}

	//embedding and llm providers
	var embeddingService embedding.Embedder
	var llmProvider llm.Provider
	if config.EmbeddingProvider() == "openai" {
		embeddingService = openaiEmbedding.GetOpenAIEmbeddingClient(serviceContext, config.OpenAIEmbeddingModel, config.OpenAIAPIKey())
		llmProvider = openaiLLM.GetOpenAIClient(serviceContext, config.OpenAIChatModel, config.OpenAIAPIKey())
	} else {
		embeddingService = googleEmbedding.GetGoogleEmbeddingClient(serviceContext, config.GoogleEmbeddingModel, config.GoogleAPIKey())
		llmProvider = gemini.GetGeminiClient(serviceContext, config.GeminiModelName, config.GoogleAPIKey())
	}

	if vectorStore == nil || embeddingService == nil || llmProvider == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "VectorStore", vectorStore != nil, "EmbeddingService", embeddingService != nil, "LLMProvider", llmProvider != nil)
		return
	}

	//document registry, durable across restarts
	reg, err := registry.Open(filepath.Join(dataDir, "registry.db"), vectorStore)
	if err != nil {
		logger.Error("Could not open document registry", "error", err)
		return
	}
	defer reg.Close()

	if err := reg.Recover(serviceContext); err != nil {
		logger.Error("Registry recovery failed", "error", err)
		return
	}
	metrics.SetDocumentsReady(reg.ReadyCount())

	//answer cache, semantic when qdrant is around, exact-match redis otherwise
	var answerCache cache.AnswerCache
	if qdrantStore != nil {
		if sc := qdrantStore.SemanticCache(); sc != nil {
			answerCache = sc
		}
	} else if redisCache := cache.GetRedisCache(serviceContext); redisCache != nil {
		answerCache = redisCache
	}

	ragCfg := config.DefaultRAGConfig()
	pipeline := ingest.NewPipeline(reg, embeddingService, vectorStore, ragCfg)
	retriever := retrieval.NewEngine(reg, embeddingService, vectorStore, ragCfg)
	synthesizer := synthesis.NewSynthesizer(llmProvider, ragCfg)

	ragService := rag.NewService(reg, pipeline, retriever, synthesizer, answerCache)

	handlers.InitJobHandler(service, ragService)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr, ragService)

	<-stopExecution
	if err := vectorStore.Close(); err != nil {
		logger.Error("Error closing vector store", "error", err)
	}
	logger.Info("Server stopped")
}
