package config

import (
	"log/slog"
	"os"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	NoAuthBypass = true //set to false once a real token is provisioned
	AuthToken    = ""

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//embeddings - dimension is pinned at index build time and validated on every query
	EmbeddingOutputDimensionality int32 = 1536
	GeminiModelName                     = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel                = "gemini-embedding-001"
	OpenAIEmbeddingModel                = "text-embedding-3-small"
	OpenAIChatModel                     = "gpt-4o-mini"

	//retrieval + chunking defaults mirror the original deployment, tune via RAGConfig
	DefaultChunkSize   = 1000
	DefaultOverlap     = 200
	DefaultTopK        = 3
	DefaultTemperature = 0.3

	GroundedSystemPrompt = "Use the following pieces of context to answer the question at the end. " +
		"If you don't know the answer, just say that you don't know, don't try to make up an answer."

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	//upper bound on one full document ingestion, extraction through indexing
	IngestJobTimeout = 10 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 30 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//per-document storage root, each document gets <DataDir>/<id>/index.db
	DefaultDataDir = "vectorDB"
	UploadDir      = "uploads"

	//embedding calls are batched, one request per EmbeddingBatchSize chunks
	EmbeddingBatchSize = 100
	//above this many chunks, providers with a batch-job API switch to it
	HugeDataSetThreshold = 500

	//vectorDB backend: "bolt" (default, file backed) or "qdrant"
	VectorBackendBolt   = "bolt"
	VectorBackendQdrant = "qdrant"

	QdrantHost             = ""
	QdrantGrpcPort         = 6334
	QdrantUseTLS           = false
	QdrantPoolSize         = 1
	CacheSimilarityCutoff  = 0.97
	QdrantCollectionPrefix = "doc-"

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort
	RedisPassword = ""

	RedisJobStore     = 0
	RedisAnswerCache  = 1
	RedisJobStoreTTL  = 24 * time.Hour
	RedisAnswerTTL    = 24 * time.Hour
)

// RAGConfig carries the tunables that used to be sprinkled through the
// original service as magic numbers. It is handed to the ingestion pipeline,
// retrieval engine and answer synthesizer at construction.
type RAGConfig struct {
	ChunkSize   int
	Overlap     int
	TopK        int
	Temperature float64
}

func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		ChunkSize:   DefaultChunkSize,
		Overlap:     DefaultOverlap,
		TopK:        DefaultTopK,
		Temperature: DefaultTemperature,
	}
}

func DataDir() string {
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		return dir
	}
	return DefaultDataDir
}

func VectorBackend() string {
	if b := os.Getenv("VECTOR_BACKEND"); b != "" {
		return b
	}
	return VectorBackendBolt
}

// EmbeddingProvider selects "google" (default) or "openai". The embedding
// space of a persisted index must match the configured provider, switching
// providers requires re-ingesting every document.
func EmbeddingProvider() string {
	if p := os.Getenv("EMBEDDING_PROVIDER"); p != "" {
		return p
	}
	return "google"
}

// EmbeddingModelName is the model of the active provider, recorded in index
// metadata so a model switch is detectable.
func EmbeddingModelName() string {
	if EmbeddingProvider() == "openai" {
		return OpenAIEmbeddingModel
	}
	return GoogleEmbeddingModel
}

func GoogleAPIKey() string {
	return os.Getenv("GOOGLE_API_KEY")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}
