package qdrantDB

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

var (
	logger          *logger_i.Logger
	qdrantInstance  *qdrant.Client
	once            sync.Once
	pinnedDimension = uint64(config.EmbeddingOutputDimensionality)
)

// Store implements vectorDB.Store on a remote Qdrant. Every document gets
// its own collection so indices stay isolated and deletion is a collection
// drop. The default backend is the file-backed bolt index, this one is for
// deployments that already run Qdrant.
type Store struct {
	client *qdrant.Client
}

func GetQdrantStore(ctx context.Context) *Store {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient()
		if res != nil {
			qdrantInstance = res
			initCacheCollection(ctx, qdrantInstance)
			go closeQdrant(ctx, qdrantInstance)
		}
	})

	if qdrantInstance == nil {
		return nil
	}
	return &Store{client: qdrantInstance}
}

func newClient() *qdrant.Client {
	host := os.Getenv("QDRANT_HOST")
	port, er := strconv.Atoi(os.Getenv("QDRANT_PORT"))

	if host == "" || er != nil {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error:", err)
		return nil
	}
	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		logger.Error("could not close Qdrant: ", "error:", err)
	}
}

func collectionName(docID string) string {
	return config.QdrantCollectionPrefix + docID
}

func (db *Store) BuildIndex(ctx context.Context, docID string, chunks []docModel.DocChunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return docModel.ErrEmptyIndex
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	for _, v := range vectors {
		if uint64(len(v)) != pinnedDimension {
			return &docModel.DimensionMismatchError{Want: int(pinnedDimension), Got: len(v)}
		}
	}

	name := collectionName(docID)

	// rebuild semantics: the pipeline owns index creation, so an existing
	// collection from an earlier failed ingest is dropped first
	exists, err := db.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant collection check failed: %w", err)
	}
	if exists {
		if err := db.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("qdrant collection reset failed: %w", err)
		}
	}

	err = db.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     pinnedDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant collection create failed: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(chunk.Position)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"content":  chunk.Text,
				"page":     chunk.Page,
				"position": chunk.Position,
				"doc_id":   chunk.DocID,
			}),
		}
	}

	_, err = db.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (db *Store) Search(ctx context.Context, docID string, vector []float32, k int) ([]docModel.ScoredChunk, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	if uint64(len(vector)) != pinnedDimension {
		return nil, &docModel.DimensionMismatchError{Want: int(pinnedDimension), Got: len(vector)}
	}
	if k <= 0 {
		k = 1
	}

	result, err := db.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName(docID),
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Error querying Qdrant: ", "error:", err)
		return nil, fmt.Errorf("%w: %v", docModel.ErrIndexCorrupted, err)
	}

	matches := make([]docModel.ScoredChunk, 0, len(result))
	for _, hit := range result {
		matches = append(matches, docModel.ScoredChunk{
			Text:     hit.Payload["content"].GetStringValue(),
			Page:     int(hit.Payload["page"].GetIntegerValue()),
			Position: int(hit.Payload["position"].GetIntegerValue()),
			Score:    hit.Score,
		})
	}
	return matches, nil
}

func (db *Store) DeleteIndex(ctx context.Context, docID string) error {
	name := collectionName(docID)
	exists, err := db.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return db.client.DeleteCollection(ctx, name)
}

func (db *Store) HasIndex(ctx context.Context, docID string) (bool, error) {
	return db.client.CollectionExists(ctx, collectionName(docID))
}

func (db *Store) IndexRef(docID string) string {
	return collectionName(docID)
}

func (db *Store) Close() error {
	// the shared client is closed on service-context cancellation
	return nil
}
