package qdrantDB

import (
	"context"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/soumk/pdfchat-api/internal/adapter/utils"
	"github.com/soumk/pdfchat-api/internal/config"
)

var semanticCacheDBName = "semantic-cache"

func initCacheCollection(ctx context.Context, client *qdrant.Client) {
	exists, err := client.CollectionExists(ctx, semanticCacheDBName)
	if err == nil && exists {
		return
	}
	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: semanticCacheDBName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     pinnedDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		logger.Error("Semantic cache collection creation failed", "error", err)
	}
}

// SemanticCache answers repeated questions that are phrased differently,
// matching on query-embedding similarity instead of the question text.
// Entries are scoped to one document via a payload filter.
type SemanticCache struct {
	store *Store
}

func (db *Store) SemanticCache() *SemanticCache {
	return &SemanticCache{store: db}
}

func (c *SemanticCache) Get(ctx context.Context, docID string, _ string, queryVector []float32) (string, bool) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	if len(queryVector) == 0 {
		return "", false
	}

	searchResult, err := c.store.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: semanticCacheDBName,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("doc_id", docID),
			},
		},
	})
	if err != nil || len(searchResult) == 0 {
		return "", false
	}

	if searchResult[0].Score < config.CacheSimilarityCutoff {
		return "", false
	}

	loggr.Debug("Semantic cache hit", "score", searchResult[0].Score)
	return searchResult[0].Payload["answer"].GetStringValue(), true
}

func (c *SemanticCache) Save(ctx context.Context, docID string, question string, answer string, queryVector []float32) error {
	_, err := c.store.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: semanticCacheDBName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(utils.GetNewUUID()),
				Vectors: qdrant.NewVectors(queryVector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"doc_id":    docID,
					"question":  question,
					"answer":    answer,
					"timestamp": time.Now().Unix(),
				}),
			},
		},
	})
	return err
}
