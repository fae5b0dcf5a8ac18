package embedding

import "context"

// Embedder turns text into fixed-dimension vectors. Chunk and query
// embeddings come from the same provider so similarities stay comparable.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error)
}
