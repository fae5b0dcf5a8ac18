package cache

import "context"

// AnswerCache short-circuits answer synthesis for questions that were
// already answered against the same document. Implementations may match
// exactly (redis) or semantically (qdrant, using the query embedding).
// A nil cache disables caching entirely.
type AnswerCache interface {
	Get(ctx context.Context, docID string, question string, queryVector []float32) (string, bool)
	Save(ctx context.Context, docID string, question string, answer string, queryVector []float32) error
}
