package rag_test

import (
	"context"

	"github.com/soumk/pdfchat-api/internal/domain/docModel"
)

// MockVectorStore implements vectorDB.Store
type MockVectorStore struct {
	// Control fields to simulate different behaviors
	OnBuildIndex  func(ctx context.Context, docID string, chunks []docModel.DocChunk, vectors [][]float32) error
	OnSearch      func(ctx context.Context, docID string, vector []float32, k int) ([]docModel.ScoredChunk, error)
	OnDeleteIndex func(ctx context.Context, docID string) error
	OnHasIndex    func(ctx context.Context, docID string) (bool, error)
}

func (m *MockVectorStore) BuildIndex(ctx context.Context, docID string, chunks []docModel.DocChunk, vectors [][]float32) error {
	if m.OnBuildIndex != nil {
		return m.OnBuildIndex(ctx, docID, chunks, vectors)
	}
	return nil
}

func (m *MockVectorStore) Search(ctx context.Context, docID string, vector []float32, k int) ([]docModel.ScoredChunk, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, docID, vector, k)
	}
	return []docModel.ScoredChunk{{Text: "default context", Page: 1, Score: 0.9}}, nil
}

func (m *MockVectorStore) DeleteIndex(ctx context.Context, docID string) error {
	if m.OnDeleteIndex != nil {
		return m.OnDeleteIndex(ctx, docID)
	}
	return nil
}

func (m *MockVectorStore) HasIndex(ctx context.Context, docID string) (bool, error) {
	if m.OnHasIndex != nil {
		return m.OnHasIndex(ctx, docID)
	}
	return true, nil
}

func (m *MockVectorStore) IndexRef(docID string) string { return "index/" + docID }

func (m *MockVectorStore) Close() error { return nil }

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error)
	GetCalls         int
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	m.GetCalls++
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{0.1}, nil
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks, isHuge)
	}
	out := make([][]float32, len(chunks))
	for i := range out {
		out[i] = []float32{0.1}
	}
	return out, nil
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, question string, matches []string, temperature float64) (string, error)
	Calls      int
}

func (m *MockLLM) Generate(ctx context.Context, question string, matches []string, temperature float64) (string, error) {
	m.Calls++
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, question, matches, temperature)
	}
	return "mocked llm response", nil
}

// MockCache implements cache.AnswerCache
type MockCache struct {
	OnGet  func(ctx context.Context, docID string, question string, queryVector []float32) (string, bool)
	OnSave func(ctx context.Context, docID string, question string, answer string, queryVector []float32) error
}

func (m *MockCache) Get(ctx context.Context, docID string, question string, queryVector []float32) (string, bool) {
	if m.OnGet != nil {
		return m.OnGet(ctx, docID, question, queryVector)
	}
	return "", false
}

func (m *MockCache) Save(ctx context.Context, docID string, question string, answer string, queryVector []float32) error {
	if m.OnSave != nil {
		return m.OnSave(ctx, docID, question, answer, queryVector)
	}
	return nil
}
