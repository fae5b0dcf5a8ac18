package rag_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/rag"
	"github.com/soumk/pdfchat-api/internal/rag/cache"
	"github.com/soumk/pdfchat-api/internal/rag/ingest"
	"github.com/soumk/pdfchat-api/internal/rag/retrieval"
	"github.com/soumk/pdfchat-api/internal/rag/synthesis"
	"github.com/soumk/pdfchat-api/internal/registry"
)

func newTestService(t *testing.T, store *MockVectorStore, emb *MockEmbedder, llmMock *MockLLM, answerCache cache.AnswerCache) (rag.Service, *registry.Registry) {
	t.Helper()

	reg, err := registry.Open(filepath.Join(t.TempDir(), "registry.db"), store)
	if err != nil {
		t.Fatalf("opening test registry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })

	cfg := config.DefaultRAGConfig()
	pipeline := ingest.NewPipeline(reg, emb, store, cfg)
	engine := retrieval.NewEngine(reg, emb, store, cfg)
	synth := synthesis.NewSynthesizer(llmMock, cfg)

	return rag.NewService(reg, pipeline, engine, synth, answerCache), reg
}

func registerReady(t *testing.T, reg *registry.Registry, id string) {
	t.Helper()
	if err := reg.Register(context.Background(), docModel.Document{ID: id, Status: docModel.StatusReady}); err != nil {
		t.Fatalf("Register(%s) failed: %v", id, err)
	}
}

func TestAsk_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		setupMocks     func(e *MockEmbedder, v *MockVectorStore, l *MockLLM, c *MockCache)
		expectedAnswer string
		expectErr      error
		expectLLMCalls int
	}{
		{
			name: "Success_Full_Flow",
			setupMocks: func(e *MockEmbedder, v *MockVectorStore, l *MockLLM, c *MockCache) {
				l.OnGenerate = func(ctx context.Context, q string, m []string, temp float64) (string, error) {
					return "final answer", nil
				}
			},
			expectedAnswer: "final answer",
			expectLLMCalls: 1,
		},
		{
			name: "Success_Cache_Hit",
			setupMocks: func(e *MockEmbedder, v *MockVectorStore, l *MockLLM, c *MockCache) {
				c.OnGet = func(ctx context.Context, docID string, q string, vec []float32) (string, bool) {
					return "cached answer", true
				}
			},
			expectedAnswer: "cached answer",
			expectLLMCalls: 0,
		},
		{
			name: "Failure_Embedding",
			setupMocks: func(e *MockEmbedder, v *MockVectorStore, l *MockLLM, c *MockCache) {
				e.OnGetEmbedding = func(ctx context.Context, text string) ([]float32, error) {
					return nil, &docModel.EmbeddingServiceError{Provider: "mock", Err: errors.New("api limit")}
				}
			},
			expectErr: &docModel.EmbeddingServiceError{},
		},
		{
			name: "Failure_Vector_Search",
			setupMocks: func(e *MockEmbedder, v *MockVectorStore, l *MockLLM, c *MockCache) {
				v.OnSearch = func(ctx context.Context, docID string, vec []float32, k int) ([]docModel.ScoredChunk, error) {
					return nil, errors.New("db timeout")
				}
			},
			expectErr: errors.New("db timeout"),
		},
		{
			name: "Failure_LLM_Generation",
			setupMocks: func(e *MockEmbedder, v *MockVectorStore, l *MockLLM, c *MockCache) {
				l.OnGenerate = func(ctx context.Context, q string, m []string, temp float64) (string, error) {
					return "", &docModel.AnswerGenerationError{Provider: "mock", Err: errors.New("provider down")}
				}
			},
			expectErr: &docModel.AnswerGenerationError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mEmbed := &MockEmbedder{}
			mVec := &MockVectorStore{}
			mLLM := &MockLLM{}
			mCache := &MockCache{}

			tt.setupMocks(mEmbed, mVec, mLLM, mCache)

			s, reg := newTestService(t, mVec, mEmbed, mLLM, mCache)
			registerReady(t, reg, "manual")

			ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
			answer, _, err := s.Ask(ctx, "manual", "test question")

			if tt.expectErr != nil {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Ask failed: %v", err)
			}
			if answer != tt.expectedAnswer {
				t.Errorf("Answer got %s, want %s", answer, tt.expectedAnswer)
			}
			if mLLM.Calls != tt.expectLLMCalls {
				t.Errorf("LLM calls got %d, want %d", mLLM.Calls, tt.expectLLMCalls)
			}
		})
	}
}

func TestAsk_DocumentNotReady(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, reg *registry.Registry)
	}{
		{
			name:  "Unknown_Document",
			setup: func(t *testing.T, reg *registry.Registry) {},
		},
		{
			name: "Still_Processing",
			setup: func(t *testing.T, reg *registry.Registry) {
				if err := reg.Register(context.Background(), docModel.Document{ID: "manual", Status: docModel.StatusProcessing}); err != nil {
					t.Fatal(err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mEmbed := &MockEmbedder{}
			s, reg := newTestService(t, &MockVectorStore{}, mEmbed, &MockLLM{}, nil)
			tt.setup(t, reg)

			ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
			_, _, err := s.Ask(ctx, "manual", "question")

			if !errors.Is(err, docModel.ErrDocumentNotReady) {
				t.Errorf("expected ErrDocumentNotReady, got %v", err)
			}
			if mEmbed.GetCalls != 0 {
				t.Errorf("expected no embedding call for unready doc, got %d", mEmbed.GetCalls)
			}
		})
	}
}

// an unreadable index must take its document out of rotation: the record
// flips to failed, drops out of the listing, and a re-ingest is no longer
// blocked as a duplicate
func TestAsk_CorruptedIndexDemotesDocument(t *testing.T) {
	mVec := &MockVectorStore{
		OnSearch: func(ctx context.Context, docID string, vec []float32, k int) ([]docModel.ScoredChunk, error) {
			return nil, fmt.Errorf("%w: checksum", docModel.ErrIndexCorrupted)
		},
	}
	s, reg := newTestService(t, mVec, &MockEmbedder{}, &MockLLM{}, nil)
	registerReady(t, reg, "manual")

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	_, _, err := s.Ask(ctx, "manual", "question")
	if !errors.Is(err, docModel.ErrIndexCorrupted) {
		t.Fatalf("expected ErrIndexCorrupted, got %v", err)
	}

	doc, ok := reg.Get("manual")
	if !ok {
		t.Fatal("document record vanished")
	}
	if doc.Status != docModel.StatusFailed {
		t.Errorf("expected failed status after corrupted-index ask, got %s", doc.Status)
	}
	if len(s.ListDocuments(ctx)) != 0 {
		t.Errorf("expected empty listing, got %v", s.ListDocuments(ctx))
	}
	if err := reg.BeginIngest("manual"); err != nil {
		t.Errorf("expected re-ingest to be allowed after demotion, got %v", err)
	}
	reg.EndIngest("manual")
}

func TestAsk_SourcesDeduplicated(t *testing.T) {
	mVec := &MockVectorStore{
		OnSearch: func(ctx context.Context, docID string, vec []float32, k int) ([]docModel.ScoredChunk, error) {
			return []docModel.ScoredChunk{
				{Text: "a", Page: 2, Score: 0.9},
				{Text: "b", Page: 2, Score: 0.8},
				{Text: "c", Page: 5, Score: 0.7},
			}, nil
		},
	}
	s, reg := newTestService(t, mVec, &MockEmbedder{}, &MockLLM{}, nil)
	registerReady(t, reg, "manual")

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	_, sources, err := s.Ask(ctx, "manual", "question")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	want := []string{"page 2", "page 5"}
	if len(sources) != len(want) {
		t.Fatalf("sources got %v, want %v", sources, want)
	}
	for i := range want {
		if sources[i] != want[i] {
			t.Errorf("source %d got %s, want %s", i, sources[i], want[i])
		}
	}
}

func TestGetDocument(t *testing.T) {
	s, reg := newTestService(t, &MockVectorStore{}, &MockEmbedder{}, &MockLLM{}, nil)
	registerReady(t, reg, "manual")

	doc, found := s.GetDocument("manual")
	if !found {
		t.Fatal("expected document to be found")
	}
	if doc.ID != "manual" || doc.Status != docModel.StatusReady {
		t.Errorf("unexpected record: %+v", doc)
	}

	if _, found := s.GetDocument("ghost"); found {
		t.Error("expected unknown id to report not found")
	}
}

func TestDeleteDocument(t *testing.T) {
	s, reg := newTestService(t, &MockVectorStore{}, &MockEmbedder{}, &MockLLM{}, nil)
	registerReady(t, reg, "manual")

	ctx := context.Background()

	existed, err := s.DeleteDocument(ctx, "manual")
	if err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if !existed {
		t.Error("expected delete to report existence")
	}

	existed, err = s.DeleteDocument(ctx, "manual")
	if err != nil {
		t.Fatalf("second DeleteDocument failed: %v", err)
	}
	if existed {
		t.Error("expected second delete to be a no-op")
	}
}

func TestDeleteAllAndList(t *testing.T) {
	s, reg := newTestService(t, &MockVectorStore{}, &MockEmbedder{}, &MockLLM{}, nil)
	for _, id := range []string{"alpha", "beta"} {
		registerReady(t, reg, id)
	}

	ctx := context.Background()

	docs := s.ListDocuments(ctx)
	if len(docs) != 2 || docs[0] != "alpha" || docs[1] != "beta" {
		t.Errorf("ListDocuments got %v", docs)
	}

	n, err := s.DeleteAllDocuments(ctx)
	if err != nil {
		t.Fatalf("DeleteAllDocuments failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
	if len(s.ListDocuments(ctx)) != 0 {
		t.Error("expected empty listing after DeleteAllDocuments")
	}
}
