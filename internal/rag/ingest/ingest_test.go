package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/domain/jobModel"
	"github.com/soumk/pdfchat-api/internal/registry"
)

// --- Mocks ---

type mockEmbedder struct {
	batchFunc func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return nil, nil
}
func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
	return m.batchFunc(ctx, chunks, isHuge)
}

type mockVectorStore struct {
	buildFunc   func(ctx context.Context, docID string, chunks []docModel.DocChunk, vectors [][]float32) error
	deletedDocs []string
}

func (m *mockVectorStore) BuildIndex(ctx context.Context, docID string, chunks []docModel.DocChunk, vectors [][]float32) error {
	if m.buildFunc != nil {
		return m.buildFunc(ctx, docID, chunks, vectors)
	}
	return nil
}
func (m *mockVectorStore) Search(ctx context.Context, docID string, v []float32, k int) ([]docModel.ScoredChunk, error) {
	return nil, nil
}
func (m *mockVectorStore) DeleteIndex(ctx context.Context, docID string) error {
	m.deletedDocs = append(m.deletedDocs, docID)
	return nil
}
func (m *mockVectorStore) HasIndex(ctx context.Context, docID string) (bool, error) {
	return true, nil
}
func (m *mockVectorStore) IndexRef(docID string) string { return "index/" + docID }

func (m *mockVectorStore) Close() error { return nil }

func newTestPipeline(t *testing.T, store *mockVectorStore, emb *mockEmbedder) (*Pipeline, *registry.Registry) {
	t.Helper()
	reg, err := registry.Open(filepath.Join(t.TempDir(), "registry.db"), store)
	if err != nil {
		t.Fatalf("opening test registry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return NewPipeline(reg, emb, store, config.DefaultRAGConfig()), reg
}

// --- Unit Tests ---

func TestDocIDFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"manual.pdf", "manual"},
		{"Manual.PDF", "Manual"},
		{"report v2.pdf", "report-v2"},
		{"../../etc/passwd.pdf", "passwd"},
		{"notes", "notes"},
	}

	for _, tt := range tests {
		got, err := DocIDFromFilename(tt.filename)
		if err != nil {
			t.Errorf("DocIDFromFilename(%s) failed: %v", tt.filename, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("DocIDFromFilename(%s) = %s; want %s", tt.filename, got, tt.expected)
		}
	}
}

// a name stripping down to "", "." or ".." would point the per-document
// directory at the data root or above it
func TestDocIDFromFilenameRejectsDotNames(t *testing.T) {
	for _, filename := range []string{"", ".pdf", "..pdf", "...pdf", ".", ".."} {
		id, err := DocIDFromFilename(filename)
		if !errors.Is(err, docModel.ErrInvalidDocumentID) {
			t.Errorf("DocIDFromFilename(%q) = (%q, %v); want ErrInvalidDocumentID", filename, id, err)
		}
	}
}

func TestChunkPages(t *testing.T) {
	p, _ := newTestPipeline(t, &mockVectorStore{}, &mockEmbedder{})

	pages := []rawPage{
		{Number: 1, Content: "Page one content."},
		{Number: 2, Content: "   "},
		{Number: 3, Content: "Page three content."},
	}

	chunks, err := p.chunkPages("doc-1", pages)
	if err != nil {
		t.Fatalf("chunkPages failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks (blank page skipped), got %d", len(chunks))
	}
	if chunks[0].Page != 1 || chunks[1].Page != 3 {
		t.Errorf("page numbers wrong: %+v", chunks)
	}
	for i, c := range chunks {
		if c.Position != i {
			t.Errorf("expected position %d, got %d", i, c.Position)
		}
		if c.DocID != "doc-1" {
			t.Errorf("expected docID doc-1, got %s", c.DocID)
		}
	}
}

func TestChunkPagesAllBlank(t *testing.T) {
	p, _ := newTestPipeline(t, &mockVectorStore{}, &mockEmbedder{})

	_, err := p.chunkPages("doc-1", []rawPage{{Number: 1, Content: "\n\n"}})
	if !errors.Is(err, docModel.ErrNoExtractableText) {
		t.Errorf("expected ErrNoExtractableText, got %v", err)
	}
}

func TestEmbedChunksBatching(t *testing.T) {
	callCount := 0
	emb := &mockEmbedder{
		batchFunc: func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
			callCount++
			out := make([][]float32, len(chunks))
			for i := range out {
				out[i] = []float32{1, 0}
			}
			return out, nil
		},
	}
	p, _ := newTestPipeline(t, &mockVectorStore{}, emb)

	chunks := make([]docModel.DocChunk, 150) // 100 + 50
	for i := range chunks {
		chunks[i] = docModel.DocChunk{Text: "test content", Position: i}
	}

	vectors, err := p.embedChunks(context.Background(), chunks)
	if err != nil {
		t.Fatalf("embedChunks failed: %v", err)
	}
	if callCount != 2 {
		t.Errorf("expected 2 batches, got %d", callCount)
	}
	if len(vectors) != 150 {
		t.Errorf("expected 150 vectors, got %d", len(vectors))
	}
}

func TestEmbedChunksCountMismatch(t *testing.T) {
	emb := &mockEmbedder{
		batchFunc: func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
			return [][]float32{{1}}, nil
		},
	}
	p, _ := newTestPipeline(t, &mockVectorStore{}, emb)

	_, err := p.embedChunks(context.Background(), []docModel.DocChunk{{Text: "a"}, {Text: "b"}})
	var embErr *docModel.EmbeddingServiceError
	if !errors.As(err, &embErr) {
		t.Errorf("expected EmbeddingServiceError, got %v", err)
	}
}

func TestRunRejectsDuplicateDocument(t *testing.T) {
	store := &mockVectorStore{}
	p, reg := newTestPipeline(t, store, &mockEmbedder{})
	ctx := context.Background()

	if err := reg.Register(ctx, docModel.Document{ID: "manual", Status: docModel.StatusReady}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	job := jobModel.Job{
		Id:      "job-1",
		JobType: jobModel.JobTypeIngest,
		JobPayload: jobModel.JobPayload{
			IngestFileName: "manual.pdf",
			IngestURL:      filepath.Join(t.TempDir(), "manual.pdf"),
		},
	}

	out := p.Run(ctx, job)
	if out.Status != jobModel.JobStatusError {
		t.Errorf("expected job error for duplicate, got %s", out.Status)
	}
	if out.JobPayload.DocumentId != "manual" {
		t.Errorf("expected document id on failed job, got %s", out.JobPayload.DocumentId)
	}
}

func TestRunRejectsDotOnlyFilename(t *testing.T) {
	store := &mockVectorStore{}
	p, reg := newTestPipeline(t, store, &mockEmbedder{})
	ctx := context.Background()

	job := jobModel.Job{
		Id:      "job-1",
		JobType: jobModel.JobTypeIngest,
		JobPayload: jobModel.JobPayload{
			IngestFileName: "...pdf",
			IngestURL:      filepath.Join(t.TempDir(), "...pdf"),
		},
	}

	out := p.Run(ctx, job)
	if out.Status != jobModel.JobStatusError {
		t.Fatalf("expected job error, got %s", out.Status)
	}
	if len(reg.List()) != 0 {
		t.Errorf("expected nothing registered, got %v", reg.List())
	}
	if len(store.deletedDocs) != 0 {
		t.Errorf("expected no index deletions for a rejected name, got %v", store.deletedDocs)
	}
}

func TestRunFailsOnEmptyFile(t *testing.T) {
	store := &mockVectorStore{}
	p, reg := newTestPipeline(t, store, &mockEmbedder{})
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "empty.pdf")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("writing empty file: %v", err)
	}

	job := jobModel.Job{
		Id:      "job-1",
		JobType: jobModel.JobTypeIngest,
		JobPayload: jobModel.JobPayload{
			IngestFileName: "empty.pdf",
			IngestURL:      path,
		},
	}

	out := p.Run(ctx, job)
	if out.Status != jobModel.JobStatusError {
		t.Fatalf("expected job error, got %s", out.Status)
	}

	doc, ok := reg.Get("empty")
	if !ok {
		t.Fatal("expected registry entry for failed document")
	}
	if doc.Status != docModel.StatusFailed {
		t.Errorf("expected failed status, got %s", doc.Status)
	}
	if len(store.deletedDocs) == 0 {
		t.Error("expected partial index cleanup attempt")
	}
}
