package boltIndex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/soumk/pdfchat-api/internal/domain/docModel"
)

func testChunks(n int) ([]docModel.DocChunk, [][]float32) {
	chunks := make([]docModel.DocChunk, n)
	vectors := make([][]float32, n)
	for i := 0; i < n; i++ {
		chunks[i] = docModel.DocChunk{
			DocID:    "doc-1",
			Position: i,
			Page:     i + 1,
			Text:     fmt.Sprintf("chunk number %d", i),
		}
		// orthogonal-ish vectors so ordering is deterministic
		v := make([]float32, 4)
		v[i%4] = 1
		v[(i+1)%4] = float32(i) * 0.1
		vectors[i] = v
	}
	return chunks, vectors
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), "test-embedding-model")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return s
}

func TestBuildIndex_Empty(t *testing.T) {
	s := newTestStore(t)
	err := s.BuildIndex(context.Background(), "doc-1", nil, nil)
	if !errors.Is(err, docModel.ErrEmptyIndex) {
		t.Errorf("BuildIndex with zero chunks = %v; want ErrEmptyIndex", err)
	}
}

func TestSearch_OrderAndTopK(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chunks, vectors := testChunks(5)

	if err := s.BuildIndex(ctx, "doc-1", chunks, vectors); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	// query aligned with vector 2
	results, err := s.Search(ctx, "doc-1", vectors[2], 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Position != 2 {
		t.Errorf("best match position = %d; want 2", results[0].Position)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not ordered best first at %d", i)
		}
	}
}

func TestSearch_KLargerThanIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chunks, vectors := testChunks(3)
	if err := s.BuildIndex(ctx, "doc-1", chunks, vectors); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	results, err := s.Search(ctx, "doc-1", vectors[0], 50)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("k larger than index should return all 3 chunks, got %d", len(results))
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chunks, vectors := testChunks(3)
	if err := s.BuildIndex(ctx, "doc-1", chunks, vectors); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	_, err := s.Search(ctx, "doc-1", []float32{1, 0}, 3)
	var dimErr *docModel.DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("Search with wrong dimension = %v; want DimensionMismatchError", err)
	}
	if dimErr.Want != 4 || dimErr.Got != 2 {
		t.Errorf("mismatch detail = want %d got %d", dimErr.Want, dimErr.Got)
	}
}

func TestPersistence_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	chunks, vectors := testChunks(5)
	query := vectors[1]

	first, err := NewStore(dir, "test-embedding-model")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := first.BuildIndex(ctx, "doc-1", chunks, vectors); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}
	before, err := first.Search(ctx, "doc-1", query, 5)
	if err != nil {
		t.Fatalf("Search before restart failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// a fresh store over the same directory simulates a process restart,
	// forcing a lazy load from the persisted file
	second, err := NewStore(dir, "test-embedding-model")
	if err != nil {
		t.Fatalf("NewStore after restart failed: %v", err)
	}
	after, err := second.Search(ctx, "doc-1", query, 5)
	if err != nil {
		t.Fatalf("Search after restart failed: %v", err)
	}

	if len(before) != len(after) {
		t.Fatalf("result count changed across restart: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Text != after[i].Text || before[i].Position != after[i].Position {
			t.Errorf("result %d differs across restart: %+v vs %+v", i, before[i], after[i])
		}
	}
}

func TestDeleteIndex_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chunks, vectors := testChunks(2)
	if err := s.BuildIndex(ctx, "doc-1", chunks, vectors); err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}

	if err := s.DeleteIndex(ctx, "doc-1"); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if err := s.DeleteIndex(ctx, "doc-1"); err != nil {
		t.Fatalf("second delete should be a no-op, got: %v", err)
	}

	has, err := s.HasIndex(ctx, "doc-1")
	if err != nil {
		t.Fatalf("HasIndex failed: %v", err)
	}
	if has {
		t.Error("index still reported present after delete")
	}
}

// an id of ".." would resolve the per-document directory onto the parent of
// the data root, where RemoveAll would take the registry and every other
// index with it
func TestDeleteIndex_RefusesUnsafeIDs(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "vectorDB")
	sibling := filepath.Join(base, "registry.db")
	if err := os.WriteFile(sibling, []byte("registry"), 0644); err != nil {
		t.Fatalf("writing sibling file: %v", err)
	}

	s, err := NewStore(root, "test-embedding-model")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ctx := context.Background()
	for _, id := range []string{"", ".", "..", "a/b", "../vectorDB"} {
		if err := s.DeleteIndex(ctx, id); err == nil {
			t.Errorf("DeleteIndex(%q) succeeded; want error", id)
		}
		chunks, vectors := testChunksFor(id)
		if err := s.BuildIndex(ctx, id, chunks, vectors); err == nil {
			t.Errorf("BuildIndex(%q) succeeded; want error", id)
		}
	}

	if _, err := os.Stat(sibling); err != nil {
		t.Fatalf("file beside the data root is gone: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("data root is gone: %v", err)
	}
}

func testChunksFor(id string) ([]docModel.DocChunk, [][]float32) {
	return []docModel.DocChunk{{DocID: id, Position: 0, Page: 1, Text: "chunk"}},
		[][]float32{{1, 0, 0, 0}}
}

func TestSearch_MissingIndex(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Search(context.Background(), "ghost", []float32{1, 0, 0, 0}, 3)
	if !errors.Is(err, docModel.ErrIndexCorrupted) {
		t.Errorf("Search on missing index = %v; want ErrIndexCorrupted wrap", err)
	}
}
