package boltIndex

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

var (
	bucketVectors = []byte("vectors")
	bucketMeta    = []byte("meta")
	keyMeta       = []byte("index_meta")
)

const indexFileName = "index.db"

// Store keeps one bbolt file per document under root/<docID>/index.db.
// Search is brute-force cosine over an in-memory copy of the index, loaded
// lazily on the first query after a restart and cached per document id.
type Store struct {
	root   string
	model  string
	logger *logger_i.Logger

	mu     sync.RWMutex
	loaded map[string]*docIndex
}

type docIndex struct {
	meta    docModel.IndexMeta
	chunks  []docModel.DocChunk
	vectors [][]float32
	norms   []float32
}

type storedVector struct {
	Vector []float32 `json:"v"`
	Text   string    `json:"t"`
	Page   int       `json:"p"`
}

func NewStore(root string, model string) (*Store, error) {
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("creating index root: %w", err)
	}
	return &Store{
		root:   root,
		model:  model,
		logger: logger_i.NewLogger("BoltIndex"),
		loaded: make(map[string]*docIndex),
	}, nil
}

// docDir resolves the per-document directory, refusing any id that would
// land the path on the data root or outside it. Ids reaching this store are
// already sanitized, this guards the filesystem against everything else.
func (s *Store) docDir(docID string) (string, error) {
	if docID == "" || docID != filepath.Base(docID) || strings.Trim(docID, ".") == "" {
		return "", fmt.Errorf("unsafe document id %q", docID)
	}
	return filepath.Join(s.root, docID), nil
}

func (s *Store) indexPath(docID string) (string, error) {
	dir, err := s.docDir(docID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, indexFileName), nil
}

// IndexRef reports where the document's index is persisted.
func (s *Store) IndexRef(docID string) string {
	path, err := s.indexPath(docID)
	if err != nil {
		return ""
	}
	return path
}

func (s *Store) BuildIndex(ctx context.Context, docID string, chunks []docModel.DocChunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return docModel.ErrEmptyIndex
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	dimension := len(vectors[0])
	if dimension == 0 {
		return fmt.Errorf("empty embedding for chunk 0 of %s", docID)
	}
	for _, v := range vectors {
		if len(v) != dimension {
			return &docModel.DimensionMismatchError{Want: dimension, Got: len(v)}
		}
	}

	dir, err := s.docDir(docID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating document dir: %w", err)
	}

	pageCount := 0
	for _, c := range chunks {
		if c.Page > pageCount {
			pageCount = c.Page
		}
	}
	meta := docModel.IndexMeta{
		DocID:      docID,
		Dimension:  dimension,
		Model:      s.model,
		ChunkCount: len(chunks),
		PageCount:  pageCount,
		CreatedAt:  time.Now().UTC(),
	}

	// write to a temp file and rename so a crash mid-build never leaves a
	// half-written index behind a ready-looking path
	finalPath := filepath.Join(dir, indexFileName)
	tmpPath := finalPath + ".tmp"
	if err := writeIndexFile(tmpPath, meta, chunks, vectors); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("persisting index: %w", err)
	}

	s.mu.Lock()
	s.loaded[docID] = newDocIndex(meta, chunks, vectors)
	s.mu.Unlock()

	s.logger.Debug("Built index", "docId", docID, "chunks", len(chunks), "dimension", dimension)
	return nil
}

func writeIndexFile(path string, meta docModel.IndexMeta, chunks []docModel.DocChunk, vectors [][]float32) error {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return fmt.Errorf("opening index file: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		vb, err := tx.CreateBucketIfNotExists(bucketVectors)
		if err != nil {
			return err
		}
		mb, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}

		for i, chunk := range chunks {
			entry := storedVector{Vector: vectors[i], Text: chunk.Text, Page: chunk.Page}
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := vb.Put(positionKey(chunk.Position), data); err != nil {
				return err
			}
		}

		metaData, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return mb.Put(keyMeta, metaData)
	})
}

func positionKey(position int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(position))
	return key
}

func (s *Store) Search(ctx context.Context, docID string, vector []float32, k int) ([]docModel.ScoredChunk, error) {
	idx, err := s.getIndex(docID)
	if err != nil {
		return nil, err
	}
	if len(vector) != idx.meta.Dimension {
		return nil, &docModel.DimensionMismatchError{Want: idx.meta.Dimension, Got: len(vector)}
	}
	if k <= 0 {
		k = 1
	}

	queryNorm := norm(vector)
	results := make([]docModel.ScoredChunk, 0, len(idx.chunks))
	for i, chunk := range idx.chunks {
		results = append(results, docModel.ScoredChunk{
			Text:     chunk.Text,
			Page:     chunk.Page,
			Position: chunk.Position,
			Score:    cosine(vector, queryNorm, idx.vectors[i], idx.norms[i]),
		})
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// getIndex returns the cached in-memory index, loading it from disk on the
// first query after a restart.
func (s *Store) getIndex(docID string) (*docIndex, error) {
	s.mu.RLock()
	idx, ok := s.loaded[docID]
	s.mu.RUnlock()
	if ok {
		return idx, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok = s.loaded[docID]; ok {
		return idx, nil
	}

	idx, err := s.loadFromDisk(docID)
	if err != nil {
		return nil, err
	}
	s.loaded[docID] = idx
	return idx, nil
}

func (s *Store) loadFromDisk(docID string) (*docIndex, error) {
	path, err := s.indexPath(docID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", docModel.ErrIndexCorrupted, docID)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", docModel.ErrIndexCorrupted, err)
	}
	defer db.Close()

	var meta docModel.IndexMeta
	var chunks []docModel.DocChunk
	var vectors [][]float32

	err = db.View(func(tx *bbolt.Tx) error {
		mb := tx.Bucket(bucketMeta)
		vb := tx.Bucket(bucketVectors)
		if mb == nil || vb == nil {
			return fmt.Errorf("missing buckets")
		}
		metaData := mb.Get(keyMeta)
		if metaData == nil {
			return fmt.Errorf("missing index meta")
		}
		if err := json.Unmarshal(metaData, &meta); err != nil {
			return err
		}

		return vb.ForEach(func(key, value []byte) error {
			var entry storedVector
			if err := json.Unmarshal(value, &entry); err != nil {
				return err
			}
			position := int(binary.BigEndian.Uint64(key))
			chunks = append(chunks, docModel.DocChunk{
				DocID:    docID,
				Position: position,
				Page:     entry.Page,
				Text:     entry.Text,
			})
			vectors = append(vectors, entry.Vector)
			return nil
		})
	})
	if err != nil {
		s.logger.Error("Unreadable index", "docId", docID, "error", err)
		return nil, fmt.Errorf("%w: %v", docModel.ErrIndexCorrupted, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: index holds no vectors", docModel.ErrIndexCorrupted)
	}

	s.logger.Debug("Loaded index from disk", "docId", docID, "chunks", len(chunks))
	return newDocIndex(meta, chunks, vectors), nil
}

func (s *Store) DeleteIndex(ctx context.Context, docID string) error {
	dir, err := s.docDir(docID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.loaded, docID)
	s.mu.Unlock()

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing index dir: %w", err)
	}
	return nil
}

func (s *Store) HasIndex(ctx context.Context, docID string) (bool, error) {
	path, err := s.indexPath(docID)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Size() > 0, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.loaded = make(map[string]*docIndex)
	s.mu.Unlock()
	return nil
}

func newDocIndex(meta docModel.IndexMeta, chunks []docModel.DocChunk, vectors [][]float32) *docIndex {
	norms := make([]float32, len(vectors))
	for i, v := range vectors {
		norms[i] = norm(v)
	}
	return &docIndex{meta: meta, chunks: chunks, vectors: vectors, norms: norms}
}

func norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

func cosine(a []float32, aNorm float32, b []float32, bNorm float32) float32 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot) / (aNorm * bNorm)
}
