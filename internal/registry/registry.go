package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/rag/vectorDB"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

var bucketDocuments = []byte("documents")

// Registry owns every Document record. Metadata is durable in a small bbolt
// file so ready documents survive restarts without re-embedding, and the
// in-memory map serves reads. Writers for the same document id are
// serialized on a per-id mutex, writers for different ids proceed
// concurrently.
type Registry struct {
	db     *bbolt.DB
	store  vectorDB.Store
	logger *logger_i.Logger

	mu   sync.RWMutex
	docs map[string]docModel.Document

	lockMu    sync.Mutex
	idLocks   map[string]*sync.Mutex
	ingesting map[string]bool
}

func Open(path string, store vectorDB.Store) (*Registry, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening registry db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocuments)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating registry bucket: %w", err)
	}

	r := &Registry{
		db:        db,
		store:     store,
		logger:    logger_i.NewLogger("Registry"),
		docs:      make(map[string]docModel.Document),
		idLocks:   make(map[string]*sync.Mutex),
		ingesting: make(map[string]bool),
	}

	if err := r.load(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Registry) load() error {
	return r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).ForEach(func(k, v []byte) error {
			var doc docModel.Document
			if err := json.Unmarshal(v, &doc); err != nil {
				r.logger.Error("Skipping unreadable registry entry", "id", string(k), "error", err)
				return nil
			}
			r.docs[doc.ID] = doc
			return nil
		})
	})
}

func (r *Registry) lockFor(id string) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	l, ok := r.idLocks[id]
	if !ok {
		l = &sync.Mutex{}
		r.idLocks[id] = l
	}
	return l
}

func (r *Registry) persist(doc docModel.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Put([]byte(doc.ID), data)
	})
}

// BeginIngest claims exclusive ingestion rights for the id. A second caller
// while an ingest is in flight gets ErrIngestionInProgress, a ready document
// gets ErrDuplicateDocument, and a failed one may be overwritten.
func (r *Registry) BeginIngest(id string) error {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ingesting[id] {
		return docModel.ErrIngestionInProgress
	}
	if doc, ok := r.docs[id]; ok {
		switch doc.Status {
		case docModel.StatusReady:
			return docModel.ErrDuplicateDocument
		case docModel.StatusProcessing:
			return docModel.ErrIngestionInProgress
		}
	}
	r.ingesting[id] = true
	return nil
}

func (r *Registry) EndIngest(id string) {
	r.mu.Lock()
	delete(r.ingesting, id)
	r.mu.Unlock()
}

func (r *Registry) Register(ctx context.Context, doc docModel.Document) error {
	l := r.lockFor(doc.ID)
	l.Lock()
	defer l.Unlock()

	if err := r.persist(doc); err != nil {
		return fmt.Errorf("persisting document %s: %w", doc.ID, err)
	}
	r.mu.Lock()
	r.docs[doc.ID] = doc
	r.mu.Unlock()
	return nil
}

func (r *Registry) UpdateStatus(ctx context.Context, id string, status docModel.DocStatus, meta docModel.IndexMeta) error {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()

	r.mu.RLock()
	doc, ok := r.docs[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("update for unknown document %s", id)
	}

	doc.Status = status
	if meta.ChunkCount > 0 {
		doc.ChunkCount = meta.ChunkCount
	}
	if meta.PageCount > 0 {
		doc.PageCount = meta.PageCount
	}
	if status == docModel.StatusReady {
		doc.IndexPath = r.store.IndexRef(id)
	} else {
		doc.IndexPath = ""
	}

	if err := r.persist(doc); err != nil {
		return fmt.Errorf("persisting status of %s: %w", id, err)
	}
	r.mu.Lock()
	r.docs[id] = doc
	r.mu.Unlock()
	return nil
}

func (r *Registry) Get(id string) (docModel.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	return doc, ok
}

// List returns ids of observable documents in lexical order. Failed
// documents are excluded, processing ones are listed so clients can see an
// upload the moment ingestion starts.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.docs))
	for id, doc := range r.docs {
		if doc.Status == docModel.StatusReady || doc.Status == docModel.StatusProcessing {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) ReadyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, doc := range r.docs {
		if doc.Status == docModel.StatusReady {
			n++
		}
	}
	return n
}

// Delete removes the registry entry and the backing index files. Deleting an
// absent id is a no-op, the bool reports whether anything was there. The
// record is tombstoned as deleted before the index goes, so a crash
// mid-delete leaves a marker Recover can finish from.
func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()

	r.mu.RLock()
	doc, existed := r.docs[id]
	r.mu.RUnlock()

	if existed && doc.Status != docModel.StatusDeleted {
		doc.Status = docModel.StatusDeleted
		doc.IndexPath = ""
		if err := r.persist(doc); err != nil {
			return existed, fmt.Errorf("tombstoning %s: %w", id, err)
		}
		r.mu.Lock()
		r.docs[id] = doc
		r.mu.Unlock()
	}

	if err := r.store.DeleteIndex(ctx, id); err != nil {
		return existed, fmt.Errorf("deleting index of %s: %w", id, err)
	}

	err := r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Delete([]byte(id))
	})
	if err != nil {
		return existed, fmt.Errorf("deleting registry entry %s: %w", id, err)
	}

	r.mu.Lock()
	delete(r.docs, id)
	r.mu.Unlock()

	return existed, nil
}

// DeleteAll clears every document and index, returning how many documents
// were removed.
func (r *Registry) DeleteAll(ctx context.Context) (int, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	deleted := 0
	for _, id := range ids {
		existed, err := r.Delete(ctx, id)
		if err != nil {
			return deleted, err
		}
		if existed {
			deleted++
		}
	}
	return deleted, nil
}

// Recover reconciles registry state with the persisted indices after a
// restart. Documents stuck in processing (a crash mid-ingest) and ready
// documents whose index vanished are demoted to failed so re-ingestion is
// safe and idempotent.
func (r *Registry) Recover(ctx context.Context) error {
	r.mu.RLock()
	snapshot := make([]docModel.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		snapshot = append(snapshot, doc)
	}
	r.mu.RUnlock()

	for _, doc := range snapshot {
		switch doc.Status {
		case docModel.StatusProcessing:
			r.logger.Warn("Demoting document stuck in processing", "id", doc.ID)
			if err := r.store.DeleteIndex(ctx, doc.ID); err != nil {
				r.logger.Error("Could not remove partial index", "id", doc.ID, "error", err)
			}
			if err := r.UpdateStatus(ctx, doc.ID, docModel.StatusFailed, docModel.IndexMeta{}); err != nil {
				return err
			}
		case docModel.StatusReady:
			has, err := r.store.HasIndex(ctx, doc.ID)
			if err != nil {
				return err
			}
			if !has {
				r.logger.Warn("Ready document lost its index, demoting", "id", doc.ID)
				if err := r.UpdateStatus(ctx, doc.ID, docModel.StatusFailed, docModel.IndexMeta{}); err != nil {
					return err
				}
			}
		case docModel.StatusDeleted:
			r.logger.Warn("Completing interrupted delete", "id", doc.ID)
			if _, err := r.Delete(ctx, doc.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}
