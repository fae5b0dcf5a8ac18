package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/domain/jobModel"
	"github.com/soumk/pdfchat-api/internal/rag/chunker"
	"github.com/soumk/pdfchat-api/internal/rag/embedding"
	"github.com/soumk/pdfchat-api/internal/rag/vectorDB"
	"github.com/soumk/pdfchat-api/internal/registry"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

var logger *logger_i.Logger

// Pipeline turns one uploaded PDF into a ready document: extract, chunk,
// embed, index. Exactly one pipeline run per document id is in flight at a
// time, the registry enforces that.
type Pipeline struct {
	registry *registry.Registry
	embedder embedding.Embedder
	store    vectorDB.Store
	splitter *chunker.Splitter
}

func NewPipeline(reg *registry.Registry, e embedding.Embedder, store vectorDB.Store, cfg config.RAGConfig) *Pipeline {
	if logger == nil {
		logger = logger_i.NewLogger("Document Ingestion")
	}
	return &Pipeline{
		registry: reg,
		embedder: e,
		store:    store,
		splitter: chunker.NewSplitter(cfg.ChunkSize, cfg.Overlap),
	}
}

// DocIDFromFilename derives the stable document id from an uploaded
// filename: the extension is stripped and characters unsafe for a directory
// name are replaced. Re-uploading the same filename targets the same id.
// Names that leave nothing but dots behind (".pdf", "...pdf") are rejected,
// an id of "." or ".." would resolve the per-document path onto the data
// root or its parent.
func DocIDFromFilename(filename string) (string, error) {
	base := filepath.Base(filename)
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".pdf") {
		base = base[:len(base)-len(ext)]
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	id := b.String()
	if strings.Trim(id, ".") == "" {
		return "", docModel.ErrInvalidDocumentID
	}
	return id, nil
}

// Run executes the full ingestion for the job and returns it with terminal
// status filled in. The uploaded file is removed on success, a partial index
// never survives a failure.
func (p *Pipeline) Run(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := logger.With(config.TRACE_ID_KEY, job.TraceId)

	docName := job.JobPayload.IngestFileName
	docPath := job.JobPayload.IngestURL
	docID, err := DocIDFromFilename(docName)
	if err != nil {
		log.Error("Rejected document name", "filename", docName, "error", err)
		return failJob(job, err.Error())
	}
	job.JobPayload.DocumentId = docID

	log.Debug("Processing document", "filename", docName, "path", docPath, "docId", docID)

	if err := p.registry.BeginIngest(docID); err != nil {
		log.Error("Ingestion rejected", "docId", docID, "error", err)
		return failJob(job, err.Error())
	}
	defer p.registry.EndIngest(docID)

	if err := p.registry.Register(ctx, docModel.Document{
		ID:        docID,
		Status:    docModel.StatusProcessing,
		CreatedAt: time.Now(),
	}); err != nil {
		log.Error("Error registering document", "error", err)
		return failJob(job, "Error registering document")
	}

	job.CurrentStep = jobModel.IngestExtracting
	pages, err := p.extract(docPath)
	if err != nil {
		log.Error("Error extracting document content", "error", err)
		return p.failDocument(ctx, job, docID, err.Error())
	}

	job.CurrentStep = jobModel.IngestChunking
	chunks, err := p.chunkPages(docID, pages)
	if err != nil {
		log.Error("Error chunking document", "error", err)
		return p.failDocument(ctx, job, docID, err.Error())
	}
	log.Debug("Processing document", "pages", len(pages), "chunks", len(chunks))

	job.CurrentStep = jobModel.EmbeddingAPICall
	vectors, err := p.embedChunks(ctx, chunks)
	if err != nil {
		log.Error("Error embedding chunks", "error", err)
		return p.failDocument(ctx, job, docID, "Error embedding document content")
	}

	job.CurrentStep = jobModel.IndexBuild
	if err := p.store.BuildIndex(ctx, docID, chunks, vectors); err != nil {
		log.Error("Error building index", "error", err)
		return p.failDocument(ctx, job, docID, "Error building document index")
	}

	meta := docModel.IndexMeta{ChunkCount: len(chunks), PageCount: len(pages)}
	if err := p.registry.UpdateStatus(ctx, docID, docModel.StatusReady, meta); err != nil {
		log.Error("Error marking document ready", "error", err)
		return p.failDocument(ctx, job, docID, "Error finalizing document")
	}

	if err := os.Remove(docPath); err != nil {
		log.Error("Error removing uploaded file", "error", err)
	}

	job.JobPayload.PageCount = len(pages)
	job.JobPayload.ChunkCount = len(chunks)
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func (p *Pipeline) extract(docPath string) ([]rawPage, error) {
	info, err := os.Stat(docPath)
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, docModel.ErrEmptyDocument
	}

	pages, err := extractPDF(docPath)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, docModel.ErrNoExtractableText
	}
	return pages, nil
}

func (p *Pipeline) chunkPages(docID string, pages []rawPage) ([]docModel.DocChunk, error) {
	var chunks []docModel.DocChunk
	position := 0
	for _, page := range pages {
		pieces, err := p.splitter.Split(page.Content)
		if err != nil {
			if errors.Is(err, docModel.ErrEmptyDocument) {
				// a blank page is fine, the document as a whole must not be
				continue
			}
			return nil, err
		}
		for _, piece := range pieces {
			chunks = append(chunks, docModel.DocChunk{
				DocID:    docID,
				Position: position,
				Page:     page.Number,
				Text:     piece,
			})
			position++
		}
	}
	if len(chunks) == 0 {
		return nil, docModel.ErrNoExtractableText
	}
	return chunks, nil
}

func (p *Pipeline) embedChunks(ctx context.Context, chunks []docModel.DocChunk) ([][]float32, error) {
	isHuge := len(chunks) > config.HugeDataSetThreshold
	vectors := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += config.EmbeddingBatchSize {
		end := min(start+config.EmbeddingBatchSize, len(chunks))

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		batch, err := p.embedder.BatchEmbedding(ctx, texts, isHuge)
		if err != nil {
			return nil, err
		}
		if len(batch) != len(texts) {
			return nil, &docModel.EmbeddingServiceError{
				Provider: "batch",
				Err:      errors.New("embedding count does not match chunk count"),
			}
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// failDocument marks the registry entry failed and removes any partial
// index before reporting the job error.
func (p *Pipeline) failDocument(ctx context.Context, job jobModel.Job, docID string, message string) jobModel.Job {
	if err := p.store.DeleteIndex(ctx, docID); err != nil {
		logger.Error("Error cleaning partial index", "docId", docID, "error", err)
	}
	if err := p.registry.UpdateStatus(ctx, docID, docModel.StatusFailed, docModel.IndexMeta{}); err != nil {
		logger.Error("Error marking document failed", "docId", docID, "error", err)
	}
	return failJob(job, message)
}

func failJob(job jobModel.Job, message string) jobModel.Job {
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	job.Error.Message = message
	return job
}
