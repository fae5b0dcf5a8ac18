package jobModel

import (
	"context"
	"time"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	IngestInit       InternalStatus = "IngestInit"
	IngestExtracting InternalStatus = "Extracting"
	IngestChunking   InternalStatus = "Chunking"
	EmbeddingAPICall InternalStatus = "EmbeddingAPI"
	IndexBuild       InternalStatus = "IndexBuild"
	Error            InternalStatus = "Error"
	Complete         InternalStatus = "Complete"

	JobTypeIngest JobType = "Ingest"
)

// Job tracks one asynchronous document ingestion from upload to a ready (or
// failed) document. Chat requests are served synchronously and never become
// jobs.
type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	IngestFileName string `json:"ingest_file_name,omitempty"`
	IngestURL      string `json:"ingest_url,omitempty"`

	DocumentId string `json:"document_id,omitempty"`
	PageCount  int    `json:"page_count,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}
