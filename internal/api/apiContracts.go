package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type IngestResult struct {
	DocumentId string `json:"document_id,omitempty"`
	PageCount  int    `json:"page_count,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty"`
}

type Result struct {
	Status string        `json:"status"`
	Ingest *IngestResult `json:"ingest,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type ChatResponse struct {
	DocumentId string   `json:"document_id"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources,omitempty"`
}

type DocumentInfo struct {
	Id         string    `json:"id" example:"user-manual"`
	Status     string    `json:"status" example:"ready"`
	PageCount  int       `json:"page_count,omitempty"`
	ChunkCount int       `json:"chunk_count,omitempty"`
	IndexPath  string    `json:"index_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type DocumentsResponse struct {
	Documents []string `json:"documents"`
}

type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	Id      string `json:"id"`
}

type ClearAllResponse struct {
	Deleted int `json:"deleted"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"document not found"`
}

// requests---------------------

type ChatRequest struct {
	DocumentId string `json:"document_id" validate:"required"`
	Question   string `json:"question" validate:"required"`
}

type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}
