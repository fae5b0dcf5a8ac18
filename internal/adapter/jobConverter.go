package adapter

import (
	"fmt"
	"time"

	"github.com/soumk/pdfchat-api/internal/api"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/domain/jobModel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id), //pass "status/job.Id"
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status: string(job.Status),
		Ingest: ToIngestResult(job.JobPayload),
	}

	return api.JobResponse{
		Id:        job.Id,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToIngestResult(payload jobModel.JobPayload) *api.IngestResult {
	if payload.DocumentId == "" {
		return nil
	}

	return &api.IngestResult{
		DocumentId: payload.DocumentId,
		PageCount:  payload.PageCount,
		ChunkCount: payload.ChunkCount,
	}
}

func ToDocumentInfo(doc docModel.Document) api.DocumentInfo {
	return api.DocumentInfo{
		Id:         doc.ID,
		Status:     string(doc.Status),
		PageCount:  doc.PageCount,
		ChunkCount: doc.ChunkCount,
		IndexPath:  doc.IndexPath,
		CreatedAt:  doc.CreatedAt,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
