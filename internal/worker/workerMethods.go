package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/soumk/pdfchat-api/internal/config"
	jobmodel "github.com/soumk/pdfchat-api/internal/domain/jobModel"
	"github.com/soumk/pdfchat-api/internal/metrics"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		// Record total time at the end
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, config.IngestJobTimeout)
	defer cancel()
	logger.Debug("Processing job:", "job Id:", job.Id, config.TRACE_ID_KEY, job.TraceId)

	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	if job.JobType == jobmodel.JobTypeIngest {
		job.CurrentStep = jobmodel.IngestInit
		job = _ragService.IngestDocument(ctx, job)
	} else {
		logger.Error("Unknown job type", "jobType", job.JobType, "jobId", job.Id)
		job.Status = jobmodel.JobStatusError
		job.Error.Message = "unknown job type"
	}

	job.EndTime = time.Now()
	saveJobState(ctx, job, job.Status)
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker ", "reason", reason, "workerCount", currentWorkerCount)
	metrics.DecrementActiveWorkerCount()
}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update job status", "err", err)
	}
}
