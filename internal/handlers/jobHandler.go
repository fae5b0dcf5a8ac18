package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/jobModel"
	"github.com/soumk/pdfchat-api/internal/job"
	"github.com/soumk/pdfchat-api/internal/metrics"
	"github.com/soumk/pdfchat-api/internal/rag"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service    *job.Service
	ragService rag.Service
}

func InitJobHandler(jobService *job.Service, ragService rag.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, ragService: ragService}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})
}

func CreateNewJob(newJob newJobData) {
	logJH.Info("To create new job", config.TRACE_ID_KEY, newJob.traceId, "job id", newJob.id)
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued
	_job.CurrentStep = jobModel.IngestInit
	_job.JobType = jobModel.JobTypeIngest
	_job.JobPayload.IngestFileName = newJob.documentName
	_job.JobPayload.IngestURL = newJob.documentSource

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new job")

	//ingestion involves batch processing which might take time - external system call
	//worker will be removed if it has idle time - so it should be ok
	//this also allows us to only keep 1 worker running at most times therefore cutting resource spend

	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1) //after sending a request increment counter
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeIngest {
		metrics.StartDispatcherSignalCount() //metrics
		logJH.Debug("Worker count ", "requests", accurateCount)
		h.service.DispatcherChannel <- true
	}
}
