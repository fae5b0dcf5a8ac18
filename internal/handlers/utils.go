package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/soumk/pdfchat-api/internal/adapter"
	"github.com/soumk/pdfchat-api/internal/api"
	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/domain/jobModel"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

func validateId(id string, traceId string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.Warn("context error", "error", ctx.Err())
		return false
	}

	select {
	case <-ctx.Done():
		logRH.Warn("context cancelled")
		return false
	default:
		return true
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

func writeAskError(w http.ResponseWriter, err error) {
	writeJsonResponse(w, askErrorStatus(err), api.ErrorResponse{Error: err.Error()})
}

// askErrorStatus maps the error taxonomy to HTTP codes. Input problems are
// the caller's fault, provider and index problems are ours.
func askErrorStatus(err error) int {
	var embErr *docModel.EmbeddingServiceError
	var genErr *docModel.AnswerGenerationError
	var dimErr *docModel.DimensionMismatchError

	switch {
	case errors.Is(err, docModel.ErrDocumentNotReady):
		return http.StatusNotFound
	case errors.Is(err, docModel.ErrDuplicateDocument),
		errors.Is(err, docModel.ErrIngestionInProgress):
		return http.StatusConflict
	case errors.Is(err, docModel.ErrNotPDF),
		errors.Is(err, docModel.ErrEmptyDocument),
		errors.Is(err, docModel.ErrNoExtractableText),
		errors.Is(err, docModel.ErrInvalidDocumentID):
		return http.StatusBadRequest
	case errors.As(err, &embErr), errors.As(err, &genErr):
		return http.StatusBadGateway
	case errors.Is(err, docModel.ErrIndexCorrupted), errors.As(err, &dimErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func getTargetDirectory() (string, string) {
	root, err := os.Getwd()
	if err != nil {
		return "", "Storage Error"
	}

	targetDir := filepath.Join(root, config.UploadDir)
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", "Storage Error"
	}
	return targetDir, ""
}
