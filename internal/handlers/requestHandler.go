package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soumk/pdfchat-api/internal/adapter"
	"github.com/soumk/pdfchat-api/internal/adapter/utils"
	"github.com/soumk/pdfchat-api/internal/api"
	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/domain/docModel"
	"github.com/soumk/pdfchat-api/internal/rag/ingest"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

var logRH *logger_i.Logger

type newJobData struct {
	id             string
	traceId        string
	documentName   string
	documentSource string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// PostUploadHandler godoc
// @Summary      Upload a PDF for ingestion
// @Description  Receives a PDF via multipart/form-data, saves it to the upload directory, and queues an ingestion job. The document id is the filename without its extension.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        document  formData  file  true  "The PDF file to upload"
// @Success      202  {object}  api.InitJobResponse  "Accepted - track the job via status_url"
// @Failure      400  {object}  api.JobResponse      "Not a PDF, missing file, or file too large"
// @Failure      500  {object}  api.JobResponse      "Storage or write error"
// @Router       /upload [post]
func PostUploadHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		targetDir, errString := getTargetDirectory()
		if errString != "" {
			logRH.Error("Couldn't get target directory :", "err", errString)
			WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
			return
		}

		const maxUploadSize = 32 << 20 //32mb
		err := r.ParseMultipartForm(maxUploadSize)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
			return
		}

		fileReader, fileMetadata, err := r.FormFile("document")
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
			return
		}
		defer fileReader.Close()

		if !strings.EqualFold(filepath.Ext(fileMetadata.Filename), ".pdf") {
			logRH.Warn("Rejected non-PDF upload", "filename", fileMetadata.Filename)
			WriteErrorResponse(w, http.StatusBadRequest, fileMetadata.Filename, docModel.ErrNotPDF.Error())
			return
		}

		if _, err := ingest.DocIDFromFilename(fileMetadata.Filename); err != nil {
			logRH.Warn("Rejected upload with unusable name", "filename", fileMetadata.Filename)
			WriteErrorResponse(w, http.StatusBadRequest, fileMetadata.Filename, err.Error())
			return
		}

		filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
		tempFilePath := filepath.Join(targetDir, filename)
		destinationFileWriter, err := os.Create(tempFilePath)
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, fileMetadata.Filename, "Storage error")
			return
		}
		defer destinationFileWriter.Close()

		if _, err := io.Copy(destinationFileWriter, fileReader); err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, fileMetadata.Filename, "Write error")
			return
		}

		newJob := newJobData{
			id:             utils.GetNewUUID(),
			traceId:        r.Context().Value(config.TRACE_ID_KEY).(string),
			documentName:   fileMetadata.Filename,
			documentSource: tempFilePath,
		}
		CreateNewJob(newJob)
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
		return
	}
	logRH.Warn("Invalid Context by request ", "remote", r.RemoteAddr)
}

// GetStatusHandler godoc
// @Summary      Get ingestion job status
// @Description  Retrieves the current status of a specific ingestion job using its ID.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse  "The current status of the job"
// @Failure      404  {object}  api.JobResponse  "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		idString := utils.GetChiURLParam(r, "id")
		result, isFound := validateId(idString, r.Context().Value(config.TRACE_ID_KEY).(string))

		logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
		if !isFound {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
	}
}

// ChatHandler godoc
// @Summary      Ask a question against a document
// @Description  Retrieves the most relevant chunks of the document and synthesizes a grounded answer. Answered synchronously.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest  true  "Document id and question"
// @Success      200      {object}  api.ChatResponse
// @Failure      400      {object}  api.ErrorResponse  "Missing document_id or question"
// @Failure      404      {object}  api.ErrorResponse  "Document not found or not ready"
// @Failure      502      {object}  api.ErrorResponse  "Embedding or LLM provider failure"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	if validateContext(request.Context()) {

		var requestData api.ChatRequest
		defer func(Body io.ReadCloser) {
			if err := Body.Close(); err != nil {
				logRH.Error("Couldn't close the Chat handler reader :", "error", err)
			}
		}(request.Body)

		if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil ||
			requestData.DocumentId == "" || strings.TrimSpace(requestData.Question) == "" {
			logRH.Warn("Bad Chat Request: ", "error:", err, "request data:", requestData)
			writeJsonResponse(w, http.StatusBadRequest, api.ErrorResponse{Error: "document_id and question are required"})
			return
		}

		answer, sources, err := handlerInstance.ragService.Ask(request.Context(), requestData.DocumentId, requestData.Question)
		if err != nil {
			logRH.Warn("Ask failed", "docId", requestData.DocumentId, "error", err)
			writeAskError(w, err)
			return
		}

		writeJsonResponse(w, http.StatusOK, api.ChatResponse{
			DocumentId: requestData.DocumentId,
			Question:   requestData.Question,
			Answer:     answer,
			Sources:    sources,
		})
		return
	}
	logRH.Warn("Invalid Context by request ", "remote", request.RemoteAddr)
}

// ListDocumentsHandler godoc
// @Summary      List documents
// @Description  Returns the ids of all documents that are ready or still processing.
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.DocumentsResponse
// @Router       /documents [get]
func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		docs := handlerInstance.ragService.ListDocuments(r.Context())
		if docs == nil {
			docs = []string{}
		}
		writeJsonResponse(w, http.StatusOK, api.DocumentsResponse{Documents: docs})
	}
}

// GetDocumentHandler godoc
// @Summary      Get document details
// @Description  Returns the registry record of a single document, including its status and where its index is persisted.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentInfo
// @Failure      404  {object}  api.ErrorResponse  "Unknown document id"
// @Router       /documents/{id} [get]
func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		id := utils.GetChiURLParam(r, "id")
		doc, found := handlerInstance.ragService.GetDocument(id)
		if !found {
			writeJsonResponse(w, http.StatusNotFound, api.ErrorResponse{Error: "document not found"})
			return
		}
		writeJsonResponse(w, http.StatusOK, adapter.ToDocumentInfo(doc))
	}
}

// DeleteDocumentHandler godoc
// @Summary      Delete a document
// @Description  Removes the document's registry entry and its index. Deleting an unknown id returns deleted=false.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DeleteResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /documents/{id} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		id := utils.GetChiURLParam(r, "id")
		existed, err := handlerInstance.ragService.DeleteDocument(r.Context(), id)
		if err != nil {
			logRH.Error("Delete document failed", "docId", id, "error", err)
			writeJsonResponse(w, http.StatusInternalServerError, api.ErrorResponse{Error: "could not delete document"})
			return
		}
		writeJsonResponse(w, http.StatusOK, api.DeleteResponse{Deleted: existed, Id: id})
	}
}

// ClearAllHandler godoc
// @Summary      Delete all documents
// @Description  Removes every document and index. Returns how many documents were deleted.
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.ClearAllResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /documents [delete]
func ClearAllHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		n, err := handlerInstance.ragService.DeleteAllDocuments(r.Context())
		if err != nil {
			logRH.Error("Clear all failed", "error", err)
			writeJsonResponse(w, http.StatusInternalServerError, api.ErrorResponse{Error: "could not delete all documents"})
			return
		}
		writeJsonResponse(w, http.StatusOK, api.ClearAllResponse{Deleted: n})
	}
}
