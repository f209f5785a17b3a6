package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/CompraLens/compralens-backend/errors"
	"github.com/CompraLens/compralens-backend/services"
	"github.com/CompraLens/compralens-backend/store"
	"github.com/CompraLens/compralens-backend/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// Allowed MIME types for uploaded documents. Matches what Textract accepts.
var allowedDocumentMimes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/tiff":      true,
}

// DocumentHandler exposes the batch processing pipeline over HTTP.
type DocumentHandler struct {
	processor *services.ProcessingService
	runs      store.RunStore
	maxBytes  int64
	maxFiles  int
}

func NewDocumentHandler(processor *services.ProcessingService, runs store.RunStore, maxUploadMB, maxFiles int) *DocumentHandler {
	return &DocumentHandler{
		processor: processor,
		runs:      runs,
		maxBytes:  int64(maxUploadMB) * 1024 * 1024,
		maxFiles:  maxFiles,
	}
}

// runResponse is the JSON shape of a processing run.
type runResponse struct {
	RunID     string                    `json:"runId"`
	CreatedAt time.Time                 `json:"createdAt"`
	Documents []types.ProcessedDocument `json:"documents"`
	Analysis  *types.BatchAnalysis      `json:"analysis"`
}

func newRunResponse(run *store.Run) runResponse {
	return runResponse{
		RunID:     run.ID,
		CreatedAt: run.CreatedAt,
		Documents: run.Documents,
		Analysis:  run.Analysis,
	}
}

// ProcessDocumentsHandler handles batch uploads.
// POST /v1/documents/process
// Accepts multipart with one or more "files" fields. Returns the full run.
func (h *DocumentHandler) ProcessDocumentsHandler(c *gin.Context) {
	// Enforce max body size across the whole batch
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes*int64(h.maxFiles)+1024*1024)

	form, err := c.MultipartForm()
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("Failed to parse multipart form", err.Error()))
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		_ = c.Error(apperrors.ValidationFailed("No files provided", "at least one 'files' field is required"))
		return
	}
	if len(fileHeaders) > h.maxFiles {
		_ = c.Error(apperrors.ValidationFailed("Too many files",
			fmt.Sprintf("a batch accepts at most %d files", h.maxFiles)))
		return
	}

	inputs := make([]services.DocumentInput, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		if fh.Size > h.maxBytes {
			_ = c.Error(apperrors.ValidationFailed("File too large",
				fmt.Sprintf("%s exceeds the %d byte limit", fh.Filename, h.maxBytes)))
			return
		}

		file, err := fh.Open()
		if err != nil {
			_ = c.Error(apperrors.ValidationFailed("Invalid file", "failed to open uploaded file"))
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			_ = c.Error(fmt.Errorf("failed to read %s: %w", fh.Filename, err))
			return
		}

		// Server-side MIME detection, the client's Content-Type is not trusted
		detected := mimetype.Detect(data).String()
		if !allowedDocumentMimes[detected] {
			_ = c.Error(apperrors.UnsupportedFile(fh.Filename, detected))
			return
		}

		inputs = append(inputs, services.DocumentInput{Filename: fh.Filename, Data: data})
	}

	run, err := h.processor.ProcessBatch(c.Request.Context(), inputs)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, newRunResponse(run))
}

// GetRunHandler returns a previously processed run.
// GET /v1/runs/:id
func (h *DocumentHandler) GetRunHandler(c *gin.Context) {
	run, ok := h.runs.Get(c.Param("id"))
	if !ok {
		_ = c.Error(apperrors.NotFound("Run", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, newRunResponse(run))
}

// GetRunAnalysisHandler returns only the cross-document analysis of a run.
// GET /v1/runs/:id/analysis
func (h *DocumentHandler) GetRunAnalysisHandler(c *gin.Context) {
	run, ok := h.runs.Get(c.Param("id"))
	if !ok {
		_ = c.Error(apperrors.NotFound("Run", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, run.Analysis)
}

// DeleteRunHandler discards a run and its stored documents.
// DELETE /v1/runs/:id
func (h *DocumentHandler) DeleteRunHandler(c *gin.Context) {
	if _, ok := h.runs.Get(c.Param("id")); !ok {
		_ = c.Error(apperrors.NotFound("Run", c.Param("id")))
		return
	}
	h.runs.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}
