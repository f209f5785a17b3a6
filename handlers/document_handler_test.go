package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CompraLens/compralens-backend/middleware"
	"github.com/CompraLens/compralens-backend/services"
	"github.com/CompraLens/compralens-backend/store"
	"github.com/CompraLens/compralens-backend/types"
)

// stubOCR returns canned text per filename so handler tests exercise the
// real extraction pipeline without Textract.
type stubOCR struct {
	texts map[string]string
}

func (s *stubOCR) Process(ctx context.Context, filename string, data []byte) types.ProcessedDocument {
	text, ok := s.texts[filename]
	if !ok {
		return types.ProcessedDocument{
			Filename:        filename,
			Pages:           1,
			ProcessingError: "Error procesando archivo: unreadable",
		}
	}
	doc := types.ProcessedDocument{Filename: filename, Text: text, Pages: 1}
	doc.ComputeMetrics()
	return doc
}

var _ services.OCRProcessor = (*stubOCR)(nil)

func setupDocumentRouter(ocr services.OCRProcessor, maxUploadMB, maxFiles int) (*gin.Engine, store.RunStore) {
	gin.SetMode(gin.TestMode)
	runs := store.NewMemoryRunStore()
	processor := services.NewProcessingService(
		ocr,
		nil,
		services.NewDocumentClassifier(nil),
		services.NewProviderExtractor(nil, services.NewProductCategorizer()),
		services.NewAggregationService(),
		runs,
	)
	h := NewDocumentHandler(processor, runs, maxUploadMB, maxFiles)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.POST("/v1/documents/process", h.ProcessDocumentsHandler)
	r.GET("/v1/runs/:id", h.GetRunHandler)
	r.GET("/v1/runs/:id/analysis", h.GetRunAnalysisHandler)
	r.DELETE("/v1/runs/:id", h.DeleteRunHandler)
	return r, runs
}

// minimal but sniffable PDF payload
func pdfBytes() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
}

func buildUploadBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func postUpload(t *testing.T, r *gin.Engine, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := buildUploadBody(t, files)
	req, _ := http.NewRequest(http.MethodPost, "/v1/documents/process", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProcessDocumentsHandlerSuccess(t *testing.T) {
	ocr := &stubOCR{texts: map[string]string{
		"factura.pdf": "FACTURA ELECTRONICA F001-123\nPROVEEDOR: Distribuidora Alfa SAC\nRUC: 20111111111\nIMPORTE TOTAL: 150.00\n",
	}}
	r, runs := setupDocumentRouter(ocr, 25, 10)

	w := postUpload(t, r, map[string][]byte{"factura.pdf": pdfBytes()})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp runResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "factura.pdf", resp.Documents[0].Filename)
	require.NotNil(t, resp.Documents[0].Provider)
	assert.Equal(t, "Distribuidora Alfa SAC", resp.Documents[0].Provider.Name)
	require.NotNil(t, resp.Analysis)
	assert.Equal(t, 1, resp.Analysis.TotalProviders)

	// The run is retrievable afterwards.
	_, ok := runs.Get(resp.RunID)
	assert.True(t, ok)
}

func TestProcessDocumentsHandlerNoFiles(t *testing.T) {
	r, _ := setupDocumentRouter(&stubOCR{}, 25, 10)

	w := postUpload(t, r, map[string][]byte{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessDocumentsHandlerTooManyFiles(t *testing.T) {
	ocr := &stubOCR{texts: map[string]string{}}
	r, _ := setupDocumentRouter(ocr, 25, 1)

	w := postUpload(t, r, map[string][]byte{
		"a.pdf": pdfBytes(),
		"b.pdf": pdfBytes(),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessDocumentsHandlerUnsupportedType(t *testing.T) {
	r, _ := setupDocumentRouter(&stubOCR{}, 25, 10)

	w := postUpload(t, r, map[string][]byte{"notas.txt": []byte("plain text, not a document scan")})

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestProcessDocumentsHandlerFileTooLarge(t *testing.T) {
	r, _ := setupDocumentRouter(&stubOCR{}, 1, 10)

	big := append(pdfBytes(), make([]byte, 2*1024*1024)...)
	w := postUpload(t, r, map[string][]byte{"grande.pdf": big})

	// Either the size check or the body cap rejects it, never a 200.
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestGetRunHandler(t *testing.T) {
	r, runs := setupDocumentRouter(&stubOCR{}, 25, 10)
	runs.Save(&store.Run{
		ID:        "run-1",
		Documents: []types.ProcessedDocument{{Filename: "boleta.pdf"}},
		Analysis:  &types.BatchAnalysis{TotalProviders: 1},
	})

	req, _ := http.NewRequest(http.MethodGet, "/v1/runs/run-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp runResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	require.Len(t, resp.Documents, 1)

	req, _ = http.NewRequest(http.MethodGet, "/v1/runs/missing", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRunAnalysisHandler(t *testing.T) {
	r, runs := setupDocumentRouter(&stubOCR{}, 25, 10)
	runs.Save(&store.Run{ID: "run-1", Analysis: &types.BatchAnalysis{TotalProviders: 3}})

	req, _ := http.NewRequest(http.MethodGet, "/v1/runs/run-1/analysis", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var analysis types.BatchAnalysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	assert.Equal(t, 3, analysis.TotalProviders)
}

func TestDeleteRunHandler(t *testing.T) {
	r, runs := setupDocumentRouter(&stubOCR{}, 25, 10)
	runs.Save(&store.Run{ID: "run-1"})

	req, _ := http.NewRequest(http.MethodDelete, "/v1/runs/run-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, ok := runs.Get("run-1")
	assert.False(t, ok)

	req, _ = http.NewRequest(http.MethodDelete, "/v1/runs/run-1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
