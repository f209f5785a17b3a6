package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CompraLens/compralens-backend/middleware"
	"github.com/CompraLens/compralens-backend/services"
	"github.com/CompraLens/compralens-backend/store"
	"github.com/CompraLens/compralens-backend/types"
)

// stubAgent records the last invocation and returns a canned answer.
type stubAgent struct {
	answer      string
	calls       int
	lastSession string
	lastPrompt  string
}

func (s *stubAgent) Ask(ctx context.Context, sessionID, prompt string) string {
	s.calls++
	s.lastSession = sessionID
	s.lastPrompt = prompt
	return s.answer
}

var _ services.ConversationalAgent = (*stubAgent)(nil)

func setupChatRouter(agent services.ConversationalAgent, runs store.RunStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	h := NewChatHandler(agent, services.NewPromptComposer(), runs)
	r.POST("/v1/chat", h.AskHandler)
	r.GET("/v1/runs/:id/suggestions", h.SuggestionsHandler)
	return r
}

func analyzedRun(id string) *store.Run {
	total := 120.0
	return &store.Run{
		ID: id,
		Documents: []types.ProcessedDocument{
			{Filename: "factura.pdf", Text: "FACTURA"},
		},
		Analysis: &types.BatchAnalysis{
			TotalProviders: 2,
			Providers: []types.ProviderRecord{
				{Name: "Proveedor Alfa SAC", Total: types.Amount{Value: &total}},
				{Name: "Proveedor Beta SAC"},
			},
		},
	}
}

func postChat(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAskHandlerSuccess(t *testing.T) {
	runs := store.NewMemoryRunStore()
	runs.Save(analyzedRun("run-1"))
	agent := &stubAgent{answer: "El mejor proveedor es Alfa."}
	r := setupChatRouter(agent, runs)

	w := postChat(t, r, types.ChatRequest{
		RunID:     "run-1",
		Query:     "¿Quién tiene mejores precios?",
		SessionID: "session-abc",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp types.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "session-abc", resp.SessionID)
	assert.Equal(t, "El mejor proveedor es Alfa.", resp.Answer)

	assert.Equal(t, 1, agent.calls)
	assert.Equal(t, "session-abc", agent.lastSession)
	assert.Contains(t, agent.lastPrompt, "¿Quién tiene mejores precios?")
	assert.Contains(t, agent.lastPrompt, "Proveedor Alfa SAC")
}

func TestAskHandlerAssignsSessionID(t *testing.T) {
	runs := store.NewMemoryRunStore()
	runs.Save(analyzedRun("run-1"))
	agent := &stubAgent{answer: "ok"}
	r := setupChatRouter(agent, runs)

	w := postChat(t, r, types.ChatRequest{RunID: "run-1", Query: "hola"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp types.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, resp.SessionID, agent.lastSession)
}

func TestAskHandlerRunNotFound(t *testing.T) {
	agent := &stubAgent{answer: "ok"}
	r := setupChatRouter(agent, store.NewMemoryRunStore())

	w := postChat(t, r, types.ChatRequest{RunID: "missing", Query: "hola"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, agent.calls)
}

func TestAskHandlerInvalidBody(t *testing.T) {
	agent := &stubAgent{answer: "ok"}
	r := setupChatRouter(agent, store.NewMemoryRunStore())

	req, _ := http.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"runId": "run-1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, agent.calls)
}

func TestAskHandlerFallbackWithoutAnalysis(t *testing.T) {
	runs := store.NewMemoryRunStore()
	runs.Save(&store.Run{ID: "run-1", Analysis: &types.BatchAnalysis{TotalProviders: 0}})
	agent := &stubAgent{answer: "should not be used"}
	r := setupChatRouter(agent, runs)

	w := postChat(t, r, types.ChatRequest{RunID: "run-1", Query: "hola"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp types.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, services.AnalysisUnavailableMessage, resp.Answer)
	assert.Equal(t, 0, agent.calls, "agent must not be invoked without provider data")
}

func TestSuggestionsHandler(t *testing.T) {
	runs := store.NewMemoryRunStore()
	run := analyzedRun("run-1")
	run.Documents[0].Analysis = &types.DocumentAnalysis{
		Classification: types.ClassificationResult{Label: types.DocTypeFactura},
	}
	runs.Save(run)
	r := setupChatRouter(&stubAgent{}, runs)

	req, _ := http.NewRequest(http.MethodGet, "/v1/runs/run-1/suggestions", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp types.SuggestionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.NotEmpty(t, resp.Suggestions)
}

func TestSuggestionsHandlerRunNotFound(t *testing.T) {
	r := setupChatRouter(&stubAgent{}, store.NewMemoryRunStore())

	req, _ := http.NewRequest(http.MethodGet, "/v1/runs/missing/suggestions", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
