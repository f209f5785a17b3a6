package handlers

import (
	"net/http"

	apperrors "github.com/CompraLens/compralens-backend/errors"
	"github.com/CompraLens/compralens-backend/services"
	"github.com/CompraLens/compralens-backend/store"
	"github.com/CompraLens/compralens-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler answers natural-language questions about a processed run via
// the supervisor agent.
type ChatHandler struct {
	agent    services.ConversationalAgent
	composer *services.PromptComposer
	runs     store.RunStore
}

func NewChatHandler(agent services.ConversationalAgent, composer *services.PromptComposer, runs store.RunStore) *ChatHandler {
	return &ChatHandler{
		agent:    agent,
		composer: composer,
		runs:     runs,
	}
}

// AskHandler handles one conversational turn.
// POST /v1/chat
func (h *ChatHandler) AskHandler(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid chat request", err.Error()))
		return
	}

	run, ok := h.runs.Get(req.RunID)
	if !ok {
		_ = c.Error(apperrors.NotFound("Run", req.RunID))
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// Without any usable provider data the agent has nothing to reason over,
	// return the fallback directly instead of paying for an invocation.
	if run.Analysis == nil || run.Analysis.TotalProviders == 0 {
		c.JSON(http.StatusOK, types.ChatResponse{
			SessionID: sessionID,
			Answer:    services.AnalysisUnavailableMessage,
		})
		return
	}

	prompt := h.composer.Compose(req.Query, run.Analysis, run.Documents)
	answer := h.agent.Ask(c.Request.Context(), sessionID, prompt)

	c.JSON(http.StatusOK, types.ChatResponse{
		SessionID: sessionID,
		Answer:    answer,
	})
}

// SuggestionsHandler returns follow-up questions tailored to the run's
// document mix.
// GET /v1/runs/:id/suggestions
func (h *ChatHandler) SuggestionsHandler(c *gin.Context) {
	run, ok := h.runs.Get(c.Param("id"))
	if !ok {
		_ = c.Error(apperrors.NotFound("Run", c.Param("id")))
		return
	}

	c.JSON(http.StatusOK, types.SuggestionsResponse{
		RunID:       run.ID,
		Suggestions: services.ChatSuggestions(run.Documents),
	})
}
