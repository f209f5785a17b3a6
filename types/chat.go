package types

// ChatRequest is a natural-language query against a processed run.
type ChatRequest struct {
	RunID string `json:"runId" binding:"required"`
	Query string `json:"query" binding:"required"`
	// SessionID keeps agent conversation continuity across questions.
	// A new one is assigned when empty.
	SessionID string `json:"sessionId,omitempty"`
}

// ChatResponse is the agent's answer for one query.
type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Answer    string `json:"answer"`
}

// SuggestionsResponse lists contextual follow-up queries derived from the
// document-type mix of a run.
type SuggestionsResponse struct {
	RunID       string   `json:"runId"`
	Suggestions []string `json:"suggestions"`
}
