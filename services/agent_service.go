package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	bragtypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"github.com/CompraLens/compralens-backend/logger"
)

// spanishInstruction is prepended to every prompt; the agent otherwise
// drifts into English on mixed-language source documents.
const spanishInstruction = "Por favor, responde SOLAMENTE en español. "

// failureKeywords in an agent reply indicate the upstream pipeline surfaced
// an error as text instead of failing the call.
var failureKeywords = []string{"error", "exception", "timeout", "failed"}

// AnalysisUnavailableMessage is the human-readable fallback shown whenever
// the agent call fails outright or its reply signals a failure.
const AnalysisUnavailableMessage = `## Análisis No Disponible

No pude completar el análisis en este momento.

**Por favor intenta:**
1. Verificar que los documentos contengan información de proveedores
2. Procesar nuevamente los documentos
3. Consultar información específica como "precios de gaseosas" o "mejor proveedor de lácteos"

*El sistema detectó un error temporal en el procesamiento.*`

// ConversationalAgent is the contract for the downstream text-completion
// service. Ask never fails: failures come back as an explanatory answer.
type ConversationalAgent interface {
	Ask(ctx context.Context, sessionID, prompt string) string
}

// AgentService invokes a Bedrock supervisor agent and assembles its
// streamed completion.
type AgentService struct {
	client  *bedrockagentruntime.Client
	agentID string
	aliasID string
}

var _ ConversationalAgent = (*AgentService)(nil)

// NewAgentService wires the Bedrock agent runtime client with the agent and
// alias identifiers from configuration.
func NewAgentService(client *bedrockagentruntime.Client, agentID, aliasID string) *AgentService {
	return &AgentService{client: client, agentID: agentID, aliasID: aliasID}
}

// Ask sends the prompt to the agent within the given session and returns
// the full answer text. An outright call failure or a reply carrying
// failure keywords yields the analysis-unavailable explanation instead of a
// silent empty answer.
func (s *AgentService) Ask(ctx context.Context, sessionID, prompt string) string {
	log := logger.GetLogger()

	answer, err := s.invoke(ctx, sessionID, prompt)
	if err != nil {
		log.Errorw("Agent invocation failed", "sessionID", sessionID, "error", err)
		return AnalysisUnavailableMessage
	}

	if keyword, found := failureKeywordIn(answer); found {
		log.Warnw("Agent reply carried a failure keyword", "sessionID", sessionID, "keyword", keyword)
		return AnalysisUnavailableMessage
	}
	return answer
}

// failureKeywordIn reports the first failure keyword present in the reply,
// case insensitively.
func failureKeywordIn(answer string) (string, bool) {
	lower := strings.ToLower(answer)
	for _, keyword := range failureKeywords {
		if strings.Contains(lower, keyword) {
			return keyword, true
		}
	}
	return "", false
}

// invoke performs the streaming agent call and concatenates the completion
// chunks.
func (s *AgentService) invoke(ctx context.Context, sessionID, prompt string) (string, error) {
	out, err := s.client.InvokeAgent(ctx, &bedrockagentruntime.InvokeAgentInput{
		AgentId:      aws.String(s.agentID),
		AgentAliasId: aws.String(s.aliasID),
		SessionId:    aws.String(sessionID),
		InputText:    aws.String(spanishInstruction + prompt),
	})
	if err != nil {
		return "", fmt.Errorf("invoking agent: %w", err)
	}

	stream := out.GetStream()
	defer stream.Close()

	var b strings.Builder
	for event := range stream.Events() {
		if chunk, ok := event.(*bragtypes.ResponseStreamMemberChunk); ok {
			b.Write(chunk.Value.Bytes)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("reading agent stream: %w", err)
	}
	return b.String(), nil
}
