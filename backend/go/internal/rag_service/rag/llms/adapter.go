package llms

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"context"
	"fmt"
	"strings"

	"DocQA/backend/go/internal/llm"
)

// Adapter adapts a client from the llm package to the generic LLM interface.
type Adapter struct {
	client llm.LLM
}

// NewAdapter creates a new adapter.
func NewAdapter(client llm.LLM) *Adapter {
	return &Adapter{client: client}
}

// Generate calls the client and trims the answer. An empty answer is an error.
func (a *Adapter) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	answer, err := a.client.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("llm response was empty")
	}
	return answer, nil
}

// compile-time check to ensure Adapter implements the LLM interface
var _ interfaces.LLM = (*Adapter)(nil)
