package narrative

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clindoc/clindoc/internal/pipeline/bundle"
	"github.com/clindoc/clindoc/internal/platform/llm"
)

const enhanceSystemPrompt = `You rewrite clinical summaries into clear, plain language for patients.
Keep every medical fact from the draft. Do not add diagnoses, medications, or advice that are not in the draft.
Return only the rewritten summary text.`

// LLMEnhancer improves the template narrative through a chat completion.
type LLMEnhancer struct {
	Client *llm.Client
}

func NewLLMEnhancer(client *llm.Client) *LLMEnhancer {
	return &LLMEnhancer{Client: client}
}

func (e *LLMEnhancer) Available() bool {
	return e.Client != nil && e.Client.Available()
}

func (e *LLMEnhancer) Enhance(ctx context.Context, template string, b *bundle.ClinicalBundle) (string, error) {
	record, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("encoding bundle: %w", err)
	}
	user := fmt.Sprintf("Draft summary:\n%s\n\nStructured record:\n%s", template, record)
	return e.Client.Chat(ctx, enhanceSystemPrompt, user)
}
