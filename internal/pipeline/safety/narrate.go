package safety

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/clindoc/clindoc/internal/platform/llm"
)

// Narrator adds plain-language prose to existing flags. It can only
// annotate flags the rule engine produced, never create new ones.
type Narrator interface {
	Narrate(ctx context.Context, flag Flag) (string, error)
	Available() bool
}

// Narrate fills in the Narration field of each flag, best effort. Failures
// leave the flag untouched; the report is identical apart from prose.
func Narrate(ctx context.Context, n Narrator, report Report) Report {
	if n == nil || !n.Available() {
		return report
	}
	for i, flag := range report.Flags {
		text, err := n.Narrate(ctx, flag)
		if err != nil {
			log.Warn().Err(err).Str("category", string(flag.Category)).Msg("flag narration failed")
			continue
		}
		report.Flags[i].Narration = strings.TrimSpace(text)
	}
	return report
}

const narrateSystemPrompt = `You explain clinical safety alerts in plain language for patients.
Explain only the alert given. Do not add new warnings, diagnoses, or treatment advice.
Return one short paragraph.`

// LLMNarrator explains flags through a chat completion.
type LLMNarrator struct {
	Client *llm.Client
}

func NewLLMNarrator(client *llm.Client) *LLMNarrator {
	return &LLMNarrator{Client: client}
}

func (n *LLMNarrator) Available() bool {
	return n.Client != nil && n.Client.Available()
}

func (n *LLMNarrator) Narrate(ctx context.Context, flag Flag) (string, error) {
	user := fmt.Sprintf("Alert category: %s\nSeverity: %s\nDetail: %s\nInvolves: %s",
		flag.Category, flag.Severity, flag.Rationale, strings.Join(flag.InvolvedEntities, ", "))
	return n.Client.Chat(ctx, narrateSystemPrompt, user)
}
