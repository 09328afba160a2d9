package narrative

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clindoc/clindoc/internal/pipeline/bundle"
)

// Enhancer rewrites a template narrative into more fluent prose. It is
// best-effort: any error or timeout falls back to the template.
type Enhancer interface {
	Enhance(ctx context.Context, template string, b *bundle.ClinicalBundle) (string, error)
	Available() bool
}

// DefaultTimeout bounds the enhancement call.
const DefaultTimeout = 180 * time.Second

// Generator produces the patient-readable summary of a bundle.
type Generator struct {
	Enhancer Enhancer
	Timeout  time.Duration
}

func NewGenerator(enhancer Enhancer) *Generator {
	return &Generator{Enhancer: enhancer, Timeout: DefaultTimeout}
}

// Result carries the narrative plus whether the enhancement ran, so the
// orchestrator can record a degraded stage when it did not.
type Result struct {
	Text     string
	Enhanced bool
}

// Generate renders the deterministic template and, when an enhancer is
// configured and reachable, tries to improve it under the timeout. The
// template path cannot fail, so Generate never returns an error.
func (g *Generator) Generate(ctx context.Context, b *bundle.ClinicalBundle) Result {
	text := Template(b)
	if g.Enhancer == nil || !g.Enhancer.Available() {
		return Result{Text: text}
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	enhanced, err := g.Enhancer.Enhance(ctx, text, b)
	if err != nil {
		log.Warn().Err(err).Msg("narrative enhancement failed, keeping template")
		return Result{Text: text}
	}
	enhanced = strings.TrimSpace(enhanced)
	if enhanced == "" {
		return Result{Text: text}
	}
	return Result{Text: enhanced, Enhanced: true}
}

// Template renders the deterministic narrative. It lists what the document
// records in plain language and handles every field being absent.
func Template(b *bundle.ClinicalBundle) string {
	var sb strings.Builder

	subject := "the patient"
	if b.Patient.Name != "" && b.Patient.Name != "Unknown" {
		subject = b.Patient.Name
	}
	sb.WriteString(fmt.Sprintf("This document describes care provided to %s.", subject))

	if names := displayNames(b.Conditions); len(names) > 0 {
		sb.WriteString(fmt.Sprintf(" The recorded conditions are: %s.", joinList(names)))
	}
	if names := displayNames(b.Medications); len(names) > 0 {
		sb.WriteString(fmt.Sprintf(" The medications listed are: %s.", joinList(names)))
	}
	if len(b.Observations) > 0 {
		sb.WriteString(fmt.Sprintf(" The document records %s.", countPhrase(len(b.Observations), "test result or measurement", "test results and measurements")))
	}
	if names := displayNames(b.Procedures); len(names) > 0 {
		sb.WriteString(fmt.Sprintf(" Procedures mentioned include: %s.", joinList(names)))
	}
	if len(b.Encounters) > 0 && b.Encounters[0].Practitioner != "" && b.Encounters[0].Practitioner != "Unknown" {
		sb.WriteString(fmt.Sprintf(" Care was provided by %s.", b.Encounters[0].Practitioner))
	}
	if b.Empty() {
		sb.WriteString(" No specific conditions, medications, or procedures were identified in the document.")
	}
	sb.WriteString(" Please discuss any questions about this summary with a healthcare professional.")

	return sb.String()
}

func displayNames(resources []bundle.Resource) []string {
	names := make([]string, 0, len(resources))
	for _, r := range resources {
		name := r.Display
		if name == "" {
			name = r.Text
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func joinList(items []string) string {
	switch len(items) {
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

func countPhrase(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
