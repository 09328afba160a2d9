package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clindoc/clindoc/internal/pipeline/bundle"
	"github.com/clindoc/clindoc/internal/pipeline/entity"
	"github.com/clindoc/clindoc/internal/pipeline/extract"
	"github.com/clindoc/clindoc/internal/pipeline/link"
	"github.com/clindoc/clindoc/internal/pipeline/narrative"
	"github.com/clindoc/clindoc/internal/pipeline/safety"
	"github.com/clindoc/clindoc/internal/pipeline/section"
)

// Stage names as they appear in the processing log.
const (
	StageExtract   = "extract"
	StageSection   = "section"
	StageEntities  = "entities"
	StageLink      = "link"
	StageBundle    = "bundle"
	StageNarrative = "narrative"
	StageSafety    = "safety"
)

// StageStatus is the terminal state of one stage.
type StageStatus string

const (
	StatusSuccess  StageStatus = "success"
	StatusDegraded StageStatus = "degraded"
	StatusSkipped  StageStatus = "skipped"
	StatusFailed   StageStatus = "failed"
)

// StageResult is one processing log entry.
type StageResult struct {
	Stage   string      `json:"stage"`
	Status  StageStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// AnalysisResult is the complete output of one pipeline run. It is built
// once and never mutated afterwards.
type AnalysisResult struct {
	Bundle        *bundle.ClinicalBundle `json:"bundle"`
	NarrativeText string                 `json:"narrative_text"`
	Safety        safety.Report          `json:"safety"`
	ProcessingLog []StageResult          `json:"processing_log"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    time.Time              `json:"finished_at"`
}

// Degraded reports whether any stage fell short of full success. Skipped
// stages do not count: a deployment that disables linking still produces
// complete results for what it runs.
func (r *AnalysisResult) Degraded() bool {
	for _, entry := range r.ProcessingLog {
		if entry.Status == StatusDegraded || entry.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Options enumerates which optional stages are enabled. Construction-time
// configuration rather than runtime toggles keeps runs reproducible.
type Options struct {
	LinkingEnabled   bool
	NarrativeEnabled bool
	SafetyNarration  bool
}

// Pipeline runs the seven analysis stages in order. A single Pipeline is
// safe for concurrent Run calls: all stage dependencies are read-only after
// construction.
type Pipeline struct {
	opts       Options
	extractor  *extract.Extractor
	sectioner  *section.Sectionizer
	entities   *entity.Extractor
	linker     *link.Linker
	composer   *bundle.Composer
	narrator   *narrative.Generator
	flagWriter safety.Narrator
	now        func() time.Time
}

// New assembles a pipeline. The linker may be nil when linking is disabled;
// the narrative generator must be non-nil since its template path has no
// dependencies.
func New(opts Options, ex *extract.Extractor, ent *entity.Extractor, lk *link.Linker, gen *narrative.Generator, fw safety.Narrator) *Pipeline {
	return &Pipeline{
		opts:       opts,
		extractor:  ex,
		sectioner:  section.NewSectionizer(),
		entities:   ent,
		linker:     lk,
		composer:   bundle.NewComposer(),
		narrator:   gen,
		flagWriter: fw,
		now:        time.Now,
	}
}

// Run executes the full analysis. Only text extraction failure aborts the
// run; every later stage substitutes a documented default and records
// itself in the processing log.
func (p *Pipeline) Run(ctx context.Context, doc extract.RawDocument) (*AnalysisResult, error) {
	result := &AnalysisResult{StartedAt: p.now().UTC()}
	logStage := func(stage string, status StageStatus, msg string) {
		result.ProcessingLog = append(result.ProcessingLog, StageResult{Stage: stage, Status: status, Message: msg})
		log.Info().Str("stage", stage).Str("status", string(status)).Str("detail", msg).Msg("pipeline stage")
	}

	// 1. Text extraction. The only fatal stage.
	extracted, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		logStage(StageExtract, StatusFailed, err.Error())
		result.FinishedAt = p.now().UTC()
		return result, fmt.Errorf("text extraction: %w", err)
	}
	logStage(StageExtract, StatusSuccess, fmt.Sprintf("%d characters", len(extracted.Text)))

	// 2. Sectionization. Cannot fail; unrecognized structure degrades to a
	// single catch-all section.
	sections := p.sectioner.Split(extracted.Text)
	if section.Recognized(sections) {
		logStage(StageSection, StatusSuccess, fmt.Sprintf("%d sections", len(sections)))
	} else {
		logStage(StageSection, StatusDegraded, "no headings recognized, single-section fallback")
	}

	// 3. Entity extraction.
	var entities []entity.ClinicalEntity
	entRes, err := p.entities.Extract(ctx, sections)
	switch {
	case err != nil:
		logStage(StageEntities, StatusFailed, err.Error())
	case entRes.Degraded():
		entities = entRes.Entities
		logStage(StageEntities, StatusDegraded, fmt.Sprintf("%d entities, partial passes: %v", len(entities), entRes.PassErrors))
	default:
		entities = entRes.Entities
		logStage(StageEntities, StatusSuccess, fmt.Sprintf("%d entities", len(entities)))
	}

	// 4. Ontology linking. Optional; failure retains unlinked entities.
	linked := asUnlinked(entities)
	switch {
	case !p.opts.LinkingEnabled || p.linker == nil:
		logStage(StageLink, StatusSkipped, "linking disabled")
	default:
		out, err := p.linker.Link(ctx, entities)
		if err != nil {
			logStage(StageLink, StatusFailed, err.Error())
		} else {
			linked = out
			logStage(StageLink, StatusSuccess, fmt.Sprintf("%d of %d linked", countLinked(out), len(out)))
		}
	}

	// 5. Bundle composition. Cannot fail.
	b := p.composer.Compose(linked, sections, bundle.Metadata{
		Filename:   doc.Filename,
		ReceivedAt: result.StartedAt,
	})
	result.Bundle = b
	logStage(StageBundle, StatusSuccess, fmt.Sprintf("%d resources", b.ResourceCount()))

	// 6. Narrative. The template path always succeeds; a configured but
	// failing enhancement degrades the stage.
	narRes := narrative.Result{Text: narrative.Template(b)}
	if p.opts.NarrativeEnabled {
		narRes = p.narrator.Generate(ctx, b)
	}
	result.NarrativeText = narRes.Text
	switch {
	case !p.opts.NarrativeEnabled || p.narrator.Enhancer == nil:
		logStage(StageNarrative, StatusSuccess, "template narrative")
	case narRes.Enhanced:
		logStage(StageNarrative, StatusSuccess, "enhanced narrative")
	default:
		logStage(StageNarrative, StatusDegraded, "enhancement unavailable, template narrative kept")
	}

	// 7. Safety analysis.
	report := safety.Analyze(b)
	if p.opts.SafetyNarration && p.flagWriter != nil {
		report = safety.Narrate(ctx, p.flagWriter, report)
	}
	result.Safety = report
	if report.RiskLevel == safety.RiskUnknown {
		logStage(StageSafety, StatusFailed, "rule engine could not evaluate bundle")
	} else {
		logStage(StageSafety, StatusSuccess, fmt.Sprintf("%d flags, risk %s", len(report.Flags), report.RiskLevel))
	}

	result.FinishedAt = p.now().UTC()
	return result, nil
}

func asUnlinked(entities []entity.ClinicalEntity) []link.LinkedEntity {
	out := make([]link.LinkedEntity, len(entities))
	for i, ent := range entities {
		out[i] = link.LinkedEntity{ClinicalEntity: ent}
	}
	return out
}

func countLinked(entities []link.LinkedEntity) int {
	n := 0
	for _, e := range entities {
		if e.Linked() {
			n++
		}
	}
	return n
}
