package entity

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/clindoc/clindoc/internal/pipeline/section"
	"github.com/clindoc/clindoc/internal/platform/nlp"
)

// Tagger is one NER pass over a piece of text.
type Tagger interface {
	// Name identifies the pass in logs and processing entries.
	Name() string
	Detect(ctx context.Context, text string) ([]nlp.Mention, error)
}

// labelTypes maps tagger output labels to entity types. Labels not in the
// map are discarded.
var labelTypes = map[string]EntityType{
	"PROBLEM":    TypeCondition,
	"DISEASE":    TypeCondition,
	"CONDITION":  TypeCondition,
	"DIAGNOSIS":  TypeCondition,
	"MEDICATION": TypeMedication,
	"CHEMICAL":   TypeMedication,
	"DRUG":       TypeMedication,
	"TEST":       TypeObservation,
	"LAB":        TypeObservation,
	"FINDING":    TypeObservation,
	"PROCEDURE":  TypeProcedure,
	"TREATMENT":  TypeProcedure,
}

// Extractor runs the general and biomedical tagging passes over each
// section and merges the results.
type Extractor struct {
	General    Tagger
	Biomedical Tagger
}

// Result carries the merged entities plus which passes actually ran, so the
// orchestrator can record degraded extraction.
type Result struct {
	Entities   []ClinicalEntity
	PassesRun  []string
	PassErrors []string
}

// Degraded reports whether at least one configured pass failed.
func (r *Result) Degraded() bool {
	return len(r.PassErrors) > 0
}

// Extract runs both passes over every section. A failing pass degrades the
// result rather than failing it; only both passes failing (or none being
// configured) is an error.
func (e *Extractor) Extract(ctx context.Context, sections []section.Section) (*Result, error) {
	res := &Result{}

	var general, biomedical []ClinicalEntity
	for _, tagger := range []Tagger{e.General, e.Biomedical} {
		if tagger == nil {
			continue
		}
		found, err := e.runPass(ctx, tagger, sections)
		if err != nil {
			log.Warn().Err(err).Str("pass", tagger.Name()).Msg("tagging pass failed")
			res.PassErrors = append(res.PassErrors, fmt.Sprintf("%s: %v", tagger.Name(), err))
			continue
		}
		res.PassesRun = append(res.PassesRun, tagger.Name())
		if tagger == e.General {
			general = found
		} else {
			biomedical = found
		}
	}

	if len(res.PassesRun) == 0 {
		return nil, fmt.Errorf("entity extraction: no tagging pass succeeded")
	}

	res.Entities = Merge(general, biomedical)
	return res, nil
}

func (e *Extractor) runPass(ctx context.Context, tagger Tagger, sections []section.Section) ([]ClinicalEntity, error) {
	var entities []ClinicalEntity
	for _, sec := range sections {
		mentions, err := tagger.Detect(ctx, sec.Text)
		if err != nil {
			return nil, err
		}
		for _, m := range mentions {
			entType, ok := labelTypes[strings.ToUpper(m.Label)]
			if !ok {
				continue
			}
			text := strings.TrimSpace(m.Text)
			if text == "" || Stopped(text) {
				continue
			}
			entities = append(entities, ClinicalEntity{
				Text:          text,
				Start:         m.Start,
				End:           m.End,
				Type:          entType,
				Confidence:    m.Score,
				SourceSection: sec.Label,
			})
		}
	}
	return entities, nil
}
