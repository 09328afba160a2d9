package link

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/clindoc/clindoc/internal/pipeline/entity"
)

// Default similarity thresholds per entity type. Medication linking uses a
// stricter cutoff because a wrong drug code is more dangerous downstream
// than a wrong condition code.
const (
	DefaultThreshold           = 0.80
	DefaultMedicationThreshold = 0.85
)

// Embedder produces one vector per input string.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float64, error)
}

// LinkedEntity is an entity with its ontology match, if any. Code is nil
// when no concept cleared the threshold; the entity still flows into the
// bundle as an unlinked resource.
type LinkedEntity struct {
	entity.ClinicalEntity
	CodeSystem     string  `json:"code_system,omitempty"`
	Code           *string `json:"code,omitempty"`
	Display        string  `json:"display,omitempty"`
	LinkConfidence float64 `json:"link_confidence,omitempty"`
}

// Linked reports whether the entity matched a concept.
func (le LinkedEntity) Linked() bool { return le.Code != nil }

// Linker matches entities against the lexicon by embedding similarity.
type Linker struct {
	Embedder            Embedder
	Lexicon             *Lexicon
	Threshold           float64
	MedicationThreshold float64

	mu      sync.Mutex
	vectors map[entity.EntityType][][]float64
}

// NewLinker returns a linker over the given embedder and lexicon using the
// default thresholds.
func NewLinker(embedder Embedder, lexicon *Lexicon) *Linker {
	return &Linker{
		Embedder:            embedder,
		Lexicon:             lexicon,
		Threshold:           DefaultThreshold,
		MedicationThreshold: DefaultMedicationThreshold,
		vectors:             make(map[entity.EntityType][][]float64),
	}
}

func (l *Linker) thresholdFor(t entity.EntityType) float64 {
	if t == entity.TypeMedication {
		return l.MedicationThreshold
	}
	return l.Threshold
}

// genericMedicationWords are mention texts that embed close to drug names
// but never denote a specific product. Such mentions stay unlinked.
var genericMedicationWords = map[string]bool{
	"medication":  true,
	"medications": true,
	"drug":        true,
	"drugs":       true,
	"antibiotic":  true,
	"analgesic":   true,
	"painkiller":  true,
	"pill":        true,
	"pills":       true,
	"injection":   true,
}

// plausibleMedication filters mentions that should never receive a drug
// code regardless of similarity score.
func plausibleMedication(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if len(t) < 4 {
		return false
	}
	return !genericMedicationWords[t]
}

// Link matches each entity against the lexicon. Entities of a type with no
// concepts, or below the threshold, come back unlinked rather than dropped.
func (l *Linker) Link(ctx context.Context, entities []entity.ClinicalEntity) ([]LinkedEntity, error) {
	linked := make([]LinkedEntity, len(entities))
	for i, ent := range entities {
		linked[i] = LinkedEntity{ClinicalEntity: ent}
	}

	// Group mention texts per type so each lexicon is embedded once and
	// mentions batch into a single call.
	byType := make(map[entity.EntityType][]int)
	for i, ent := range entities {
		if ent.Type == entity.TypeMedication && !plausibleMedication(ent.Text) {
			continue
		}
		byType[ent.Type] = append(byType[ent.Type], i)
	}

	for entType, indices := range byType {
		concepts := l.Lexicon.Concepts(entType)
		if len(concepts) == 0 {
			continue
		}
		conceptVecs, err := l.conceptVectors(ctx, entType, concepts)
		if err != nil {
			return nil, fmt.Errorf("linking %s concepts: %w", entType, err)
		}

		texts := make([]string, len(indices))
		for j, idx := range indices {
			texts[j] = entities[idx].Text
		}
		mentionVecs, err := l.Embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding %s mentions: %w", entType, err)
		}
		if len(mentionVecs) != len(indices) {
			return nil, fmt.Errorf("embedding %s mentions: got %d vectors for %d inputs", entType, len(mentionVecs), len(indices))
		}

		threshold := l.thresholdFor(entType)
		for j, idx := range indices {
			best, score := bestMatch(mentionVecs[j], conceptVecs)
			if score < threshold {
				log.Debug().
					Str("text", entities[idx].Text).
					Float64("score", score).
					Float64("threshold", threshold).
					Msg("entity below linking threshold")
				continue
			}
			code := concepts[best].Code
			linked[idx].CodeSystem = concepts[best].System
			linked[idx].Code = &code
			linked[idx].Display = concepts[best].Display
			linked[idx].LinkConfidence = score
		}
	}

	return linked, nil
}

// conceptVectors embeds a type's lexicon once and caches the result.
func (l *Linker) conceptVectors(ctx context.Context, t entity.EntityType, concepts []Concept) ([][]float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if vecs, ok := l.vectors[t]; ok {
		return vecs, nil
	}

	displays := make([]string, len(concepts))
	for i, c := range concepts {
		displays[i] = c.Display
	}
	vecs, err := l.Embedder.Embed(ctx, displays)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(concepts) {
		return nil, fmt.Errorf("got %d vectors for %d concepts", len(vecs), len(concepts))
	}
	if l.vectors == nil {
		l.vectors = make(map[entity.EntityType][][]float64)
	}
	l.vectors[t] = vecs
	return vecs, nil
}

func bestMatch(vec []float64, candidates [][]float64) (int, float64) {
	best, bestScore := -1, math.Inf(-1)
	for i, cand := range candidates {
		if s := cosine(vec, cand); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
