// Package section splits extracted clinical text into labeled sections by
// matching known heading patterns. Sectionization never fails the run: when
// no headings are recognized the whole text becomes a single catch-all
// section so downstream stages still receive input.
package section

import (
	"regexp"
	"strings"
)

// Section labels. The vocabulary is fixed; unrecognized content lands in Other.
const (
	LabelOther          = "other"
	LabelChiefComplaint = "chief_complaint"
	LabelHistory        = "history"
	LabelMedicalHistory = "medical_history"
	LabelMedications    = "medications"
	LabelAllergies      = "allergies"
	LabelVitalSigns     = "vital_signs"
	LabelPhysicalExam   = "physical_exam"
	LabelResults        = "results"
	LabelDiagnosis      = "diagnosis"
	LabelProcedures     = "procedures"
	LabelPlan           = "plan"
	LabelDischarge      = "discharge"
	LabelFollowUp       = "follow_up"
)

// Section is a labeled, ordered slice of the document text.
type Section struct {
	Label string `json:"label"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// headingAliases maps normalized heading text to a section label.
// Normalization lowercases and strips surrounding punctuation, so
// "MEDICATIONS:", "Medications -" and "current medications" all match.
var headingAliases = map[string]string{
	"chief complaint":            LabelChiefComplaint,
	"cc":                         LabelChiefComplaint,
	"presenting complaint":       LabelChiefComplaint,
	"history of present illness": LabelHistory,
	"hpi":                        LabelHistory,
	"history":                    LabelHistory,
	"clinical history":           LabelHistory,
	"past medical history":       LabelMedicalHistory,
	"pmh":                        LabelMedicalHistory,
	"medical history":            LabelMedicalHistory,
	"problem list":               LabelMedicalHistory,
	"medications":                LabelMedications,
	"current medications":        LabelMedications,
	"medication list":            LabelMedications,
	"meds":                       LabelMedications,
	"prescriptions":              LabelMedications,
	"allergies":                  LabelAllergies,
	"drug allergies":             LabelAllergies,
	"vital signs":                LabelVitalSigns,
	"vitals":                     LabelVitalSigns,
	"physical exam":              LabelPhysicalExam,
	"physical examination":       LabelPhysicalExam,
	"examination":                LabelPhysicalExam,
	"lab results":                LabelResults,
	"labs":                       LabelResults,
	"laboratory results":         LabelResults,
	"results":                    LabelResults,
	"investigations":             LabelResults,
	"diagnosis":                  LabelDiagnosis,
	"diagnoses":                  LabelDiagnosis,
	"assessment":                 LabelDiagnosis,
	"impression":                 LabelDiagnosis,
	"assessment and plan":        LabelDiagnosis,
	"procedures":                 LabelProcedures,
	"procedures performed":       LabelProcedures,
	"operations":                 LabelProcedures,
	"plan":                       LabelPlan,
	"treatment":                  LabelPlan,
	"treatment plan":             LabelPlan,
	"recommendations":            LabelPlan,
	"discharge instructions":     LabelDischarge,
	"discharge summary":          LabelDischarge,
	"discharge medications":      LabelMedications,
	"follow up":                  LabelFollowUp,
	"followup":                   LabelFollowUp,
	"follow-up":                  LabelFollowUp,
}

// headingTrim strips list numbering and decoration around a candidate
// heading line, e.g. "2. MEDICATIONS:" or "-- Allergies --".
var headingTrim = regexp.MustCompile(`^[\s\d.\-–—*#=]+|[\s:.\-–—*#=]+$`)

// Sectionizer splits text into labeled sections.
type Sectionizer struct{}

func NewSectionizer() *Sectionizer {
	return &Sectionizer{}
}

// matchHeading returns the section label for a line that is a recognized
// heading, or "" otherwise. A heading line must be reasonably short and
// consist of the alias alone (after trimming decoration).
func matchHeading(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > 60 {
		return ""
	}
	normalized := strings.ToLower(headingTrim.ReplaceAllString(trimmed, ""))
	normalized = strings.Join(strings.Fields(normalized), " ")
	if label, ok := headingAliases[normalized]; ok {
		return label
	}
	return ""
}

// Split divides text into ordered sections. Text before the first
// recognized heading is assigned to an implicit Other section; text with no
// recognized headings at all yields exactly one Other section holding the
// full input.
func (s *Sectionizer) Split(text string) []Section {
	lines := strings.Split(text, "\n")

	var sections []Section
	currentLabel := LabelOther
	var current []string
	flush := func() {
		body := strings.TrimSpace(strings.Join(current, "\n"))
		if body == "" {
			current = nil
			return
		}
		sections = append(sections, Section{
			Label: currentLabel,
			Text:  body,
			Order: len(sections),
		})
		current = nil
	}

	for _, line := range lines {
		if label := matchHeading(line); label != "" {
			flush()
			currentLabel = label
			continue
		}
		current = append(current, line)
	}
	flush()

	if len(sections) == 0 {
		return []Section{{Label: LabelOther, Text: strings.TrimSpace(text), Order: 0}}
	}
	return sections
}

// Recognized reports whether any non-catch-all section was produced, which
// the orchestrator uses to distinguish success from the degraded
// single-section fallback.
func Recognized(sections []Section) bool {
	for _, sec := range sections {
		if sec.Label != LabelOther {
			return true
		}
	}
	return false
}

// Find returns the first section with the given label, or nil.
func Find(sections []Section, label string) *Section {
	for i := range sections {
		if sections[i].Label == label {
			return &sections[i]
		}
	}
	return nil
}
