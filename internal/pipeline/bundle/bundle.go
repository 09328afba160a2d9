package bundle

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clindoc/clindoc/internal/pipeline/entity"
	"github.com/clindoc/clindoc/internal/pipeline/link"
	"github.com/clindoc/clindoc/internal/pipeline/section"
)

// Resource is one coded item in the bundle. Code is nil for entities the
// linker could not map; they still appear so nothing extracted is lost.
type Resource struct {
	Text       string   `json:"text"`
	CodeSystem string   `json:"code_system,omitempty"`
	Code       *string  `json:"code"`
	Display    string   `json:"display_name,omitempty"`
	Confidence float64  `json:"confidence"`
	Value      *float64 `json:"value,omitempty"`
	Unit       string   `json:"unit,omitempty"`
}

// Patient holds the heuristically extracted subject of the document.
type Patient struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

// Encounter describes the care context the document records.
type Encounter struct {
	Practitioner string `json:"practitioner"`
	Date         string `json:"date,omitempty"`
	Facility     string `json:"facility,omitempty"`
}

// ClinicalBundle is the structured record composed from one document.
type ClinicalBundle struct {
	Patient      Patient     `json:"patient"`
	Conditions   []Resource  `json:"conditions"`
	Medications  []Resource  `json:"medications"`
	Observations []Resource  `json:"observations"`
	Procedures   []Resource  `json:"procedures"`
	Encounters   []Encounter `json:"encounters"`
	ComposedAt   string      `json:"composed_at"`
}

// Empty reports whether the bundle holds no clinical resources.
func (b *ClinicalBundle) Empty() bool {
	return len(b.Conditions) == 0 && len(b.Medications) == 0 &&
		len(b.Observations) == 0 && len(b.Procedures) == 0
}

// ResourceCount returns the total number of typed resources.
func (b *ClinicalBundle) ResourceCount() int {
	return len(b.Conditions) + len(b.Medications) + len(b.Observations) + len(b.Procedures)
}

// Metadata is what the caller knows about the document independent of its
// text.
type Metadata struct {
	Filename   string
	ReceivedAt time.Time
}

const unknownName = "Unknown"

var (
	patientRe      = regexp.MustCompile(`(?im)^\s*(?:patient(?: name)?|name)\s*[:\-]\s*([A-Za-z][A-Za-z .,'\-]{1,60})$`)
	dobRe          = regexp.MustCompile(`(?im)^\s*(?:dob|date of birth)\s*[:\-]\s*(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4})`)
	practitionerRe = regexp.MustCompile(`(?im)^\s*(?:physician|provider|attending|doctor|seen by)\s*[:\-]\s*((?:Dr\.?\s+)?[A-Za-z][A-Za-z .,'\-]{1,60})$`)
	dateRe         = regexp.MustCompile(`(?im)^\s*(?:date(?: of (?:visit|service|admission))?|visit date)\s*[:\-]\s*(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4})`)

	// valueUnitRe matches a "number unit" pair directly after a mention,
	// e.g. "Glucose: 185 mg/dL" or "temp 38.2 C".
	valueUnitRe = regexp.MustCompile(`^[:\s=]+(\d+(?:\.\d+)?)\s*(mg/dL|mmol/L|mmHg|bpm|°?[CF]|%|g/dL|kg|cm)?`)
)

// Composer assembles linked entities and metadata into a bundle.
type Composer struct {
	Now func() time.Time
}

func NewComposer() *Composer {
	return &Composer{Now: time.Now}
}

// Compose groups entities into typed resource lists and scans the header
// text for patient and encounter details. It always returns a valid bundle;
// empty input yields an empty one.
func (c *Composer) Compose(entities []link.LinkedEntity, sections []section.Section, meta Metadata) *ClinicalBundle {
	b := &ClinicalBundle{
		Patient:      Patient{Name: unknownName},
		Conditions:   []Resource{},
		Medications:  []Resource{},
		Observations: []Resource{},
		Procedures:   []Resource{},
		Encounters:   []Encounter{},
		ComposedAt:   c.Now().UTC().Format(time.RFC3339),
	}

	header := headerText(sections)
	if m := patientRe.FindStringSubmatch(header); m != nil {
		b.Patient.Name = strings.TrimSpace(m[1])
	}
	if m := dobRe.FindStringSubmatch(header); m != nil {
		b.Patient.DateOfBirth = normalizeDate(m[1])
	}

	enc := Encounter{Practitioner: unknownName}
	if m := practitionerRe.FindStringSubmatch(header); m != nil {
		enc.Practitioner = strings.TrimSpace(m[1])
	}
	if m := dateRe.FindStringSubmatch(header); m != nil {
		enc.Date = normalizeDate(m[1])
	} else if !meta.ReceivedAt.IsZero() {
		enc.Date = meta.ReceivedAt.UTC().Format("2006-01-02")
	}
	b.Encounters = append(b.Encounters, enc)

	for _, ent := range entities {
		res := Resource{
			Text:       ent.Text,
			CodeSystem: ent.CodeSystem,
			Code:       ent.Code,
			Display:    ent.Display,
			Confidence: ent.Confidence,
		}
		switch ent.Type {
		case entity.TypeCondition:
			b.Conditions = append(b.Conditions, res)
		case entity.TypeMedication:
			b.Medications = append(b.Medications, res)
		case entity.TypeObservation:
			if v, unit, ok := findValue(sections, ent); ok {
				res.Value = &v
				res.Unit = unit
			}
			b.Observations = append(b.Observations, res)
		case entity.TypeProcedure:
			b.Procedures = append(b.Procedures, res)
		}
	}

	return b
}

// headerText returns the text the patient and encounter heuristics scan:
// the leading unlabeled section if present, otherwise all text joined.
func headerText(sections []section.Section) string {
	if sec := section.Find(sections, section.LabelOther); sec != nil {
		return sec.Text
	}
	var sb strings.Builder
	for _, sec := range sections {
		sb.WriteString(sec.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// findValue looks for a numeric value and unit immediately after the
// observation mention in its source section.
func findValue(sections []section.Section, ent link.LinkedEntity) (float64, string, bool) {
	sec := section.Find(sections, ent.SourceSection)
	if sec == nil {
		return 0, "", false
	}
	idx := strings.Index(strings.ToLower(sec.Text), strings.ToLower(ent.Text))
	if idx < 0 {
		return 0, "", false
	}
	rest := sec.Text[idx+len(ent.Text):]
	m := valueUnitRe.FindStringSubmatch(rest)
	if m == nil {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	return v, m[2], true
}

// normalizeDate converts supported date layouts to yyyy-mm-dd; an
// unparseable date passes through unchanged.
func normalizeDate(s string) string {
	for _, layout := range []string{"2006-01-02", "1/2/2006", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
